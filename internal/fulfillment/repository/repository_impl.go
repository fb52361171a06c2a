package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/fulfillment/domain"
	"github.com/smallbiznis/storefront/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.RetryRepository {
	return &repo{}
}

func (r *repo) Enqueue(ctx context.Context, conn *gorm.DB, retry *domain.Retry) (bool, error) {
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_item_id"}},
			DoNothing: true,
		}).
		Create(retry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) LockDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]domain.Retry, error) {
	var items []domain.Retry
	err := tx.WithContext(ctx).Raw(
		`SELECT id, order_id, order_item_id, session_id, product_id, variant_id, quantity,
			status, attempts, last_error, next_attempt_at, resolved_at, created_at, updated_at
		 FROM fulfillment_retries
		 WHERE status = ? AND next_attempt_at <= ?
		 ORDER BY next_attempt_at ASC, id ASC
		 LIMIT ?`+db.SkipLockedSuffix(tx),
		domain.RetryStatusPending,
		now,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// MarkResolved only moves a pending retry. Zero affected rows means another
// worker got there first, and the error rolls back the caller's sale.
func (r *repo) MarkResolved(ctx context.Context, tx *gorm.DB, id int64, at time.Time) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE fulfillment_retries
		 SET status = ?, attempts = attempts + 1, last_error = NULL, resolved_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.RetryStatusResolved,
		at,
		at,
		id,
		domain.RetryStatusPending,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRetryNotPending
	}
	return nil
}

func (r *repo) MarkFailed(ctx context.Context, tx *gorm.DB, id int64, status domain.RetryStatus, attempts int, lastErr string, next time.Time, at time.Time) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE fulfillment_retries
		 SET status = ?, attempts = ?, last_error = ?, next_attempt_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status,
		attempts,
		lastErr,
		next,
		at,
		id,
		domain.RetryStatusPending,
	).Error
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListRetriesRequest) ([]domain.Retry, error) {
	var items []domain.Retry
	stmt := conn.WithContext(ctx).Model(&domain.Retry{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt = stmt.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
