package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/inventory/domain"
	"github.com/smallbiznis/storefront/pkg/db"
	"github.com/smallbiznis/storefront/pkg/db/option"
	"gorm.io/gorm"
)

const rowColumns = `id, product_id, variant_id, on_hand, version, removed_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindRowForUpdate(ctx context.Context, tx *gorm.DB, productID, variantID int64) (*domain.Row, error) {
	var row domain.Row
	err := tx.WithContext(ctx).Raw(
		`SELECT `+rowColumns+`
		 FROM inventory_rows
		 WHERE product_id = ? AND variant_id = ?`+db.ForUpdateSuffix(tx),
		productID,
		variantID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) InsertRow(ctx context.Context, tx *gorm.DB, row *domain.Row) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO inventory_rows (`+rowColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.ProductID,
		row.VariantID,
		row.OnHand,
		row.Version,
		row.RemovedAt,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) UpdateRow(ctx context.Context, tx *gorm.DB, row *domain.Row, expectedVersion int64) (int64, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE inventory_rows
		 SET on_hand = ?, version = ?, removed_at = NULL, updated_at = ?
		 WHERE id = ? AND version = ?`,
		row.OnHand,
		row.Version,
		row.UpdatedAt,
		row.ID,
		expectedVersion,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) InsertLogEntry(ctx context.Context, tx *gorm.DB, entry *domain.LogEntry) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO inventory_log_entries (
			id, product_id, variant_id, sequence, user_id, action,
			delta, from_qty, to_qty, reason, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ProductID,
		entry.VariantID,
		entry.Sequence,
		entry.UserID,
		string(entry.Action),
		entry.Delta,
		entry.FromQty,
		entry.ToQty,
		entry.Reason,
		string(entry.Source),
		entry.CreatedAt,
	).Error
}

func (r *repo) FindRow(ctx context.Context, conn *gorm.DB, productID, variantID int64) (*domain.Row, error) {
	var row domain.Row
	err := conn.WithContext(ctx).Raw(
		`SELECT `+rowColumns+`
		 FROM inventory_rows
		 WHERE product_id = ? AND variant_id = ?`,
		productID,
		variantID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListRows(ctx context.Context, conn *gorm.DB, filter domain.ListRequest) ([]domain.Row, error) {
	var items []domain.Row
	stmt := conn.WithContext(ctx).Model(&domain.Row{})
	if filter.ProductID > 0 {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if !filter.IncludeRemoved {
		stmt = stmt.Where("removed_at IS NULL")
	}
	if filter.LowStockBelow != nil {
		stmt = stmt.Where("on_hand < ?", *filter.LowStockBelow)
	}

	stmt = option.WithAfterID(filter.AfterID).Apply(stmt)
	stmt = option.WithLimit(filter.Limit).Apply(stmt.Order("id ASC"))

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListLogEntries(ctx context.Context, conn *gorm.DB, filter domain.HistoryRequest) ([]domain.LogEntry, error) {
	var items []domain.LogEntry
	stmt := conn.WithContext(ctx).
		Model(&domain.LogEntry{}).
		Where("product_id = ? AND variant_id = ?", filter.ProductID, filter.VariantID)
	if filter.AfterSequence > 0 {
		stmt = stmt.Where("sequence > ?", filter.AfterSequence)
	}
	stmt = stmt.Order("sequence ASC")
	stmt = option.WithLimit(filter.Limit).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkRemoved(ctx context.Context, conn *gorm.DB, productID, variantID int64, at time.Time) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE inventory_rows
		 SET removed_at = ?, updated_at = ?
		 WHERE product_id = ? AND variant_id = ? AND removed_at IS NULL`,
		at,
		at,
		productID,
		variantID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
