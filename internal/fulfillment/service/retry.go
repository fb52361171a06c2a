package service

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/storefront/internal/fulfillment/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxRetryBackoff = time.Hour

func (s *Service) ListRetries(ctx context.Context, req domain.ListRetriesRequest) ([]domain.Retry, error) {
	switch req.Status {
	case "", domain.RetryStatusPending, domain.RetryStatusResolved, domain.RetryStatusDead:
	default:
		return nil, domain.ErrInvalidRetryStatus
	}
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.retries.List(ctx, s.db, req)
}

// ProcessDue replays due decrements. A retry is resolved inside the same
// transaction as its stock mutation and only while it is still pending, so
// neither a crash nor a second worker holding the same claim can decrement
// twice.
func (s *Service) ProcessDue(ctx context.Context, limit int) (*domain.RetryBatchResult, error) {
	if limit <= 0 {
		limit = s.cfg.RetryBatchSize
	}
	now := s.clock.Now()

	var due []domain.Retry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		due, err = s.retries.LockDue(ctx, tx, now, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &domain.RetryBatchResult{Claimed: len(due)}
	for _, retry := range due {
		retry := retry
		hook := func(ctx context.Context, tx *gorm.DB) error {
			return s.retries.MarkResolved(ctx, tx, retry.ID, s.clock.Now())
		}

		err := s.recordSale(ctx, retry.SessionID, retry.ProductID, retry.VariantID, retry.Quantity, hook)
		if errors.Is(err, domain.ErrRetryNotPending) {
			result.Skipped++
			s.log.Info("queued stock decrement already resolved elsewhere",
				zap.Int64("retry_id", retry.ID),
				zap.String("session_id", retry.SessionID),
			)
			continue
		}
		if err == nil {
			result.Resolved++
			s.log.Info("queued stock decrement resolved",
				zap.Int64("retry_id", retry.ID),
				zap.String("session_id", retry.SessionID),
				zap.Int("attempts", retry.Attempts+1),
			)
			continue
		}

		attempts := retry.Attempts + 1
		status := domain.RetryStatusPending
		if attempts >= s.cfg.RetryMaxAttempts {
			status = domain.RetryStatusDead
			result.Dead++
		} else {
			result.Failed++
		}
		next := now.Add(s.backoff(attempts))
		if markErr := s.retries.MarkFailed(ctx, s.db, retry.ID, status, attempts, err.Error(), next, s.clock.Now()); markErr != nil {
			return result, markErr
		}

		fields := []zap.Field{
			zap.Int64("retry_id", retry.ID),
			zap.String("session_id", retry.SessionID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		}
		if status == domain.RetryStatusDead {
			s.metrics.RecordReconciliationFailure(ctx, "retry_dead")
			s.log.Error("stock decrement retry exhausted", fields...)
			continue
		}
		s.log.Warn("stock decrement retry failed", append(fields, zap.Time("next_attempt_at", next))...)
	}
	return result, nil
}

func (s *Service) backoff(attempts int) time.Duration {
	delay := s.cfg.RetryInterval
	for i := 1; i < attempts && delay < maxRetryBackoff; i++ {
		delay *= 2
	}
	if delay > maxRetryBackoff {
		delay = maxRetryBackoff
	}
	return delay
}
