package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type RetryRepository interface {
	// Enqueue inserts the retry unless one exists for the same order item.
	Enqueue(ctx context.Context, db *gorm.DB, retry *Retry) (bool, error)
	// LockDue locks pending retries whose next attempt is due, skipping rows
	// locked by another worker where the database supports it.
	LockDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]Retry, error)
	MarkResolved(ctx context.Context, tx *gorm.DB, id int64, at time.Time) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id int64, status RetryStatus, attempts int, lastErr string, next time.Time, at time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListRetriesRequest) ([]Retry, error)
}
