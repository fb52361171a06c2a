package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// FindRowForUpdate reads the row and locks it for the rest of tx.
	FindRowForUpdate(ctx context.Context, tx *gorm.DB, productID, variantID int64) (*Row, error)
	// InsertRow is a plain insert; a concurrent creator surfaces as a
	// duplicate key error.
	InsertRow(ctx context.Context, tx *gorm.DB, row *Row) error
	// UpdateRow writes a new count guarded by the version read under lock.
	UpdateRow(ctx context.Context, tx *gorm.DB, row *Row, expectedVersion int64) (int64, error)
	InsertLogEntry(ctx context.Context, tx *gorm.DB, entry *LogEntry) error

	FindRow(ctx context.Context, db *gorm.DB, productID, variantID int64) (*Row, error)
	ListRows(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Row, error)
	ListLogEntries(ctx context.Context, db *gorm.DB, filter HistoryRequest) ([]LogEntry, error)
	MarkRemoved(ctx context.Context, db *gorm.DB, productID, variantID int64, at time.Time) (int64, error)
}
