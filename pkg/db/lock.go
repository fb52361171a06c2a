package db

import (
	"gorm.io/gorm"
)

// ForUpdateSuffix locks the selected row for the rest of the transaction.
// SQLite has no row locks and serializes writers at the database level, so
// the suffix is omitted there.
func ForUpdateSuffix(tx *gorm.DB) string {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}

// SkipLockedSuffix locks rows for a worker batch without blocking on rows
// claimed by another worker.
func SkipLockedSuffix(tx *gorm.DB) string {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE SKIP LOCKED"
}
