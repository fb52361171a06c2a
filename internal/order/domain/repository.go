package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertIfAbsent inserts the order unless one exists for its session id.
	InsertIfAbsent(ctx context.Context, tx *gorm.DB, order *Order) (bool, error)
	InsertItems(ctx context.Context, tx *gorm.DB, items []OrderItem) error
	FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*Order, error)
	ListItems(ctx context.Context, db *gorm.DB, orderID int64) ([]OrderItem, error)
}
