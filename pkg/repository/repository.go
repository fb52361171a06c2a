package repository

import (
	"context"

	"github.com/smallbiznis/storefront/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm store for tables addressed by an int64 "id"
// column. Zero fields of a query struct are ignored, following gorm's struct
// conditions, so a query of &Item{CartID: 7} matches every item in cart 7.
type Repository[T any] interface {
	// WithTrx returns a copy bound to tx.
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	// CreateIfAbsent reports whether a row was inserted. An existing row with
	// the same id is left untouched.
	CreateIfAbsent(ctx context.Context, resource *T) (bool, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
	DeleteWhere(ctx context.Context, query *T) (int64, error)
}
