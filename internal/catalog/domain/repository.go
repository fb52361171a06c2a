package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	CreateProduct(ctx context.Context, db *gorm.DB, product *Product) error
	FindProductByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	ListProducts(ctx context.Context, db *gorm.DB, filter ListProductsRequest) ([]Product, error)

	// InsertVariantIfAbsent reports false when a conflicting variant already exists.
	InsertVariantIfAbsent(ctx context.Context, db *gorm.DB, variant *Variant) (bool, error)
	FindVariant(ctx context.Context, db *gorm.DB, productID, variantID int64) (*Variant, error)
	FindDefaultVariant(ctx context.Context, db *gorm.DB, productID int64) (*Variant, error)
	ListVariants(ctx context.Context, db *gorm.DB, productID int64) ([]Variant, error)
}
