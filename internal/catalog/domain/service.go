package domain

import (
	"context"
	"errors"
)

type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, req ListProductsRequest) ([]Product, error)

	AddVariant(ctx context.Context, req AddVariantRequest) (*Variant, error)
	GetVariant(ctx context.Context, productID, variantID int64) (*Variant, error)
	ListVariants(ctx context.Context, productID int64) ([]Variant, error)
	// EnsureDefaultVariant returns the product's default variant, creating it
	// when missing. Concurrent callers observe the same variant.
	EnsureDefaultVariant(ctx context.Context, productID int64) (*Variant, error)
}

type CreateProductRequest struct {
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Description *string        `json:"description"`
	Active      *bool          `json:"active"`
	Metadata    map[string]any `json:"metadata"`
}

type ListProductsRequest struct {
	Active  *bool
	SortBy  string
	OrderBy string
}

type AddVariantRequest struct {
	ProductID  int64  `json:"-"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	UnitAmount int64  `json:"unit_amount"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidSKU        = errors.New("invalid_sku")
	ErrInvalidUnitAmount = errors.New("invalid_unit_amount")
	ErrProductNotFound   = errors.New("product_not_found")
	ErrVariantNotFound   = errors.New("variant_not_found")
	ErrDuplicateSlug     = errors.New("duplicate_slug")
	ErrDuplicateSKU      = errors.New("duplicate_sku")
)
