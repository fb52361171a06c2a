package repository

import (
	"context"

	"github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, slug, name, description, active, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Slug,
		product.Name,
		product.Description,
		product.Active,
		product.Metadata,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, name, description, active, metadata, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) ListProducts(ctx context.Context, db *gorm.DB, filter domain.ListProductsRequest) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertVariantIfAbsent(ctx context.Context, db *gorm.DB, variant *domain.Variant) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(variant)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindVariant(ctx context.Context, db *gorm.DB, productID, variantID int64) (*domain.Variant, error) {
	var v domain.Variant
	err := db.WithContext(ctx).Raw(
		`SELECT id, product_id, sku, name, is_default, unit_amount, created_at, updated_at
		 FROM product_variants WHERE product_id = ? AND id = ?`,
		productID,
		variantID,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) FindDefaultVariant(ctx context.Context, db *gorm.DB, productID int64) (*domain.Variant, error) {
	var v domain.Variant
	err := db.WithContext(ctx).Raw(
		`SELECT id, product_id, sku, name, is_default, unit_amount, created_at, updated_at
		 FROM product_variants WHERE product_id = ? AND is_default = ?
		 LIMIT 1`,
		productID,
		true,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) ListVariants(ctx context.Context, db *gorm.DB, productID int64) ([]domain.Variant, error) {
	var items []domain.Variant
	err := db.WithContext(ctx).Raw(
		`SELECT id, product_id, sku, name, is_default, unit_amount, created_at, updated_at
		 FROM product_variants WHERE product_id = ?
		 ORDER BY is_default DESC, created_at ASC, id ASC`,
		productID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
