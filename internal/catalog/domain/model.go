package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Product struct {
	ID          int64             `json:"id" gorm:"primaryKey"`
	Slug        string            `json:"slug" gorm:"type:text;not null;uniqueIndex:ux_products_slug"`
	Name        string            `json:"name" gorm:"type:text;not null"`
	Description *string           `json:"description,omitempty" gorm:"type:text"`
	Active      bool              `json:"active" gorm:"not null;default:true"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// Variant is a purchasable configuration of a product. Every product that is
// ever sold has at least one, the default variant, created on demand.
type Variant struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	ProductID  int64     `json:"product_id" gorm:"not null;uniqueIndex:ux_product_variants_product_sku,priority:1"`
	SKU        string    `json:"sku" gorm:"column:sku;type:text;not null;uniqueIndex:ux_product_variants_product_sku,priority:2"`
	Name       string    `json:"name" gorm:"type:text;not null"`
	IsDefault  bool      `json:"is_default" gorm:"not null;default:false"`
	UnitAmount int64     `json:"unit_amount" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (Variant) TableName() string { return "product_variants" }

const DefaultVariantName = "Default"
