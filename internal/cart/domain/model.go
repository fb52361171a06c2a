package domain

import (
	"context"
	"errors"
	"time"
)

type Cart struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Cart) TableName() string { return "carts" }

type Item struct {
	ID         int64     `json:"id,string" gorm:"primaryKey"`
	CartID     int64     `json:"cart_id,string"`
	ProductID  int64     `json:"product_id,string"`
	VariantID  *int64    `json:"variant_id,omitempty,string"`
	Title      string    `json:"title"`
	Quantity   int64     `json:"quantity"`
	UnitAmount int64     `json:"unit_amount"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Item) TableName() string { return "cart_items" }

type AddItemRequest struct {
	ProductID  int64
	VariantID  *int64
	Title      string
	Quantity   int64
	UnitAmount int64
}

type Service interface {
	Items(ctx context.Context, cartID int64) ([]Item, error)
	// AddItem creates the cart on first use. Adding a product/variant already
	// in the cart raises its quantity.
	AddItem(ctx context.Context, cartID int64, req AddItemRequest) (*Item, error)
	// Clear empties the cart. Clearing an empty or unknown cart is a no-op.
	Clear(ctx context.Context, cartID int64) error
}

var (
	ErrInvalidCartID = errors.New("invalid_cart_id")
	ErrInvalidItem   = errors.New("invalid_cart_item")
	ErrCartNotFound  = errors.New("cart_not_found")
)
