package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Order struct {
	ID              int64   `json:"id,string" gorm:"primaryKey"`
	SessionID       string  `json:"session_id" gorm:"type:text;not null;uniqueIndex"`
	PaymentIntentID *string `json:"payment_intent_id,omitempty"`
	CartID          *int64  `json:"cart_id,omitempty,string"`

	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	ShipName       string `json:"ship_name,omitempty"`
	ShipLine1      string `json:"ship_line1,omitempty"`
	ShipLine2      string `json:"ship_line2,omitempty"`
	ShipCity       string `json:"ship_city,omitempty"`
	ShipState      string `json:"ship_state,omitempty"`
	ShipPostalCode string `json:"ship_postal_code,omitempty"`
	ShipCountry    string `json:"ship_country,omitempty"`

	Currency       string         `json:"currency"`
	SubtotalAmount int64          `json:"subtotal_amount"`
	DiscountAmount int64          `json:"discount_amount"`
	ShippingAmount int64          `json:"shipping_amount"`
	TaxAmount      int64          `json:"tax_amount"`
	TotalAmount    int64          `json:"total_amount"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Items []OrderItem `json:"items" gorm:"-"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID          int64     `json:"id,string" gorm:"primaryKey"`
	OrderID     int64     `json:"order_id,string" gorm:"not null"`
	Position    int       `json:"position" gorm:"not null"`
	Title       string    `json:"title"`
	Quantity    int64     `json:"quantity"`
	UnitAmount  int64     `json:"unit_amount"`
	AmountTotal int64     `json:"amount_total"`
	ProductID   *int64    `json:"product_id,omitempty,string"`
	VariantID   *int64    `json:"variant_id,omitempty,string"`
	CreatedAt   time.Time `json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }
