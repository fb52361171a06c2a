package repository

import (
	"context"

	"github.com/smallbiznis/storefront/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, tx *gorm.DB, order *domain.Order) (bool, error) {
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).
		Create(order)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertItems(ctx context.Context, tx *gorm.DB, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, payment_intent_id, cart_id,
			customer_email, customer_name, customer_phone,
			ship_name, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country,
			currency, subtotal_amount, discount_amount, shipping_amount, tax_amount, total_amount,
			metadata, created_at, updated_at
		 FROM orders
		 WHERE session_id = ?
		 LIMIT 1`,
		sessionID,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orderID int64) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, position, title, quantity, unit_amount, amount_total,
			product_id, variant_id, created_at
		 FROM order_items
		 WHERE order_id = ?
		 ORDER BY position ASC`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
