// Package testutil opens in-memory SQLite databases carrying the storefront
// schema for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE products (
		id BIGINT PRIMARY KEY,
		slug TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		metadata TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_products_slug ON products(slug)`,
	`CREATE TABLE product_variants (
		id BIGINT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		sku TEXT NOT NULL,
		name TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		unit_amount BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_product_variants_product_sku ON product_variants(product_id, sku)`,
	`CREATE UNIQUE INDEX ux_product_variants_default ON product_variants(product_id) WHERE is_default`,
	`CREATE TABLE inventory_rows (
		id BIGINT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		variant_id BIGINT NOT NULL,
		on_hand BIGINT NOT NULL DEFAULT 0 CHECK (on_hand >= 0),
		version BIGINT NOT NULL DEFAULT 0,
		removed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_inventory_rows_sku ON inventory_rows(product_id, variant_id)`,
	`CREATE TABLE inventory_log_entries (
		id BIGINT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		variant_id BIGINT NOT NULL,
		sequence BIGINT NOT NULL,
		user_id TEXT,
		action TEXT NOT NULL,
		delta BIGINT NOT NULL,
		from_qty BIGINT NOT NULL,
		to_qty BIGINT NOT NULL,
		reason TEXT,
		source TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		CHECK (to_qty - from_qty = delta)
	)`,
	`CREATE UNIQUE INDEX ux_inventory_log_entries_sequence ON inventory_log_entries(product_id, variant_id, sequence)`,
	`CREATE TABLE orders (
		id BIGINT PRIMARY KEY,
		session_id TEXT NOT NULL,
		payment_intent_id TEXT,
		cart_id BIGINT,
		customer_email TEXT,
		customer_name TEXT,
		customer_phone TEXT,
		ship_name TEXT,
		ship_line1 TEXT,
		ship_line2 TEXT,
		ship_city TEXT,
		ship_state TEXT,
		ship_postal_code TEXT,
		ship_country TEXT,
		currency TEXT NOT NULL,
		subtotal_amount BIGINT NOT NULL DEFAULT 0,
		discount_amount BIGINT NOT NULL DEFAULT 0,
		shipping_amount BIGINT NOT NULL DEFAULT 0,
		tax_amount BIGINT NOT NULL DEFAULT 0,
		total_amount BIGINT NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_orders_session_id ON orders(session_id)`,
	`CREATE TABLE order_items (
		id BIGINT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		position INT NOT NULL,
		title TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		unit_amount BIGINT NOT NULL,
		amount_total BIGINT NOT NULL,
		product_id BIGINT,
		variant_id BIGINT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_order_items_position ON order_items(order_id, position)`,
	`CREATE TABLE carts (
		id BIGINT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE cart_items (
		id BIGINT PRIMARY KEY,
		cart_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		variant_id BIGINT,
		title TEXT NOT NULL,
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		unit_amount BIGINT NOT NULL CHECK (unit_amount > 0),
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE payment_events (
		id BIGINT PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		metadata TEXT,
		received_at DATETIME NOT NULL,
		processed_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_payment_events_provider_event ON payment_events(provider, provider_event_id)`,
	`CREATE TABLE fulfillment_retries (
		id BIGINT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		order_item_id BIGINT NOT NULL,
		session_id TEXT NOT NULL,
		product_id BIGINT NOT NULL,
		variant_id BIGINT,
		quantity BIGINT NOT NULL,
		status TEXT NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		next_attempt_at DATETIME NOT NULL,
		resolved_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_fulfillment_retries_item ON fulfillment_retries(order_item_id)`,
}

// OpenDB returns a fresh in-memory database with the full schema applied.
// The pool is pinned to one connection so concurrent writers serialize the
// way row locks serialize them on Postgres.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

// Node returns a snowflake node for id generation in tests.
func Node(t *testing.T, n int64) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(n)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

// AssertCount fails the test when the scalar count query does not match.
func AssertCount(t *testing.T, db *gorm.DB, query string, expected int64, args ...any) {
	t.Helper()
	var count int64
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d rows for %q, got %d", expected, query, count)
	}
}
