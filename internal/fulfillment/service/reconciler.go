package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/fulfillment/domain"
	inventorydomain "github.com/smallbiznis/storefront/internal/inventory/domain"
	obslogger "github.com/smallbiznis/storefront/internal/observability/logger"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/storefront/internal/order/domain"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Cfg       config.Config
	Clock     clock.Clock
	Orders    orderdomain.Service
	Inventory inventorydomain.Service
	Catalog   catalogdomain.Service
	Retries   domain.RetryRepository
	Notifier  domain.Notifier    `optional:"true"`
	Carts     domain.CartClearer `optional:"true"`
	Metrics   *metrics.Metrics   `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	cfg       config.FulfillmentConfig
	clock     clock.Clock
	orders    orderdomain.Service
	inventory inventorydomain.Service
	catalog   catalogdomain.Service
	retries   domain.RetryRepository
	notifier  domain.Notifier
	carts     domain.CartClearer
	metrics   *metrics.Metrics
}

func New(p Params) *Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	cfg := p.Cfg.Fulfillment
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 30 * time.Second
	}
	if cfg.RetryBatchSize <= 0 {
		cfg.RetryBatchSize = 50
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 10
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("fulfillment.service"),
		genID:     p.GenID,
		cfg:       cfg,
		clock:     c,
		orders:    p.Orders,
		inventory: p.Inventory,
		catalog:   p.Catalog,
		retries:   p.Retries,
		notifier:  p.Notifier,
		carts:     p.Carts,
		metrics:   p.Metrics,
	}
}

func NewReconciler(s *Service) domain.Reconciler     { return s }
func NewRetryService(s *Service) domain.RetryService { return s }

func (s *Service) HandleCheckoutCompleted(ctx context.Context, event *paymentdomain.CheckoutCompleted) (domain.Outcome, error) {
	if event == nil || strings.TrimSpace(event.SessionID) == "" {
		return "", domain.ErrInvalidEvent
	}
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("session_id", event.SessionID),
		zap.String("event_id", event.ProviderEventID),
	)

	if !event.Paid() {
		log.Info("checkout session not paid yet", zap.String("payment_status", event.PaymentStatus))
		return domain.OutcomeIgnored, nil
	}

	res, err := s.orders.Materialize(ctx, materializeRequest(ctx, event))
	if err != nil {
		s.metrics.RecordReconciliationFailure(ctx, "order")
		log.Error("order materialization failed", zap.Error(err))
		return "", err
	}
	if !res.Created {
		log.Info("duplicate_delivery", zap.Int64("order_id", res.Order.ID))
		return domain.OutcomeDuplicate, nil
	}

	order := res.Order
	log = log.With(zap.Int64("order_id", order.ID))

	failed := 0
	for _, item := range order.Items {
		if err := s.decrement(ctx, order, item); err != nil {
			failed++
			s.metrics.RecordReconciliationFailure(ctx, "inventory")
			log.Error("stock decrement failed, queued for retry",
				zap.Int64("order_item_id", item.ID),
				zap.Int("position", item.Position),
				zap.Int64("quantity", item.Quantity),
				zap.Error(err),
			)
			s.enqueueRetry(ctx, log, order, item, err)
		}
	}

	s.notify(ctx, log, order)
	s.clearCart(ctx, log, order)

	if failed > 0 {
		log.Warn("order fulfilled partially", zap.Int("failed_items", failed))
		return domain.OutcomePartial, nil
	}
	log.Info("order fulfilled", zap.Int("items", len(order.Items)))
	return domain.OutcomeFulfilled, nil
}

// decrement records the sale of one order item. Items without a product
// reference carry nothing to stock.
func (s *Service) decrement(ctx context.Context, order *orderdomain.Order, item orderdomain.OrderItem) error {
	if item.ProductID == nil {
		s.log.Debug("order item has no product, skipping stock", zap.Int64("order_item_id", item.ID))
		return nil
	}
	return s.recordSale(ctx, order.SessionID, *item.ProductID, item.VariantID, item.Quantity, nil)
}

func (s *Service) recordSale(ctx context.Context, sessionID string, productID int64, variantID *int64, quantity int64, hook inventorydomain.TxHook) error {
	resolved, err := s.resolveVariant(ctx, productID, variantID)
	if err != nil {
		return err
	}
	reason := "order:" + sessionID
	_, err = s.inventory.RecordSale(ctx, inventorydomain.SaleRequest{
		Mutation: inventorydomain.Mutation{
			ProductID: productID,
			VariantID: resolved,
			Reason:    &reason,
			Source:    inventorydomain.SourceStripeWebhook,
			Hook:      hook,
		},
		Quantity: quantity,
	})
	return err
}

func (s *Service) resolveVariant(ctx context.Context, productID int64, variantID *int64) (int64, error) {
	if variantID != nil && *variantID > 0 {
		return *variantID, nil
	}
	if s.catalog == nil {
		return 0, errors.New("order item has no variant and no catalog is configured")
	}
	variant, err := s.catalog.EnsureDefaultVariant(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("resolve default variant: %w", err)
	}
	return variant.ID, nil
}

func (s *Service) enqueueRetry(ctx context.Context, log *zap.Logger, order *orderdomain.Order, item orderdomain.OrderItem, cause error) {
	if item.ProductID == nil {
		return
	}
	now := s.clock.Now()
	lastErr := cause.Error()
	retry := &domain.Retry{
		ID:            s.genID.Generate().Int64(),
		OrderID:       order.ID,
		OrderItemID:   item.ID,
		SessionID:     order.SessionID,
		ProductID:     *item.ProductID,
		VariantID:     item.VariantID,
		Quantity:      item.Quantity,
		Status:        domain.RetryStatusPending,
		Attempts:      1,
		LastError:     &lastErr,
		NextAttemptAt: now.Add(s.cfg.RetryInterval),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.retries.Enqueue(ctx, s.db, retry); err != nil {
		s.metrics.RecordReconciliationFailure(ctx, "retry_enqueue")
		log.Error("failed to queue stock decrement retry",
			zap.Int64("order_item_id", item.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) notify(ctx context.Context, log *zap.Logger, order *orderdomain.Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendOrderSummary(ctx, order); err != nil {
		s.metrics.RecordReconciliationFailure(ctx, "notification")
		log.Warn("order summary notification failed", zap.Error(err))
	}
}

func (s *Service) clearCart(ctx context.Context, log *zap.Logger, order *orderdomain.Order) {
	if s.carts == nil || order.CartID == nil {
		return
	}
	if err := s.carts.Clear(ctx, *order.CartID); err != nil {
		s.metrics.RecordReconciliationFailure(ctx, "cart_clear")
		log.Warn("cart clear failed", zap.Int64("cart_id", *order.CartID), zap.Error(err))
	}
}

func materializeRequest(ctx context.Context, event *paymentdomain.CheckoutCompleted) orderdomain.MaterializeRequest {
	req := orderdomain.MaterializeRequest{
		SessionID:       event.SessionID,
		PaymentIntentID: event.PaymentIntentID,
		CartID:          event.CartID,
		CustomerEmail:   event.CustomerEmail,
		CustomerName:    event.CustomerName,
		CustomerPhone:   event.CustomerPhone,
		ShipName:        event.Shipping.Name,
		ShipLine1:       event.Shipping.Line1,
		ShipLine2:       event.Shipping.Line2,
		ShipCity:        event.Shipping.City,
		ShipState:       event.Shipping.State,
		ShipPostalCode:  event.Shipping.PostalCode,
		ShipCountry:     event.Shipping.Country,
		Currency:        event.Currency,
		SubtotalAmount:  event.AmountSubtotal,
		DiscountAmount:  event.AmountDiscount,
		ShippingAmount:  event.AmountShipping,
		TaxAmount:       event.AmountTax,
		TotalAmount:     event.AmountTotal,
		Metadata: correlation.Annotate(ctx, map[string]any{
			"provider":          event.Provider,
			"provider_event_id": event.ProviderEventID,
		}),
	}
	for _, line := range event.LineItems {
		item := orderdomain.ItemInput{
			Title:       line.Title,
			Quantity:    line.Quantity,
			UnitAmount:  line.UnitAmount,
			AmountTotal: line.AmountTotal,
			VariantID:   line.VariantID,
		}
		if line.ProductID > 0 {
			productID := line.ProductID
			item.ProductID = &productID
		}
		if strings.TrimSpace(item.Title) == "" {
			item.Title = "Item"
		}
		req.Items = append(req.Items, item)
	}
	return req
}
