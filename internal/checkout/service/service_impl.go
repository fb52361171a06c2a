package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/smallbiznis/storefront/internal/checkout/domain"
	"github.com/smallbiznis/storefront/internal/config"
	obslogger "github.com/smallbiznis/storefront/internal/observability/logger"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	promotiondomain "github.com/smallbiznis/storefront/internal/promotion/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	Promotions promotiondomain.Service
	Provider   paymentdomain.CheckoutProvider `optional:"true"`
	Metrics    *metrics.Metrics               `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	cfg        config.Config
	promotions promotiondomain.Service
	provider   paymentdomain.CheckoutProvider
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("checkout.service"),
		cfg:        p.Cfg,
		promotions: p.Promotions,
		provider:   p.Provider,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.Request) (*domain.Session, error) {
	lines, err := domain.ParseLineItems(req.Lines)
	if err != nil {
		return nil, err
	}

	quote := s.promotions.Quote(ctx, lines)
	shipping := domain.SelectShipping(
		quote.Subtotal,
		s.cfg.Shipping.FreeShippingThreshold,
		s.cfg.Shipping.StandardRateID,
		s.cfg.Shipping.FreeRateID,
	)

	checkoutLines := make([]paymentdomain.CheckoutLine, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		if line.Quantity <= 0 {
			return nil, &domain.LineItemError{Index: line.LineIndex, Field: "quantity"}
		}
		if line.UnitAmount <= 0 {
			return nil, &domain.LineItemError{Index: line.LineIndex, Field: "unitPriceMinorUnits"}
		}
		title := line.Title
		if line.Discounted {
			title += " (50% off)"
		}
		checkoutLines = append(checkoutLines, paymentdomain.CheckoutLine{
			Title:      title,
			Quantity:   line.Quantity,
			UnitAmount: line.UnitAmount,
			ProductID:  line.ProductID,
			VariantID:  line.VariantID,
		})
	}

	log := obslogger.WithContext(ctx, s.log)
	if err := s.guardMode(); err != nil {
		s.metrics.RecordCheckoutSession(ctx, s.cfg.Payment.Provider, "mode_mismatch")
		log.Error("payment mode does not match site",
			zap.String("site_host", s.cfg.SiteHost()),
			zap.String("key_mode", string(domain.KeyMode(s.cfg.Payment.SecretKey))),
		)
		return nil, err
	}
	if s.provider == nil {
		return nil, domain.ErrProviderMissing
	}

	metadata := map[string]string{}
	if req.CartID != nil {
		metadata["cart_id"] = strconv.FormatInt(*req.CartID, 10)
	}
	if quote.PromotionID != "" {
		metadata["promotion_id"] = quote.PromotionID
	}

	siteURL := strings.TrimRight(s.cfg.Storefront.SiteURL, "/")
	session, err := s.provider.CreateCheckoutSession(ctx, paymentdomain.CheckoutSessionRequest{
		Lines:           checkoutLines,
		Currency:        s.cfg.Storefront.Currency,
		ShippingRateIDs: shipping,
		SuccessURL:      siteURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       siteURL + "/cart",
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		Metadata:        metadata,
		AutomaticTax:    s.cfg.Payment.AutomaticTax,
		IdempotencyKey:  idempotencyKey(req.CartID, checkoutLines, shipping),
	})
	if err != nil {
		s.metrics.RecordCheckoutSession(ctx, s.cfg.Payment.Provider, "rejected")
		log.Warn("checkout session rejected by provider", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderRejected, err)
	}

	s.metrics.RecordCheckoutSession(ctx, s.cfg.Payment.Provider, "created")
	log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.Int64("subtotal", quote.Subtotal),
		zap.Int64("discount", quote.Discount),
		zap.Strings("shipping_rate_ids", shipping),
	)
	return &domain.Session{
		ID:              session.ID,
		URL:             session.URL,
		Currency:        strings.ToUpper(s.cfg.Storefront.Currency),
		Subtotal:        quote.Subtotal,
		Discount:        quote.Discount,
		Total:           quote.Total,
		PromotionID:     quote.PromotionID,
		ShippingRateIDs: shipping,
	}, nil
}

// guardMode fails closed when the key mode differs from the site's mode.
func (s *Service) guardMode() error {
	expected := domain.ModeTest
	if s.cfg.IsLiveSite() {
		expected = domain.ModeLive
	}
	actual := domain.KeyMode(s.cfg.Payment.SecretKey)
	if actual != expected {
		return fmt.Errorf("%w: key is %s, site expects %s", domain.ErrModeMismatch, actual, expected)
	}
	return nil
}

// idempotencyKey is stable for one cart with the same priced lines. Anonymous
// checkouts get no key so two shoppers never share a session.
func idempotencyKey(cartID *int64, lines []paymentdomain.CheckoutLine, shipping []string) string {
	if cartID == nil {
		return ""
	}
	h := sha256.New()
	for _, line := range lines {
		variant := int64(0)
		if line.VariantID != nil {
			variant = *line.VariantID
		}
		fmt.Fprintf(h, "%d:%d:%d:%d;", line.ProductID, variant, line.Quantity, line.UnitAmount)
	}
	fmt.Fprintf(h, "%s", strings.Join(shipping, ","))
	return fmt.Sprintf("checkout:%d:%s", *cartID, hex.EncodeToString(h.Sum(nil))[:32])
}
