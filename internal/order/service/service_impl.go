package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/clock"
	obslogger "github.com/smallbiznis/storefront/internal/observability/logger"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   c,
		metrics: p.Metrics,
	}
}

func (s *Service) Materialize(ctx context.Context, req domain.MaterializeRequest) (*domain.MaterializeResult, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, domain.ErrInvalidSessionID
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 || strings.TrimSpace(item.Title) == "" {
			return nil, fmt.Errorf("%w: item %d", domain.ErrInvalidItem, i)
		}
	}

	metadata, err := encodeMetadata(req.Metadata)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:             s.genID.Generate().Int64(),
		SessionID:      sessionID,
		CartID:         req.CartID,
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		ShipName:       req.ShipName,
		ShipLine1:      req.ShipLine1,
		ShipLine2:      req.ShipLine2,
		ShipCity:       req.ShipCity,
		ShipState:      req.ShipState,
		ShipPostalCode: req.ShipPostalCode,
		ShipCountry:    req.ShipCountry,
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		SubtotalAmount: req.SubtotalAmount,
		DiscountAmount: req.DiscountAmount,
		ShippingAmount: req.ShippingAmount,
		TaxAmount:      req.TaxAmount,
		TotalAmount:    req.TotalAmount,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if intent := strings.TrimSpace(req.PaymentIntentID); intent != "" {
		order.PaymentIntentID = &intent
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for i, item := range req.Items {
		amount := item.AmountTotal
		if amount == 0 {
			amount = item.Quantity * item.UnitAmount
		}
		items = append(items, domain.OrderItem{
			ID:          s.genID.Generate().Int64(),
			OrderID:     order.ID,
			Position:    i,
			Title:       strings.TrimSpace(item.Title),
			Quantity:    item.Quantity,
			UnitAmount:  item.UnitAmount,
			AmountTotal: amount,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			CreatedAt:   now,
		})
	}

	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertIfAbsent(ctx, tx, order)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		created = true
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		return nil, err
	}

	log := obslogger.WithContext(ctx, s.log).With(zap.String("session_id", sessionID))
	if !created {
		s.metrics.RecordOrderOutcome(ctx, "duplicate")
		log.Info("order already exists for session")
		existing, err := s.GetBySessionID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return &domain.MaterializeResult{Order: existing, Created: false}, nil
	}

	s.metrics.RecordOrderOutcome(ctx, "created")
	log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(items)),
		zap.Int64("total_amount", order.TotalAmount),
	)
	order.Items = items
	return &domain.MaterializeResult{Order: order, Created: true}, nil
}

func (s *Service) GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrInvalidSessionID
	}
	order, err := s.repo.FindBySessionID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func encodeMetadata(metadata map[string]any) (datatypes.JSON, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
