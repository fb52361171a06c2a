package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/cart/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/pkg/db/option"
	"github.com/smallbiznis/storefront/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Carts repository.Repository[domain.Cart]
	Items repository.Repository[domain.Item]
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	carts repository.Repository[domain.Cart]
	items repository.Repository[domain.Item]
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("cart.service"),
		genID: p.GenID,
		clock: c,
		carts: p.Carts,
		items: p.Items,
	}
}

func (s *Service) Items(ctx context.Context, cartID int64) ([]domain.Item, error) {
	if cartID <= 0 {
		return nil, domain.ErrInvalidCartID
	}
	cart, err := s.carts.FindOne(ctx, &domain.Cart{ID: cartID})
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartNotFound
	}
	rows, err := s.items.Find(ctx, &domain.Item{CartID: cartID}, option.WithSortBy(option.SortBy{Column: "created_at"}))
	if err != nil {
		return nil, err
	}
	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, *row)
	}
	return items, nil
}

func (s *Service) AddItem(ctx context.Context, cartID int64, req domain.AddItemRequest) (*domain.Item, error) {
	if cartID <= 0 {
		return nil, domain.ErrInvalidCartID
	}
	if req.ProductID <= 0 || req.Quantity <= 0 || req.UnitAmount <= 0 {
		return nil, domain.ErrInvalidItem
	}
	if req.VariantID != nil && *req.VariantID <= 0 {
		return nil, domain.ErrInvalidItem
	}

	now := s.clock.Now()
	var result *domain.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.carts.WithTrx(tx)
		items := s.items.WithTrx(tx)

		created, err := carts.CreateIfAbsent(ctx, &domain.Cart{ID: cartID, CreatedAt: now, UpdatedAt: now})
		if err != nil {
			return err
		}
		if !created {
			if err := carts.Update(ctx, cartID, map[string]any{"updated_at": now}); err != nil {
				return err
			}
		}

		existing, err := items.Find(ctx, &domain.Item{CartID: cartID, ProductID: req.ProductID})
		if err != nil {
			return err
		}
		for _, item := range existing {
			if !sameVariant(item.VariantID, req.VariantID) {
				continue
			}
			item.Quantity += req.Quantity
			item.UnitAmount = req.UnitAmount
			if err := items.Update(ctx, item.ID, map[string]any{
				"quantity":    item.Quantity,
				"unit_amount": item.UnitAmount,
			}); err != nil {
				return err
			}
			result = item
			return nil
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = "Item"
		}
		item := &domain.Item{
			ID:         s.genID.Generate().Int64(),
			CartID:     cartID,
			ProductID:  req.ProductID,
			VariantID:  req.VariantID,
			Title:      title,
			Quantity:   req.Quantity,
			UnitAmount: req.UnitAmount,
			CreatedAt:  now,
		}
		if err := items.Create(ctx, item); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Clear(ctx context.Context, cartID int64) error {
	if cartID <= 0 {
		return domain.ErrInvalidCartID
	}
	removed, err := s.items.DeleteWhere(ctx, &domain.Item{CartID: cartID})
	if err != nil {
		return err
	}
	s.log.Debug("cart cleared", zap.Int64("cart_id", cartID), zap.Int64("items", removed))
	return nil
}

func sameVariant(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
