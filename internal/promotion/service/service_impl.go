package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/promotion/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Config *config.PromotionConfigHolder
	Clock  clock.Clock
}

type Service struct {
	log    *zap.Logger
	config *config.PromotionConfigHolder
	clock  clock.Clock
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		log:    p.Log.Named("promotion.service"),
		config: p.Config,
		clock:  c,
	}
}

func (s *Service) Active(ctx context.Context) *domain.Promotion {
	return domain.Select(s.promotions(), s.clock.Now())
}

func (s *Service) Quote(ctx context.Context, lines []domain.CartLine) domain.Result {
	now := s.clock.Now()
	promo := domain.Select(s.promotions(), now)
	result := domain.Apply(lines, promo, now)
	if result.Discount > 0 {
		s.log.Debug("promotion applied",
			zap.String("promotion_id", result.PromotionID),
			zap.Int64("subtotal", result.Subtotal),
			zap.Int64("discount", result.Discount),
		)
	}
	return result
}

// promotions reads the current rules on every call so file reloads take
// effect without a restart.
func (s *Service) promotions() []domain.Promotion {
	if s.config == nil {
		return nil
	}
	rules := s.config.Get().Promotions
	out := make([]domain.Promotion, 0, len(rules))
	for _, rule := range rules {
		out = append(out, s.fromRule(rule))
	}
	return out
}

func (s *Service) fromRule(rule config.PromotionRule) domain.Promotion {
	startsAt, endsAt := rule.Window()
	promo := domain.Promotion{
		ID:       rule.ID,
		Name:     rule.Name,
		Enabled:  rule.Enabled,
		Eligible: make(map[int64]struct{}, len(rule.EligibleProductIDs)),
		StartsAt: startsAt,
		EndsAt:   endsAt,
	}
	for _, raw := range rule.EligibleProductIDs {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			s.log.Warn("ignoring invalid eligible product id",
				zap.String("promotion_id", rule.ID),
				zap.String("product_id", raw),
			)
			continue
		}
		promo.Eligible[id] = struct{}{}
	}
	return promo
}
