package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/promotion/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQuoteUsesConfiguredWindow(t *testing.T) {
	holder := config.NewStaticPromotionConfigHolder(config.PromotionConfig{
		Promotions: []config.PromotionRule{{
			ID:                 "spring",
			Kind:               config.PromotionKindBOGOHalf,
			Enabled:            true,
			EligibleProductIDs: []string{"10", "not-a-number", " 11 "},
			StartsAt:           "2026-03-01T00:00:00Z",
			EndsAt:             "2026-04-01T00:00:00Z",
		}},
	})
	fake := clock.NewFakeClock(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC))
	svc := New(Params{Log: zap.NewNop(), Config: holder, Clock: fake})
	lines := []domain.CartLine{
		{ProductID: 10, Quantity: 1, UnitAmount: 2000},
		{ProductID: 11, Quantity: 1, UnitAmount: 1500},
	}

	res := svc.Quote(context.Background(), lines)
	assert.Equal(t, int64(750), res.Discount)
	require.NotNil(t, svc.Active(context.Background()))

	fake.Advance(time.Hour)
	res = svc.Quote(context.Background(), lines)
	assert.Zero(t, res.Discount)
	assert.Nil(t, svc.Active(context.Background()))
}

func TestQuoteWithoutConfig(t *testing.T) {
	svc := New(Params{Log: zap.NewNop()})
	res := svc.Quote(context.Background(), []domain.CartLine{{ProductID: 1, Quantity: 2, UnitAmount: 100}})
	assert.Equal(t, int64(200), res.Total)
}
