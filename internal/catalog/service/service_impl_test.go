package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/catalog/repository"
	"github.com/smallbiznis/storefront/internal/catalog/service"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (domain.Service, func(query string, expected int64, args ...any)) {
	t.Helper()
	db := testutil.OpenDB(t)
	svc := service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.Node(t, 1),
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	return svc, func(query string, expected int64, args ...any) {
		testutil.AssertCount(t, db, query, expected, args...)
	}
}

func TestCreateProductDerivesSlug(t *testing.T) {
	svc, _ := newService(t)

	product, err := svc.CreateProduct(context.Background(), domain.CreateProductRequest{Name: "Linen Tote Bag"})
	require.NoError(t, err)
	assert.Equal(t, "linen-tote-bag", product.Slug)
	assert.True(t, product.Active)

	_, err = svc.CreateProduct(context.Background(), domain.CreateProductRequest{Name: "Linen tote bag"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)

	_, err = svc.CreateProduct(context.Background(), domain.CreateProductRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestEnsureDefaultVariantIsIdempotent(t *testing.T) {
	svc, assertCount := newService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Candle"})
	require.NoError(t, err)

	const callers = 8
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := svc.EnsureDefaultVariant(ctx, product.ID)
			if assert.NoError(t, err) {
				ids[i] = v.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assertCount("SELECT COUNT(1) FROM product_variants WHERE product_id = ?", 1, product.ID)

	v, err := svc.EnsureDefaultVariant(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, v.IsDefault)
	assert.Equal(t, "CANDLE-DEFAULT", v.SKU)
}

func TestEnsureDefaultVariantUnknownProduct(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.EnsureDefaultVariant(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAddVariant(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, domain.CreateProductRequest{Name: "Mug"})
	require.NoError(t, err)

	variant, err := svc.AddVariant(ctx, domain.AddVariantRequest{ProductID: product.ID, Name: "Large Blue", UnitAmount: 1800})
	require.NoError(t, err)
	assert.Equal(t, "MUG-LARGE-BLUE", variant.SKU)
	assert.False(t, variant.IsDefault)

	_, err = svc.AddVariant(ctx, domain.AddVariantRequest{ProductID: product.ID, Name: "Large blue"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)

	_, err = svc.AddVariant(ctx, domain.AddVariantRequest{ProductID: product.ID + 1, Name: "Small"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	got, err := svc.GetVariant(ctx, product.ID, variant.ID)
	require.NoError(t, err)
	assert.Equal(t, variant.ID, got.ID)

	variants, err := svc.ListVariants(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, variants, 1)
}
