package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/storefront/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/storefront/internal/catalog/service"
	"github.com/smallbiznis/storefront/internal/clock"
	inventorydomain "github.com/smallbiznis/storefront/internal/inventory/domain"
	inventoryrepo "github.com/smallbiznis/storefront/internal/inventory/repository"
	inventoryservice "github.com/smallbiznis/storefront/internal/inventory/service"
	"github.com/smallbiznis/storefront/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const catalogYAML = `
products:
  - name: Canvas Tote
    slug: canvas-tote
    description: Heavy cotton tote
    variants:
      - name: Natural
        sku: tote-nat
        unit_amount: 2400
        quantity: 12
      - name: Black
        sku: tote-blk
        unit_amount: 2400
  - name: Enamel Pin
    variants:
      - name: Default
        sku: pin
        unit_amount: 800
        quantity: 40
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newImporter(t *testing.T) (*Importer, inventorydomain.Service) {
	t.Helper()
	db := testutil.OpenDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	catalog := catalogservice.New(catalogservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.Node(t, 1),
		Repo:  catalogrepo.Provide(),
		Clock: clk,
	})
	inventory := inventoryservice.New(inventoryservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   testutil.Node(t, 2),
		Repo:    inventoryrepo.Provide(),
		Clock:   clk,
		Catalog: catalog,
	})
	return NewImporter(Params{Log: zap.NewNop(), Catalog: catalog, Inventory: inventory}), inventory
}

func TestLoadCatalogFile(t *testing.T) {
	file, err := LoadCatalogFile(writeCatalog(t, catalogYAML))
	require.NoError(t, err)
	require.Len(t, file.Products, 2)
	assert.Equal(t, "canvas-tote", file.Products[0].Slug)
	require.Len(t, file.Products[0].Variants, 2)
	require.NotNil(t, file.Products[0].Variants[0].Quantity)
	assert.Equal(t, int64(12), *file.Products[0].Variants[0].Quantity)
	assert.Nil(t, file.Products[0].Variants[1].Quantity)
}

func TestLoadCatalogFileMissing(t *testing.T) {
	_, err := LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	importer, inventory := newImporter(t)
	file, err := LoadCatalogFile(writeCatalog(t, catalogYAML))
	require.NoError(t, err)

	first, err := importer.Import(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, 2, first.ProductsCreated)
	assert.Equal(t, 3, first.VariantsCreated)
	assert.Equal(t, 2, first.RowsSet)

	second, err := importer.Import(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, &Result{}, second)

	products, err := importer.catalog.ListProducts(ctx, catalogdomain.ListProductsRequest{})
	require.NoError(t, err)
	require.Len(t, products, 2)

	var tote int64
	for _, p := range products {
		if p.Slug == "canvas-tote" {
			tote = p.ID
		}
	}
	require.NotZero(t, tote)
	variants, err := importer.catalog.ListVariants(ctx, tote)
	require.NoError(t, err)

	var natural int64
	for _, v := range variants {
		if v.SKU == "TOTE-NAT" {
			natural = v.ID
		}
	}
	require.NotZero(t, natural)

	row, err := inventory.Get(ctx, tote, natural)
	require.NoError(t, err)
	assert.Equal(t, int64(12), row.OnHand)

	history, err := inventory.History(ctx, inventorydomain.HistoryRequest{ProductID: tote, VariantID: natural})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, inventorydomain.SourceBulkImport, history[0].Source)
	require.NotNil(t, history[0].UserID)
	assert.Equal(t, importActor, *history[0].UserID)
}

func TestImportKeepsStockAfterSales(t *testing.T) {
	ctx := context.Background()
	importer, inventory := newImporter(t)

	qty := int64(12)
	file := &CatalogFile{Products: []ProductSeed{{
		Name:     "Sticker",
		Variants: []VariantSeed{{Name: "Default", SKU: "stk", UnitAmount: 300, Quantity: &qty}},
	}}}
	res, err := importer.Import(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsSet)

	rows, err := inventory.List(ctx, inventorydomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, err = inventory.RecordSale(ctx, inventorydomain.SaleRequest{
		Mutation: inventorydomain.Mutation{
			ProductID: rows[0].ProductID,
			VariantID: rows[0].VariantID,
			Source:    inventorydomain.SourceStripeWebhook,
		},
		Quantity: 5,
	})
	require.NoError(t, err)

	// A restart reruns the import, possibly with an edited opening count.
	qty = 20
	res, err = importer.Import(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, &Result{}, res)

	row, err := inventory.Get(ctx, rows[0].ProductID, rows[0].VariantID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.OnHand)
}
