// Package seed imports a catalog file of products, variants and opening stock.
// Every stock count it writes is recorded in the inventory ledger with the
// bulk_import source.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/config"
	inventorydomain "github.com/smallbiznis/storefront/internal/inventory/domain"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const importActor = "catalog-import"

type CatalogFile struct {
	Products []ProductSeed `mapstructure:"products"`
}

type ProductSeed struct {
	Name        string        `mapstructure:"name"`
	Slug        string        `mapstructure:"slug"`
	Description string        `mapstructure:"description"`
	Variants    []VariantSeed `mapstructure:"variants"`
}

type VariantSeed struct {
	Name       string `mapstructure:"name"`
	SKU        string `mapstructure:"sku"`
	UnitAmount int64  `mapstructure:"unit_amount"`
	// Quantity is the on-hand count to record; nil leaves stock untouched.
	Quantity *int64 `mapstructure:"quantity"`
}

type Result struct {
	ProductsCreated int
	VariantsCreated int
	RowsSet         int
}

// LoadCatalogFile reads a YAML or JSON catalog file.
func LoadCatalogFile(path string) (*CatalogFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var file CatalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}
	return &file, nil
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Catalog   catalogdomain.Service
	Inventory inventorydomain.Service
}

type Importer struct {
	log       *zap.Logger
	catalog   catalogdomain.Service
	inventory inventorydomain.Service
}

func NewImporter(p Params) *Importer {
	return &Importer{
		log:       p.Log.Named("seed.importer"),
		catalog:   p.Catalog,
		inventory: p.Inventory,
	}
}

// Import creates missing products and variants and sets stock counts. It is
// safe to rerun: existing entries are matched by slug and SKU, and a count
// that already matches writes no ledger entry.
func (i *Importer) Import(ctx context.Context, file *CatalogFile) (*Result, error) {
	if file == nil {
		return &Result{}, nil
	}

	existing, err := i.catalog.ListProducts(ctx, catalogdomain.ListProductsRequest{})
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]catalogdomain.Product, len(existing))
	for _, p := range existing {
		bySlug[p.Slug] = p
	}

	result := &Result{}
	for _, ps := range file.Products {
		key := slug.Make(strings.TrimSpace(ps.Slug))
		if key == "" {
			key = slug.Make(strings.TrimSpace(ps.Name))
		}

		product, ok := bySlug[key]
		if !ok {
			req := catalogdomain.CreateProductRequest{Name: ps.Name, Slug: key}
			if d := strings.TrimSpace(ps.Description); d != "" {
				req.Description = &d
			}
			created, err := i.catalog.CreateProduct(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("product %q: %w", ps.Name, err)
			}
			product = *created
			bySlug[key] = product
			result.ProductsCreated++
		}

		if err := i.importVariants(ctx, product, ps.Variants, result); err != nil {
			return nil, err
		}
	}

	i.log.Info("catalog import finished",
		zap.Int("products_created", result.ProductsCreated),
		zap.Int("variants_created", result.VariantsCreated),
		zap.Int("rows_set", result.RowsSet),
	)
	return result, nil
}

func (i *Importer) importVariants(ctx context.Context, product catalogdomain.Product, seeds []VariantSeed, result *Result) error {
	variants, err := i.catalog.ListVariants(ctx, product.ID)
	if err != nil {
		return err
	}
	bySKU := make(map[string]catalogdomain.Variant, len(variants))
	for _, v := range variants {
		bySKU[v.SKU] = v
	}

	for _, vs := range seeds {
		sku := strings.ToUpper(slug.Make(strings.TrimSpace(vs.SKU)))
		if sku == "" {
			sku = strings.ToUpper(slug.Make(product.Slug + "-" + strings.TrimSpace(vs.Name)))
		}
		variant, ok := bySKU[sku]
		if !ok {
			created, err := i.catalog.AddVariant(ctx, catalogdomain.AddVariantRequest{
				ProductID:  product.ID,
				Name:       vs.Name,
				SKU:        vs.SKU,
				UnitAmount: vs.UnitAmount,
			})
			if err != nil {
				return fmt.Errorf("variant %q of %q: %w", vs.Name, product.Slug, err)
			}
			variant = *created
			bySKU[variant.SKU] = variant
			result.VariantsCreated++
		}

		if vs.Quantity == nil {
			continue
		}
		set, err := i.setQuantity(ctx, variant, *vs.Quantity)
		if err != nil {
			return fmt.Errorf("stock for %s: %w", variant.SKU, err)
		}
		if set {
			result.RowsSet++
		}
	}
	return nil
}

// setQuantity writes opening stock for variants that have no inventory row
// yet. Once a row exists its count belongs to sales and admin edits, and a
// rerun of the import must not put it back.
func (i *Importer) setQuantity(ctx context.Context, variant catalogdomain.Variant, quantity int64) (bool, error) {
	_, err := i.inventory.Get(ctx, variant.ProductID, variant.ID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, inventorydomain.ErrRowNotFound):
		return false, err
	}

	actor := importActor
	reason := "catalog import"
	_, err = i.inventory.Set(ctx, inventorydomain.SetRequest{
		Mutation: inventorydomain.Mutation{
			ProductID: variant.ProductID,
			VariantID: variant.ID,
			UserID:    &actor,
			Reason:    &reason,
			Source:    inventorydomain.SourceBulkImport,
		},
		Quantity: quantity,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

var Module = fx.Module("seed",
	fx.Provide(NewImporter),
	fx.Invoke(runOnStart),
)

func runOnStart(lc fx.Lifecycle, cfg config.Config, importer *Importer) {
	if cfg.SeedCatalogPath == "" {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			file, err := LoadCatalogFile(cfg.SeedCatalogPath)
			if err != nil {
				return err
			}
			_, err = importer.Import(ctx, file)
			return err
		},
	})
}
