package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: c,
	}
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	productSlug := slug.Make(strings.TrimSpace(req.Slug))
	if productSlug == "" {
		productSlug = slug.Make(name)
	}
	if productSlug == "" {
		return nil, domain.ErrInvalidName
	}

	description := strings.TrimSpace(ptrToString(req.Description))
	var descriptionPtr *string
	if description != "" {
		descriptionPtr = &description
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	p := &domain.Product{
		ID:          s.genID.Generate().Int64(),
		Slug:        productSlug,
		Name:        name,
		Description: descriptionPtr,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Metadata != nil {
		p.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if err := s.repo.CreateProduct(ctx, s.db, p); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSlug
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindProductByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrProductNotFound
	}
	return item, nil
}

func (s *Service) ListProducts(ctx context.Context, req domain.ListProductsRequest) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, s.db, domain.ListProductsRequest{
		Active:  req.Active,
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	})
}

func (s *Service) AddVariant(ctx context.Context, req domain.AddVariantRequest) (*domain.Variant, error) {
	product, err := s.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.UnitAmount < 0 {
		return nil, domain.ErrInvalidUnitAmount
	}

	sku := strings.ToUpper(slug.Make(strings.TrimSpace(req.SKU)))
	if sku == "" {
		sku = strings.ToUpper(slug.Make(product.Slug + "-" + name))
	}
	if sku == "" {
		return nil, domain.ErrInvalidSKU
	}

	now := s.clock.Now()
	variant := &domain.Variant{
		ID:         s.genID.Generate().Int64(),
		ProductID:  product.ID,
		SKU:        sku,
		Name:       name,
		UnitAmount: req.UnitAmount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	inserted, err := s.repo.InsertVariantIfAbsent(ctx, s.db, variant)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, domain.ErrDuplicateSKU
	}

	s.log.Info("variant added",
		zap.Int64("product_id", product.ID),
		zap.Int64("variant_id", variant.ID),
		zap.String("sku", variant.SKU),
	)
	return variant, nil
}

func (s *Service) GetVariant(ctx context.Context, productID, variantID int64) (*domain.Variant, error) {
	if productID <= 0 || variantID <= 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindVariant(ctx, s.db, productID, variantID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrVariantNotFound
	}
	return item, nil
}

func (s *Service) ListVariants(ctx context.Context, productID int64) ([]domain.Variant, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListVariants(ctx, s.db, productID)
}

func (s *Service) EnsureDefaultVariant(ctx context.Context, productID int64) (*domain.Variant, error) {
	existing, err := s.repo.FindDefaultVariant(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	candidate := &domain.Variant{
		ID:        s.genID.Generate().Int64(),
		ProductID: product.ID,
		SKU:       strings.ToUpper(slug.Make(product.Slug + "-default")),
		Name:      domain.DefaultVariantName,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inserted, err := s.repo.InsertVariantIfAbsent(ctx, s.db, candidate)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.log.Info("default variant created",
			zap.Int64("product_id", product.ID),
			zap.Int64("variant_id", candidate.ID),
		)
		return candidate, nil
	}

	// Lost the race: another writer created it first.
	winner, err := s.repo.FindDefaultVariant(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("default variant for product %d missing after conflict", productID)
	}
	return winner, nil
}

func ptrToString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
