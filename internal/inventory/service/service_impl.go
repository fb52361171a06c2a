package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/inventory/domain"
	obslogger "github.com/smallbiznis/storefront/internal/observability/logger"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errRowVanished marks a transaction that lost its row between read and
// write. It and database deadlock victims retry the whole transaction once.
var errRowVanished = errors.New("inventory_row_vanished")

const maxMutationAttempts = 2

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Catalog catalogdomain.Service `optional:"true"`
	Metrics *metrics.Metrics      `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	catalog catalogdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("inventory.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   c,
		catalog: p.Catalog,
		metrics: p.Metrics,
	}
}

func (s *Service) Set(ctx context.Context, req domain.SetRequest) (*domain.MutationResult, error) {
	if req.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	target := req.Quantity
	return s.mutate(ctx, req.Mutation, domain.ActionUpsert, func(int64) int64 {
		return target
	})
}

func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (*domain.MutationResult, error) {
	if req.Delta == 0 {
		return nil, domain.ErrInvalidDelta
	}
	delta := req.Delta
	return s.mutate(ctx, req.Mutation, domain.ActionAdjust, func(from int64) int64 {
		return from + delta
	})
}

func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (*domain.MutationResult, error) {
	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	quantity := req.Quantity
	return s.mutate(ctx, req.Mutation, domain.ActionSale, func(from int64) int64 {
		return from - quantity
	})
}

func (s *Service) mutate(ctx context.Context, m domain.Mutation, action domain.Action, target func(from int64) int64) (*domain.MutationResult, error) {
	if m.ProductID <= 0 || m.VariantID <= 0 {
		return nil, domain.ErrInvalidID
	}
	if !m.Source.Valid() {
		return nil, domain.ErrInvalidSource
	}
	if err := s.ensureVariant(ctx, m.ProductID, m.VariantID); err != nil {
		return nil, err
	}

	log := obslogger.WithSKU(obslogger.WithContext(ctx, s.log), m.ProductID, m.VariantID).With(
		zap.String("action", string(action)),
		zap.String("source", string(m.Source)),
	)

	for attempt := 1; attempt <= maxMutationAttempts; attempt++ {
		result, err := s.mutateOnce(ctx, m, action, target)
		switch {
		case err == nil:
			s.metrics.RecordInventoryMutation(ctx, string(action), string(m.Source))
			log.Info("inventory mutated",
				zap.Int64("from_qty", result.Entry.FromQty),
				zap.Int64("to_qty", result.Entry.ToQty),
				zap.Int64("sequence", result.Entry.Sequence),
			)
			return result, nil
		case errors.Is(err, errRowVanished):
			log.Warn("inventory row vanished mid-transaction", zap.Int("attempt", attempt))
			continue
		case db.IsTxConflictErr(err):
			log.Warn("inventory transaction aborted by the database, retrying", zap.Int("attempt", attempt), zap.Error(err))
			continue
		case errors.Is(err, domain.ErrNegativeStock):
			s.metrics.RecordInventoryRejection(ctx, string(action), "negative_stock")
			log.Warn("inventory mutation rejected", zap.Error(err))
			return nil, err
		case db.IsCheckViolationErr(err):
			s.metrics.RecordInventoryRejection(ctx, string(action), "negative_stock")
			log.Warn("inventory mutation rejected by constraint", zap.Error(err))
			return nil, domain.ErrNegativeStock
		default:
			return nil, err
		}
	}

	s.metrics.RecordInventoryRejection(ctx, string(action), "transient")
	log.Error("inventory mutation failed after retry")
	return nil, domain.ErrTransient
}

func (s *Service) mutateOnce(ctx context.Context, m domain.Mutation, action domain.Action, target func(from int64) int64) (*domain.MutationResult, error) {
	var result domain.MutationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.lockOrCreateRow(ctx, tx, m.ProductID, m.VariantID)
		if err != nil {
			return err
		}

		from := row.OnHand
		to := target(from)
		if to < 0 {
			return fmt.Errorf("%w: %d on hand, result would be %d", domain.ErrNegativeStock, from, to)
		}

		now := s.clock.Now()
		expectedVersion := row.Version
		updated := *row
		updated.OnHand = to
		updated.Version = expectedVersion + 1
		updated.RemovedAt = nil
		updated.UpdatedAt = now

		affected, err := s.repo.UpdateRow(ctx, tx, &updated, expectedVersion)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errRowVanished
		}

		entry := domain.LogEntry{
			ID:        s.genID.Generate().Int64(),
			ProductID: m.ProductID,
			VariantID: m.VariantID,
			Sequence:  updated.Version,
			UserID:    m.UserID,
			Action:    action,
			Delta:     to - from,
			FromQty:   from,
			ToQty:     to,
			Reason:    m.Reason,
			Source:    m.Source,
			CreatedAt: now,
		}
		if err := s.repo.InsertLogEntry(ctx, tx, &entry); err != nil {
			return err
		}

		if m.Hook != nil {
			if err := m.Hook(ctx, tx); err != nil {
				return err
			}
		}

		result = domain.MutationResult{Row: updated, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// lockOrCreateRow returns the locked row, creating it at zero when absent.
// The insert runs in a savepoint so a concurrent creator's uniqueness
// violation can be rolled back without aborting tx.
func (s *Service) lockOrCreateRow(ctx context.Context, tx *gorm.DB, productID, variantID int64) (*domain.Row, error) {
	row, err := s.repo.FindRowForUpdate(ctx, tx, productID, variantID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}

	now := s.clock.Now()
	candidate := &domain.Row{
		ID:        s.genID.Generate().Int64(),
		ProductID: productID,
		VariantID: variantID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = tx.Transaction(func(sp *gorm.DB) error {
		return s.repo.InsertRow(ctx, sp, candidate)
	})
	if err == nil {
		return candidate, nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return nil, err
	}

	s.log.Debug("inventory row created concurrently, re-reading",
		zap.Int64("product_id", productID),
		zap.Int64("variant_id", variantID),
	)
	row, err = s.repo.FindRowForUpdate(ctx, tx, productID, variantID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errRowVanished
	}
	return row, nil
}

func (s *Service) ensureVariant(ctx context.Context, productID, variantID int64) error {
	if s.catalog == nil {
		return nil
	}
	_, err := s.catalog.GetVariant(ctx, productID, variantID)
	return err
}

func (s *Service) Get(ctx context.Context, productID, variantID int64) (*domain.Row, error) {
	if productID <= 0 || variantID <= 0 {
		return nil, domain.ErrInvalidID
	}
	row, err := s.repo.FindRow(ctx, s.db, productID, variantID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrRowNotFound
	}
	return row, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Row, error) {
	if req.Limit <= 0 || req.Limit > 250 {
		req.Limit = 50
	}
	return s.repo.ListRows(ctx, s.db, req)
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) ([]domain.LogEntry, error) {
	if req.ProductID <= 0 || req.VariantID <= 0 {
		return nil, domain.ErrInvalidID
	}
	if req.Limit < 0 {
		req.Limit = 0
	}
	return s.repo.ListLogEntries(ctx, s.db, req)
}

// Verify replays the full ledger of a row and compares it with the stored count.
func (s *Service) Verify(ctx context.Context, productID, variantID int64) (*domain.VerifyResult, error) {
	row, err := s.Get(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListLogEntries(ctx, s.db, domain.HistoryRequest{ProductID: productID, VariantID: variantID})
	if err != nil {
		return nil, err
	}

	result := &domain.VerifyResult{
		ProductID: productID,
		VariantID: variantID,
		OnHand:    row.OnHand,
		Entries:   len(entries),
	}
	replayed, err := domain.Replay(entries)
	if err != nil {
		s.log.Error("inventory ledger is broken",
			zap.Int64("product_id", productID),
			zap.Int64("variant_id", variantID),
			zap.Error(err),
		)
		return result, nil
	}
	result.Replayed = replayed
	result.Consistent = replayed == row.OnHand
	if !result.Consistent {
		s.log.Error("inventory ledger does not match on-hand count",
			zap.Int64("product_id", productID),
			zap.Int64("variant_id", variantID),
			zap.Int64("on_hand", row.OnHand),
			zap.Int64("replayed", replayed),
		)
	}
	return result, nil
}

// AddVariant creates a catalog variant and optionally seeds its count.
func (s *Service) AddVariant(ctx context.Context, req domain.AddVariantRequest) (*domain.AddVariantResult, error) {
	if s.catalog == nil {
		return nil, errors.New("catalog service is not configured")
	}
	if req.InitialQuantity != nil && *req.InitialQuantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	variant, err := s.catalog.AddVariant(ctx, catalogdomain.AddVariantRequest{
		ProductID:  req.ProductID,
		Name:       req.Name,
		SKU:        req.SKU,
		UnitAmount: req.UnitAmount,
	})
	if err != nil {
		return nil, err
	}

	result := &domain.AddVariantResult{VariantID: variant.ID, SKU: variant.SKU}
	if req.InitialQuantity == nil {
		return result, nil
	}

	reason := "variant created"
	mutation, err := s.Set(ctx, domain.SetRequest{
		Mutation: domain.Mutation{
			ProductID: variant.ProductID,
			VariantID: variant.ID,
			UserID:    req.UserID,
			Reason:    &reason,
			Source:    domain.SourceAdminUI,
		},
		Quantity: *req.InitialQuantity,
	})
	if err != nil {
		return nil, err
	}
	result.Row = &mutation.Row
	return result, nil
}

// RemoveRow hides a row from listings. The row and its ledger are kept; the
// next mutation restores it.
func (s *Service) RemoveRow(ctx context.Context, productID, variantID int64) error {
	if productID <= 0 || variantID <= 0 {
		return domain.ErrInvalidID
	}
	affected, err := s.repo.MarkRemoved(ctx, s.db, productID, variantID, s.clock.Now())
	if err != nil {
		return err
	}
	if affected > 0 {
		s.log.Info("inventory row removed",
			zap.Int64("product_id", productID),
			zap.Int64("variant_id", variantID),
		)
		return nil
	}

	row, err := s.repo.FindRow(ctx, s.db, productID, variantID)
	if err != nil {
		return err
	}
	if row == nil {
		return domain.ErrRowNotFound
	}
	return nil
}
