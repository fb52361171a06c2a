package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	fulfillmentdomain "github.com/smallbiznis/storefront/internal/fulfillment/domain"
	obslogger "github.com/smallbiznis/storefront/internal/observability/logger"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/storefront/internal/payment/domain"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Clock      clock.Clock
	Adapters   *adapters.Registry
	Repo       paymentdomain.Repository
	Reconciler fulfillmentdomain.Reconciler
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.PaymentConfig
	clock      clock.Clock
	adapters   *adapters.Registry
	repo       paymentdomain.Repository
	reconciler fulfillmentdomain.Reconciler
	metrics    *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		genID:      p.GenID,
		cfg:        p.Cfg.Payment,
		clock:      c,
		adapters:   p.Adapters,
		repo:       p.Repo,
		reconciler: p.Reconciler,
		metrics:    p.Metrics,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*paymentdomain.IngestResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, paymentdomain.ErrInvalidProvider
	}
	if _, ok := s.adapters.Lookup(provider); !ok {
		return nil, paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return nil, paymentdomain.ErrInvalidPayload
	}
	// One delivery, its stored event and the order it produces share an id.
	ctx, cid := correlation.Ensure(ctx)

	adapterCfg := adapters.AdapterConfigFrom(s.cfg)
	adapterCfg.Now = s.clock.Now
	adapter, err := s.adapters.Build(provider, adapterCfg)
	if err != nil {
		return nil, err
	}

	log := obslogger.WithContext(ctx, s.log).With(zap.String("provider", provider), zap.String("correlation_id", cid))
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		log.Warn("payment webhook rejected", zap.Error(err))
		return nil, err
	}

	event, err := adapter.ParseCheckoutCompleted(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return &paymentdomain.IngestResult{Outcome: paymentdomain.IngestOutcomeIgnored}, nil
		}
		return nil, err
	}
	event.Provider = provider
	if event.RawPayload == nil {
		event.RawPayload = payload
	}
	log = log.With(zap.String("event_id", event.ProviderEventID), zap.String("session_id", event.SessionID))
	s.metrics.RecordPaymentEvent(ctx, provider, event.EventType)

	record, err := s.record(ctx, event)
	if err != nil {
		return nil, err
	}
	if record.ProcessedAt != nil {
		log.Info("duplicate_delivery", zap.Int64("payment_event_id", record.ID))
		return &paymentdomain.IngestResult{
			EventID: event.ProviderEventID,
			Outcome: paymentdomain.IngestOutcomeDuplicate,
		}, nil
	}

	outcome, err := s.reconciler.HandleCheckoutCompleted(ctx, event)
	if err != nil {
		log.Error("checkout reconciliation failed", zap.Error(err))
		return nil, err
	}

	// Pending sessions stay unprocessed so the async success event is not
	// mistaken for a duplicate.
	if outcome != fulfillmentdomain.OutcomeIgnored {
		if err := s.repo.MarkProcessed(ctx, s.db, record.ID, s.clock.Now()); err != nil {
			log.Warn("failed to mark payment event processed", zap.Error(err))
		}
	}

	log.Info("payment webhook processed", zap.String("outcome", string(outcome)))
	return &paymentdomain.IngestResult{
		EventID: event.ProviderEventID,
		Outcome: string(outcome),
	}, nil
}

// record stores the delivery once per provider event id and returns the
// stored row, which may come from an earlier delivery.
func (s *Service) record(ctx context.Context, event *paymentdomain.CheckoutCompleted) (*paymentdomain.EventRecord, error) {
	if strings.TrimSpace(event.ProviderEventID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	metadata, err := json.Marshal(correlation.Annotate(ctx, map[string]any{
		"session_id": event.SessionID,
	}))
	if err != nil {
		return nil, err
	}

	record := &paymentdomain.EventRecord{
		ID:              s.genID.Generate().Int64(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.EventType,
		Payload:         datatypes.JSON(event.RawPayload),
		Metadata:        datatypes.JSON(metadata),
		ReceivedAt:      s.clock.Now(),
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return nil, err
	}
	if inserted {
		return record, nil
	}

	existing, err := s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New("payment_event_missing_after_conflict")
	}
	return existing, nil
}
