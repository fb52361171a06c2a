package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	// IngestWebhook verifies, records and dispatches one provider delivery.
	// A nil error means the delivery must not be retried.
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*IngestResult, error)
}

type IngestResult struct {
	EventID string `json:"event_id,omitempty"`
	Outcome string `json:"outcome"`
}

const (
	IngestOutcomeIgnored   = "ignored"
	IngestOutcomeDuplicate = "duplicate"
)

type Repository interface {
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id int64, processedAt time.Time) error
}

var (
	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_provider_config")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrProviderRequest  = errors.New("provider_request_failed")
)
