package authorization

import (
	"context"
	"errors"
)

const (
	ObjectInventory   = "inventory"
	ObjectProduct     = "product"
	ObjectOrder       = "order"
	ObjectFulfillment = "fulfillment"
)

const (
	ActionView   = "view"
	ActionAdjust = "adjust"
	ActionManage = "manage"
)

const RoleAdmin = "role:admin"

type Service interface {
	// Authenticate resolves a raw admin API key to its actor.
	Authenticate(ctx context.Context, rawKey string) (string, error)
	Authorize(ctx context.Context, actor string, object string, action string) error
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidActor    = errors.New("invalid_actor")
	ErrInvalidObject   = errors.New("invalid_object")
	ErrInvalidAction   = errors.New("invalid_action")
)
