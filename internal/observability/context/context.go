// Package context carries request-scoped identifiers shared by logging and
// tracing.
package context

import (
	stdcontext "context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithActor records who triggered the work, e.g. "admin:ops" or
// "webhook:stripe". Storefront shoppers are anonymous and carry no actor.
func WithActor(ctx stdcontext.Context, actor string) stdcontext.Context {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(actorKey).(string)
	return value
}
