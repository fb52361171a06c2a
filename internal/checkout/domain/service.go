package domain

import "context"

type Service interface {
	Create(ctx context.Context, req Request) (*Session, error)
}
