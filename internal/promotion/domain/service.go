package domain

import "context"

type Service interface {
	// Active returns the promotion that applies right now, if any.
	Active(ctx context.Context) *Promotion
	Quote(ctx context.Context, lines []CartLine) Result
}
