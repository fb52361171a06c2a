package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GeneratePackingSlip(ctx context.Context, data PackingSlipData) (io.Reader, error)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}
