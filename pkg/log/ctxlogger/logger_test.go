package ctxlogger

import (
	"context"
	"testing"

	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestForJobAddsCorrelationID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetServiceName("storefront")

	ctx, log := ForJob(context.Background(), zap.New(core), "fulfillment_retry")
	log.Info("run")

	cid := correlation.FromContext(ctx)
	require.NotEmpty(t, cid)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, cid, fields["correlation_id"])
	assert.Equal(t, "fulfillment_retry", fields["job"])
	assert.Equal(t, "storefront", fields["service_name"])
}

func TestForJobKeepsExistingCorrelationID(t *testing.T) {
	parent := correlation.WithID(context.Background(), "01HZX")
	ctx, _ := ForJob(parent, zap.NewNop(), "fulfillment_retry")
	assert.Equal(t, "01HZX", correlation.FromContext(ctx))
}

func TestWithContextSkipsMissingCorrelationID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	WithContext(context.Background(), zap.New(core)).Info("tick")

	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "correlation_id")
}
