package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/fulfillment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRetries struct {
	calls  int
	limits []int
	result *domain.RetryBatchResult
	err    error
}

func (f *fakeRetries) ListRetries(context.Context, domain.ListRetriesRequest) ([]domain.Retry, error) {
	return nil, nil
}

func (f *fakeRetries) ProcessDue(_ context.Context, limit int) (*domain.RetryBatchResult, error) {
	f.calls++
	f.limits = append(f.limits, limit)
	return f.result, f.err
}

func TestRunOnceWithoutLocker(t *testing.T) {
	retries := &fakeRetries{result: &domain.RetryBatchResult{Claimed: 2, Resolved: 1, Failed: 1}}
	w := NewWorker(Params{Log: zap.NewNop(), Retries: retries, Config: Config{BatchSize: 7}})

	require.NoError(t, w.RunOnce(context.Background()))
	assert.Equal(t, 1, retries.calls)
	assert.Equal(t, []int{7}, retries.limits)
}

func TestRunOncePropagatesError(t *testing.T) {
	retries := &fakeRetries{err: errors.New("db down")}
	w := NewWorker(Params{Log: zap.NewNop(), Retries: retries})

	assert.EqualError(t, w.RunOnce(context.Background()), "db down")
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	retries := &fakeRetries{result: &domain.RetryBatchResult{}}
	w := NewWorker(Params{Log: zap.NewNop(), Retries: retries, Config: Config{PollInterval: 5 * time.Millisecond}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunForever(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return retries.calls >= 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig(config.Config{Fulfillment: config.FulfillmentConfig{RetryInterval: 10 * time.Second}})
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, DefaultConfig().BatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultConfig().LockTTL, cfg.LockTTL)
}
