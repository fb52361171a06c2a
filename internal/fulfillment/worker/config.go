package worker

import (
	"time"

	"github.com/smallbiznis/storefront/internal/config"
)

// Config controls the retry worker loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	RunTimeout   time.Duration
	LockTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    50,
		PollInterval: 30 * time.Second,
		RunTimeout:   20 * time.Second,
		LockTTL:      time.Minute,
	}
}

func NewConfig(cfg config.Config) Config {
	return Config{
		BatchSize:    cfg.Fulfillment.RetryBatchSize,
		PollInterval: cfg.Fulfillment.RetryInterval,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.LockTTL <= c.RunTimeout {
		c.LockTTL = c.RunTimeout + 10*time.Second
	}
	return c
}
