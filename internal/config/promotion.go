package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PromotionRule is one configured promotion as read from promotions.yml.
type PromotionRule struct {
	ID                 string   `mapstructure:"id"`
	Name               string   `mapstructure:"name"`
	Kind               string   `mapstructure:"kind"`
	Enabled            bool     `mapstructure:"enabled"`
	EligibleProductIDs []string `mapstructure:"eligible_product_ids"`
	StartsAt           string   `mapstructure:"starts_at"`
	EndsAt             string   `mapstructure:"ends_at"`
}

type PromotionConfig struct {
	Promotions []PromotionRule `mapstructure:"promotions"`
}

const PromotionKindBOGOHalf = "bogo_half"

type PromotionConfigHolder struct {
	current atomic.Value // holds PromotionConfig
}

// NewStaticPromotionConfigHolder wraps a fixed config, used by tests and when
// no promotions file exists.
func NewStaticPromotionConfigHolder(cfg PromotionConfig) *PromotionConfigHolder {
	holder := &PromotionConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPromotionConfigHolder(cfg Config, log *zap.Logger) (*PromotionConfigHolder, error) {
	log = log.Named("config.promotions")
	v := viper.New()

	if cfg.PromotionConfigPath != "" {
		v.SetConfigFile(cfg.PromotionConfigPath)
	} else {
		v.SetConfigName("promotions")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/storefront")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("no promotions file found, running without promotions")
		return NewStaticPromotionConfigHolder(PromotionConfig{}), nil
	}

	var promotions PromotionConfig
	if err := v.Unmarshal(&promotions); err != nil {
		return nil, err
	}
	if err := ValidatePromotionConfig(promotions); err != nil {
		return nil, err
	}

	holder := NewStaticPromotionConfigHolder(promotions)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PromotionConfig
		if err := v.Unmarshal(&updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := ValidatePromotionConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", filepath.Base(e.Name)), zap.Int("promotions", len(updated.Promotions)))
	})

	return holder, nil
}

func (h *PromotionConfigHolder) Get() PromotionConfig {
	return h.current.Load().(PromotionConfig)
}

func ValidatePromotionConfig(cfg PromotionConfig) error {
	seen := map[string]struct{}{}
	for i, rule := range cfg.Promotions {
		id := strings.TrimSpace(rule.ID)
		if id == "" {
			return fmt.Errorf("promotions[%d].id cannot be empty", i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("promotions[%d].id %q is duplicated", i, id)
		}
		seen[id] = struct{}{}

		if kind := strings.TrimSpace(rule.Kind); kind != "" && kind != PromotionKindBOGOHalf {
			return fmt.Errorf("promotions[%d].kind %q is not supported", i, kind)
		}
		startsAt, err := parseOptionalTime(rule.StartsAt)
		if err != nil {
			return fmt.Errorf("promotions[%d].starts_at: %w", i, err)
		}
		endsAt, err := parseOptionalTime(rule.EndsAt)
		if err != nil {
			return fmt.Errorf("promotions[%d].ends_at: %w", i, err)
		}
		if !startsAt.IsZero() && !endsAt.IsZero() && !endsAt.After(startsAt) {
			return fmt.Errorf("promotions[%d] ends before it starts", i)
		}
	}
	return nil
}

// Window returns the parsed activity window. Zero values mean unbounded.
func (r PromotionRule) Window() (time.Time, time.Time) {
	startsAt, _ := parseOptionalTime(r.StartsAt)
	endsAt, _ := parseOptionalTime(r.EndsAt)
	return startsAt, endsAt
}

func parseOptionalTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
