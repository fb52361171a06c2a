package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/storefront/internal/payment/domain"
)

// Registry maps provider names (as they appear in webhook URLs and the
// PAYMENT_PROVIDER setting) to adapter factories.
type Registry struct {
	factories map[string]domain.AdapterFactory
}

func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	r := &Registry{factories: make(map[string]domain.AdapterFactory, len(factories))}
	for _, f := range factories {
		if f == nil {
			continue
		}
		if name := normalizeProvider(f.Provider()); name != "" {
			r.factories[name] = f
		}
	}
	return r
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Providers lists the registered provider names in sorted order.
func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Lookup(provider string) (domain.AdapterFactory, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := r.factories[normalizeProvider(provider)]
	return f, ok
}

// Build creates an adapter for provider with cfg.Provider set to the
// normalized name.
func (r *Registry) Build(provider string, cfg domain.AdapterConfig) (domain.PaymentAdapter, error) {
	f, ok := r.Lookup(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrProviderNotFound, provider)
	}
	cfg.Provider = normalizeProvider(provider)
	return f.NewAdapter(cfg)
}
