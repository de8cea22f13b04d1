package backend

import (
	"fmt"
	"time"

	"subtrans/internal/domain"
	"subtrans/internal/domain/ports"
)

// factory builds one named backend from its provider config. Grounded
// on original_source/lib/translators.py's get_translator(service_name,
// config) factory-dict and the teacher's conditional
// engines[name] = newEngine(...) registration-by-config-presence
// pattern (other_examples/a2d31b86_..._translate-service.go.go).
type factory func(cfg domain.ProviderConfig) (ports.TranslationBackend, error)

var factories = map[string]factory{
	"deepl": func(cfg domain.ProviderConfig) (ports.TranslationBackend, error) {
		return NewDeepL(cfg)
	},
	"libretranslate": func(cfg domain.ProviderConfig) (ports.TranslationBackend, error) {
		return NewLibreTranslate(cfg)
	},
	"mymemory": func(cfg domain.ProviderConfig) (ports.TranslationBackend, error) {
		return NewMyMemory(cfg)
	},
}

// Registry holds the set of configured backends for one run, keyed by
// engine name, and resolves a fallback chain of names (spec §4.6/§7)
// into backend instances in order.
type Registry struct {
	backends map[string]ports.TranslationBackend
}

// NewRegistry builds a Registry from a name->config map. A name not
// present in factories is skipped rather than treated as fatal,
// matching the teacher's "register what we have a key for" style;
// an unregistered name referenced in a fallback chain is dropped by
// Chain.
func NewRegistry(configs map[string]domain.ProviderConfig) (*Registry, error) {
	reg := &Registry{backends: make(map[string]ports.TranslationBackend, len(configs))}
	for name, cfg := range configs {
		build, ok := factories[name]
		if !ok {
			continue
		}
		backend, err := build(cfg)
		if err != nil {
			return nil, fmt.Errorf("configuring backend %q: %w", name, err)
		}
		budget := NewBudget(cfg.RequestsPerPeriod, cfg.CharsPerPeriod, time.Duration(cfg.PeriodSeconds)*time.Second)
		reg.backends[name] = WithBudget(backend, budget)
	}
	return reg, nil
}

// Get returns the named backend, or false if it isn't configured.
func (r *Registry) Get(name string) (ports.TranslationBackend, bool) {
	b, ok := r.backends[name]
	return b, ok
}

// Chain resolves an ordered fallback list (spec §4.6's primary-then-
// fallback chain) into backend instances, dropping names that aren't
// configured rather than failing outright — an operator who lists a
// fallback they never configured gets a shorter chain, not an error.
func (r *Registry) Chain(names []string) []ports.TranslationBackend {
	chain := make([]ports.TranslationBackend, 0, len(names))
	for _, name := range names {
		if b, ok := r.backends[name]; ok {
			chain = append(chain, b)
		}
	}
	return chain
}

// Names returns the configured backend names, for diagnostics/logging.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}
