// Package models holds the registry of named model presets that can
// participate in experiments.
package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/morallab/dilemma/internal/config"
	"github.com/morallab/dilemma/internal/llm"
)

// Registry maps aliases to immutable ModelSpecs.
type Registry struct {
	specs map[string]llm.ModelSpec
	order []string
}

// NewRegistry builds a registry from settings-file entries, filling
// generation parameters from the configured defaults where an entry leaves
// them zero. With no entries the default roster is used.
func NewRegistry(entries []config.ModelEntry, temperature float64, maxTokens int) (*Registry, error) {
	if len(entries) == 0 {
		entries = defaultEntries()
	}
	r := &Registry{specs: make(map[string]llm.ModelSpec, len(entries))}
	for _, e := range entries {
		provider := llm.Provider(e.Provider)
		switch provider {
		case llm.ProviderAnthropic, llm.ProviderOpenAI, llm.ProviderGoogle:
		default:
			return nil, fmt.Errorf("models: unknown provider %q for model %q", e.Provider, e.Name)
		}
		if _, dup := r.specs[e.Name]; dup {
			return nil, fmt.Errorf("models: duplicate model name %q", e.Name)
		}
		spec := llm.ModelSpec{
			Name:        e.Name,
			Provider:    provider,
			Model:       e.Model,
			Temperature: e.Temperature,
			MaxTokens:   e.MaxTokens,
		}
		if spec.Temperature == 0 {
			spec.Temperature = temperature
		}
		if spec.MaxTokens == 0 {
			spec.MaxTokens = maxTokens
		}
		r.specs[e.Name] = spec
		r.order = append(r.order, e.Name)
	}
	return r, nil
}

// defaultEntries is the built-in roster: the three models the original
// study negotiated over, one per provider.
func defaultEntries() []config.ModelEntry {
	return []config.ModelEntry{
		{Name: "claude-haiku", Provider: "anthropic", Model: "claude-haiku-4-5-20251001"},
		{Name: "gpt-nano", Provider: "openai", Model: "gpt-5-nano-2025-08-07"},
		{Name: "gemini-flash", Provider: "google", Model: "gemini-2.5-flash-lite"},
	}
}

// Names returns the registered aliases in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every registered spec in declaration order.
func (r *Registry) All() []llm.ModelSpec {
	out := make([]llm.ModelSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

// Resolve turns a selector into a ModelSpec. A selector is either a
// registry alias or a literal "provider/model" pair; literals take the
// registry defaults for generation parameters.
func (r *Registry) Resolve(selector string, temperature float64, maxTokens int) (llm.ModelSpec, error) {
	if spec, ok := r.specs[selector]; ok {
		return spec, nil
	}
	provider, model, ok := strings.Cut(selector, "/")
	if ok && model != "" {
		p := llm.Provider(provider)
		switch p {
		case llm.ProviderAnthropic, llm.ProviderOpenAI, llm.ProviderGoogle:
			return llm.ModelSpec{
				Provider:    p,
				Model:       model,
				Temperature: temperature,
				MaxTokens:   maxTokens,
			}, nil
		}
	}
	known := r.Names()
	sort.Strings(known)
	return llm.ModelSpec{}, fmt.Errorf("models: unknown model %q (known: %s, or use provider/model)",
		selector, strings.Join(known, ", "))
}

// ResolveAll resolves a list of selectors.
func (r *Registry) ResolveAll(selectors []string, temperature float64, maxTokens int) ([]llm.ModelSpec, error) {
	out := make([]llm.ModelSpec, 0, len(selectors))
	for _, sel := range selectors {
		spec, err := r.Resolve(sel, temperature, maxTokens)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}
