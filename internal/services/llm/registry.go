package llm

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Registry resolves provider names to configured clients.
type Registry struct {
	providers map[string]Provider
	models    map[string]string
	fallback  string
}

// NewRegistry returns an empty registry whose default provider is name.
func NewRegistry(fallback string) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		models:    make(map[string]string),
		fallback:  strings.ToLower(fallback),
	}
}

// Register adds p under p.Name() with the model used when callers pass none.
func (r *Registry) Register(p Provider, defaultModel string) {
	name := strings.ToLower(p.Name())
	r.providers[name] = p
	r.models[name] = defaultModel
}

// Resolve returns the provider called name and the model to use with it.
// Empty values select the defaults.
func (r *Registry) Resolve(name, model string) (Provider, string, error) {
	if name == "" {
		name = r.fallback
	}
	name = strings.ToLower(name)
	p, ok := r.providers[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if model == "" {
		model = r.models[name]
	}
	return p, model, nil
}

// Ollama returns the local client when one is registered.
func (r *Registry) Ollama() (*OllamaClient, bool) {
	c, ok := r.providers["ollama"].(*OllamaClient)
	return c, ok
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) Default() string { return r.fallback }
