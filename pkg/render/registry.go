package render

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/render/template/gonja"
	"github.com/goliatone/go-twigpreview/pkg/render/template/gotemplate"
)

// Engines stores template engines by name so configuration can select one.
type Engines struct {
	mu      sync.RWMutex
	engines map[string]template.TemplateRenderer
}

// NewEngines creates an empty engine registry.
func NewEngines() *Engines {
	return &Engines{
		engines: make(map[string]template.TemplateRenderer),
	}
}

// DefaultEngines registers the pongo2 and gonja engines.
func DefaultEngines() (*Engines, error) {
	pongo, err := gotemplate.New()
	if err != nil {
		return nil, fmt.Errorf("render: pongo2 engine: %w", err)
	}
	engines := NewEngines()
	engines.MustRegister(pongo)
	engines.MustRegister(gonja.New())
	return engines, nil
}

// Register adds an engine by its Name(). Duplicate names return an error.
func (r *Engines) Register(engine template.TemplateRenderer) error {
	if engine == nil {
		return fmt.Errorf("render: engine is required")
	}
	name := engine.Name()
	if name == "" {
		return fmt.Errorf("render: engine name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("render: engine %q already registered", name)
	}

	r.engines[name] = engine
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Engines) MustRegister(engine template.TemplateRenderer) {
	if err := r.Register(engine); err != nil {
		panic(err)
	}
}

// Get retrieves an engine by name.
func (r *Engines) Get(name string) (template.TemplateRenderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("render: engine %q not found", name)
	}
	return engine, nil
}

// List returns a sorted list of engine names.
func (r *Engines) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an engine is registered.
func (r *Engines) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.engines[name]
	return ok
}
