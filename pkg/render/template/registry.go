package template

import (
	"sort"
	"strings"
	"sync"
)

// Func is a helper callable from templates. Neutralized helpers ignore their
// arguments and return an empty string.
type Func func(args ...any) any

// Noop is the stand-in registered for helpers the preview cannot execute.
func Noop(...any) any { return "" }

// Registry holds the functions and named templates visible to one preview
// session. Registration is append-only and idempotent: the first
// registration of a name wins and later ones are ignored.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Func
	templates map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Func),
		templates: make(map[string]string),
	}
}

// RegisterFunction adds fn under name. It reports whether the name was new.
func (r *Registry) RegisterFunction(name string, fn Func) bool {
	name = strings.TrimSpace(name)
	if r == nil || name == "" || fn == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.functions[name]; exists {
		return false
	}
	r.functions[name] = fn
	return true
}

// RegisterTemplate stores content under name. It reports whether the name
// was new.
func (r *Registry) RegisterTemplate(name, content string) bool {
	name = strings.TrimSpace(name)
	if r == nil || name == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[name]; exists {
		return false
	}
	r.templates[name] = content
	return true
}

// Function returns the function registered under name.
func (r *Registry) Function(name string) (Func, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.functions[name]
	return fn, ok
}

// Template returns the content registered under name.
func (r *Registry) Template(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, ok := r.templates[name]
	return content, ok
}

// Functions returns a snapshot of the registered functions.
func (r *Registry) Functions() map[string]Func {
	out := map[string]Func{}
	if r == nil {
		return out
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, fn := range r.functions {
		out[name] = fn
	}
	return out
}

// FunctionNames returns the sorted names of registered functions.
func (r *Registry) FunctionNames() []string {
	return sortedNames(r.Functions())
}

// TemplateNames returns the sorted names of registered templates.
func (r *Registry) TemplateNames() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedNames(m map[string]Func) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
