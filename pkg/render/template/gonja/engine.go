// Package gonja adapts the gonja Jinja2 engine to the preview rendering seam.
// Twig and Jinja2 share their tag, output and filter syntax closely enough
// for most preview templates to render unchanged.
package gonja

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/nikolalohinski/gonja/v2/builtins"
	"github.com/nikolalohinski/gonja/v2/config"
	"github.com/nikolalohinski/gonja/v2/exec"

	"github.com/goliatone/go-twigpreview/pkg/render/template"
)

// EngineName identifies the gonja engine in configuration.
const EngineName = "gonja"

// rootName is the identifier the rendered source is served under. The
// loader answers it before consulting the registry.
const rootName = "@preview"

// Option configures the gonja adapter.
type Option func(*Engine)

// WithFS adds a fallback source for templates not found in the registry.
func WithFS(files fs.FS) Option {
	return func(e *Engine) {
		e.files = files
	}
}

// WithAutoEscape toggles HTML escaping of output tags.
func WithAutoEscape(enabled bool) Option {
	return func(e *Engine) {
		e.autoEscape = enabled
	}
}

// WithGlobals seeds values visible to every template. Render data shadows
// them.
func WithGlobals(data map[string]any) Option {
	return func(e *Engine) {
		if len(data) == 0 {
			return
		}
		if e.globals == nil {
			e.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			e.globals[strings.TrimSpace(key)] = value
		}
	}
}

// Engine renders templates with gonja.
type Engine struct {
	mu sync.RWMutex

	files      fs.FS
	autoEscape bool
	filters    map[string]exec.FilterFunction
	globals    map[string]any
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New constructs an Engine.
func New(options ...Option) *Engine {
	e := &Engine{
		filters: map[string]exec.FilterFunction{
			"raw":   filterIdentity,
			"nl2br": filterNl2br,
			"trans": filterTrans,
		},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Name reports the engine identifier.
func (e *Engine) Name() string {
	return EngineName
}

// RenderString compiles templateContent and executes it against data.
func (e *Engine) RenderString(reg *template.Registry, templateContent string, data map[string]any, out ...io.Writer) (string, error) {
	loader := &registryLoader{registry: reg, files: e.files, root: templateContent, hasRoot: true}
	return e.render(reg, loader, rootName, data, out...)
}

// RenderTemplate executes the template registered under name.
func (e *Engine) RenderTemplate(reg *template.Registry, name string, data map[string]any, out ...io.Writer) (string, error) {
	loader := &registryLoader{registry: reg, files: e.files}
	return e.render(reg, loader, name, data, out...)
}

// RegisterFilter exposes fn as a filter on this engine, replacing any filter
// of the same name.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("gonja: filter name and function required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.filters[name] = wrapFilter(fn)
	return nil
}

func (e *Engine) render(reg *template.Registry, loader *registryLoader, name string, data map[string]any, out ...io.Writer) (string, error) {
	if e == nil {
		return "", errors.New("gonja: engine is nil")
	}

	tmpl, err := exec.NewTemplate(name, e.config(), loader, e.environment(reg))
	if err != nil {
		return "", fmt.Errorf("gonja: compile %s: %w", label(name), err)
	}

	rendered, err := tmpl.ExecuteToString(exec.NewContext(copyData(data)))
	if err != nil {
		return "", fmt.Errorf("gonja: execute %s: %w", label(name), err)
	}
	if err := template.WriteAll(rendered, out...); err != nil {
		return "", err
	}
	return rendered, nil
}

func (e *Engine) config() *config.Config {
	return &config.Config{
		BlockStartString:    "{%",
		BlockEndString:      "%}",
		VariableStartString: "{{",
		VariableEndString:   "}}",
		CommentStartString:  "{#",
		CommentEndString:    "#}",
		AutoEscape:          e.autoEscape,
		StrictUndefined:     false,
	}
}

// environment assembles builtins plus engine filters and the registry's
// helpers into fresh sets so the shared builtin tables are never mutated.
func (e *Engine) environment(reg *template.Registry) *exec.Environment {
	e.mu.RLock()
	custom := make(map[string]exec.FilterFunction, len(e.filters))
	for name, fn := range e.filters {
		custom[name] = fn
	}
	e.mu.RUnlock()

	filters := exec.NewFilterSet(map[string]exec.FilterFunction{}).
		Update(builtins.Filters).
		Update(exec.NewFilterSet(custom))

	functions := map[string]any{}
	for name, fn := range reg.Functions() {
		functions[name] = wrapFunction(fn)
	}
	e.mu.RLock()
	values := make(map[string]any, len(e.globals))
	for key, value := range e.globals {
		values[key] = value
	}
	e.mu.RUnlock()

	globals := exec.NewContext(map[string]any{}).
		Update(builtins.GlobalFunctions).
		Update(exec.NewContext(values)).
		Update(exec.NewContext(functions))

	return &exec.Environment{
		Filters:           filters,
		Tests:             builtins.Tests,
		ControlStructures: builtins.ControlStructures,
		Methods:           builtins.Methods,
		Context:           globals,
	}
}

func wrapFunction(fn template.Func) func(*exec.Evaluator, *exec.VarArgs) *exec.Value {
	return func(_ *exec.Evaluator, params *exec.VarArgs) *exec.Value {
		var args []any
		if params != nil {
			for _, arg := range params.Args {
				args = append(args, arg.Interface())
			}
		}
		return exec.AsValue(fn(args...))
	}
}

func wrapFilter(fn func(input any, param any) (any, error)) exec.FilterFunction {
	return func(_ *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
		var param any
		if params != nil && len(params.Args) > 0 {
			param = params.Args[0].Interface()
		}
		result, err := fn(in.Interface(), param)
		if err != nil {
			return exec.AsValue(exec.ErrInvalidCall(err))
		}
		return exec.AsValue(result)
	}
}

func filterIdentity(_ *exec.Evaluator, in *exec.Value, _ *exec.VarArgs) *exec.Value {
	return in
}

func filterNl2br(_ *exec.Evaluator, in *exec.Value, _ *exec.VarArgs) *exec.Value {
	text := strings.ReplaceAll(in.String(), "\r\n", "\n")
	return exec.AsValue(strings.ReplaceAll(text, "\n", "<br />\n"))
}

func filterTrans(_ *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
	var param any
	if params != nil && len(params.Args) > 0 {
		param = params.Args[0].Interface()
	}
	return exec.AsValue(template.Interpolate(in.String(), param))
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = value
	}
	return out
}

func label(name string) string {
	if name == rootName {
		return "template string"
	}
	return fmt.Sprintf("template %q", name)
}
