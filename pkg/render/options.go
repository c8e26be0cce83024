package render

import (
	"log/slog"

	"github.com/goliatone/go-twigpreview/pkg/expand"
	"github.com/goliatone/go-twigpreview/pkg/inherit"
	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/resolve"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithEngine sets the template engine. The pongo2 engine is used when none
// is given.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithResolver shares one path resolver across expansion, inheritance and
// template registration.
func WithResolver(paths *resolve.Resolver) Option {
	return func(r *Renderer) {
		if paths != nil {
			r.paths = paths
		}
	}
}

// WithStages replaces the fallback policy.
func WithStages(stages ...Stage) Option {
	return func(r *Renderer) {
		if len(stages) > 0 {
			r.stages = append([]Stage(nil), stages...)
		}
	}
}

// WithHelpers neutralizes extra helper names on every render in addition to
// the host helpers and the names discovered in the template.
func WithHelpers(names ...string) Option {
	return func(r *Renderer) {
		r.helpers = append(r.helpers, names...)
	}
}

// WithObserver reports stage outcomes, typically to metrics.
func WithObserver(observer Observer) Option {
	return func(r *Renderer) {
		r.observer = observer
	}
}

// WithFunctions registers host functions ahead of neutralization on every
// render, so they produce output instead of being replaced by no-ops.
func WithFunctions(funcs map[string]template.Func) Option {
	return func(r *Renderer) {
		if r.funcs == nil {
			r.funcs = make(map[string]template.Func, len(funcs))
		}
		for name, fn := range funcs {
			if fn != nil {
				r.funcs[name] = fn
			}
		}
	}
}

// WithTranslator installs t behind the trans filter and the t() and
// current_locale() functions.
func WithTranslator(t Translator, locale string) Option {
	return func(r *Renderer) {
		r.translator = t
		r.locale = locale
		WithFunctions(TemplateI18nFuncs(t, TemplateI18nConfig{Locale: locale}))(r)
	}
}

// WithLogger sets the logger for stage failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func (r *Renderer) wire() {
	r.expander = expand.New(expand.WithResolver(r.paths), expand.WithLogger(r.logger))
	r.inheritor = inherit.New(inherit.WithResolver(r.paths), inherit.WithLogger(r.logger))
}
