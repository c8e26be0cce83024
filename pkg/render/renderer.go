// Package render drives a template through include expansion, inheritance,
// helper neutralization and a staged fallback so a preview produces HTML
// whenever any stage can.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/goliatone/go-twigpreview/pkg/expand"
	"github.com/goliatone/go-twigpreview/pkg/inherit"
	"github.com/goliatone/go-twigpreview/pkg/neutralize"
	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/render/template/gotemplate"
	"github.com/goliatone/go-twigpreview/pkg/resolve"
	"github.com/goliatone/go-twigpreview/pkg/sample"
	"github.com/goliatone/go-twigpreview/pkg/syntax"
)

// Source is the template to render: its text and the directory include and
// extends references resolve against. An empty BaseDir skips every file
// reference.
type Source struct {
	Text    string
	BaseDir string
}

// Result is the outcome of one pipeline run. On success HTML holds the
// output of the first stage that rendered; on failure Err is a
// *FailureError.
type Result struct {
	HTML  string
	Stage string
	// Data is the merged object the template was rendered against.
	Data sample.Data
	Err  error
}

// OK reports whether a stage rendered.
func (r Result) OK() bool {
	return r.Err == nil
}

// Observer receives stage outcomes.
type Observer interface {
	StageAttempted(stage string, err error)
	RenderCompleted(stage string, ok bool, elapsed time.Duration)
}

// Renderer runs the preview pipeline.
type Renderer struct {
	engine    template.TemplateRenderer
	paths     *resolve.Resolver
	expander  *expand.Expander
	inheritor *inherit.Resolver
	stages    []Stage
	helpers   []string
	funcs     map[string]template.Func
	observer  Observer
	logger    *slog.Logger

	translator Translator
	locale     string
}

// New constructs a Renderer.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		paths:  resolve.New(),
		stages: DefaultStages,
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.engine == nil {
		engine, err := gotemplate.New()
		if err != nil {
			return nil, fmt.Errorf("render: default engine: %w", err)
		}
		r.engine = engine
	}
	if len(r.stages) == 0 {
		return nil, ErrNoStages
	}
	if r.translator != nil {
		if err := r.engine.RegisterFilter("trans", TransFilter(r.translator, r.locale, nil)); err != nil {
			return nil, fmt.Errorf("render: trans filter: %w", err)
		}
	}
	r.wire()
	return r, nil
}

// Engine returns the template engine in use.
func (r *Renderer) Engine() template.TemplateRenderer {
	return r.engine
}

// Render expands includes, resolves inheritance, neutralizes helpers into
// reg and tries each stage in order until one renders. Include data is
// merged first and vars override it. The context is checked between
// stages.
func (r *Renderer) Render(ctx context.Context, reg *template.Registry, src Source, vars sample.Data) Result {
	if reg == nil {
		reg = template.NewRegistry()
	}
	start := time.Now()

	expanded, includeVars := r.expander.Expand(src.Text, src.BaseDir, nil)
	r.registerTemplates(reg, expanded, src.BaseDir, src.BaseDir, resolve.NewVisited())

	resolved := r.inheritor.Resolve(expanded, src.BaseDir).Text
	resolved = neutralize.StripParentCalls(resolved)
	for name, fn := range r.funcs {
		reg.RegisterFunction(name, fn)
	}
	neutralize.Neutralize(reg, resolved, r.helpers...)

	data := sample.Overlay(includeVars, vars)
	failure := &FailureError{}

	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			failure.Attempts = append(failure.Attempts, &StageError{Stage: stage.Name, Err: err})
			break
		}

		html, err := r.attempt(reg, stage.prepare(resolved), data)
		if r.observer != nil {
			r.observer.StageAttempted(stage.Name, err)
		}
		if err == nil {
			r.complete(stage.Name, true, start)
			return Result{HTML: html, Stage: stage.Name, Data: data}
		}

		r.logger.Debug("render: stage failed", "stage", stage.Name, "error", err)
		failure.Attempts = append(failure.Attempts, &StageError{Stage: stage.Name, Err: err})
	}

	r.logger.Warn("render: all stages failed", "error", failure.Error())
	last := ""
	if n := len(failure.Attempts); n > 0 {
		last = failure.Attempts[n-1].Stage
	}
	r.complete(last, false, start)
	return Result{Stage: last, Data: data, Err: failure}
}

func (r *Renderer) attempt(reg *template.Registry, text string, data sample.Data) (html string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render: engine panic: %v", p)
		}
	}()
	return r.engine.RenderString(reg, text, data)
}

func (r *Renderer) complete(stage string, ok bool, start time.Time) {
	if r.observer != nil {
		r.observer.RenderCompleted(stage, ok, time.Since(start))
	}
}

// registerTemplates loads every extends and include target still referenced
// in text and registers it under its reference name, recursing into what it
// loads. References resolve against the referencing file's directory first,
// then the document's.
func (r *Renderer) registerTemplates(reg *template.Registry, text, dir, rootDir string, visited resolve.Visited) {
	refs := syntax.IncludeRefs(text)
	if ref, _, ok := syntax.Extends(text); ok {
		refs = append([]string{ref}, refs...)
	}

	for _, ref := range refs {
		resolved, content, ok := r.paths.Load(dir, ref)
		if !ok && rootDir != dir {
			resolved, content, ok = r.paths.Load(rootDir, ref)
		}
		if !ok || !visited.Mark(resolved) {
			continue
		}
		reg.RegisterTemplate(ref, content)
		r.registerTemplates(reg, content, filepath.Dir(resolved), rootDir, visited)
	}
}
