// Package twigpreview renders live previews of Twig-style templates. It infers
// sample data from template text and renders through a pipeline that
// expands includes, resolves single-level inheritance, neutralizes host
// helpers and falls back through progressively sanitized stages.
package twigpreview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-twigpreview/pkg/render"
	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/resolve"
	"github.com/goliatone/go-twigpreview/pkg/sample"
)

// Data aliases sample.Data so callers can build render input without
// importing the sample package.
type Data = sample.Data

// Result aliases render.Result.
type Result = render.Result

// Stage aliases render.Stage for callers customizing the fallback policy.
type Stage = render.Stage

// NewRenderer builds a pipeline renderer around the named engine.
func NewRenderer(engine string, options ...render.Option) (*render.Renderer, error) {
	return NewRendererWithEngine(engine, nil, options...)
}

// NewRendererWithEngine is NewRenderer with engine options, such as globals.
func NewRendererWithEngine(engine string, engineOpts []EngineOption, options ...render.Option) (*render.Renderer, error) {
	selected, err := NewEngine(engine, engineOpts...)
	if err != nil {
		return nil, err
	}
	return render.New(append([]render.Option{render.WithEngine(selected)}, options...)...)
}

// RenderFile renders the template at path once. When vars is nil the data is
// inferred from the template first.
func RenderFile(ctx context.Context, renderer *render.Renderer, path string, vars Data) (Result, error) {
	if renderer == nil {
		return Result{}, fmt.Errorf("twigpreview: renderer is required")
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("twigpreview: read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if vars == nil {
		if vars, err = InferFile(abs); err != nil {
			return Result{}, err
		}
	}
	src := render.Source{Text: string(text), BaseDir: resolve.Dir(abs)}
	return renderer.Render(ctx, template.NewRegistry(), src, vars), nil
}
