package twigpreview

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/render"
	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/render/template/gonja"
	"github.com/goliatone/go-twigpreview/pkg/render/template/gotemplate"
)

// DefaultEngine is used when no engine name is configured.
//
// pongo2 does not parse Twig's `~` concatenation operator, so an output such
// as {{ 'a' ~ name }} fails every stage there; select the gonja engine for
// templates that concatenate.
const DefaultEngine = gotemplate.EngineName

// EngineOption configures engines built by NewEngine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	globals map[string]any
}

// WithGlobals makes data visible to every template the engine renders.
// Render data shadows globals of the same name.
func WithGlobals(data map[string]any) EngineOption {
	return func(cfg *engineConfig) {
		if len(data) == 0 {
			return
		}
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globals[key] = value
		}
	}
}

// EngineNames lists the template engines selectable by name.
func EngineNames() []string {
	engines, err := render.DefaultEngines()
	if err != nil {
		return nil
	}
	return engines.List()
}

// NewEngine returns a fresh instance of the named engine. Names are case
// insensitive; an empty name selects DefaultEngine.
func NewEngine(name string, options ...EngineOption) (template.TemplateRenderer, error) {
	cfg := &engineConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultEngine
	}
	switch name {
	case gotemplate.EngineName:
		engine, err := gotemplate.New(gotemplate.WithGlobalData(cfg.globals))
		if err != nil {
			return nil, err
		}
		return engine, nil
	case gonja.EngineName:
		return gonja.New(gonja.WithGlobals(cfg.globals)), nil
	default:
		return nil, fmt.Errorf("twigpreview: engine %q not found", name)
	}
}
