package template

import (
	"io"
)

// TemplateRenderer is the seam between the preview pipeline and a concrete
// template engine. Engines read helpers and named templates from the
// session registry on every call so registrations made between renders are
// always visible.
type TemplateRenderer interface {
	// Name identifies the engine in configuration.
	Name() string
	// RenderString parses and executes templateContent against data.
	RenderString(reg *Registry, templateContent string, data map[string]any, out ...io.Writer) (string, error)
	// RenderTemplate executes a template previously registered under name.
	RenderTemplate(reg *Registry, name string, data map[string]any, out ...io.Writer) (string, error)
	// RegisterFilter exposes fn as a template filter, replacing any filter
	// of the same name.
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
}

// WriteAll copies rendered output to every writer.
func WriteAll(rendered string, out ...io.Writer) error {
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return err
		}
	}
	return nil
}
