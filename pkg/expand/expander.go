// Package expand inlines included templates recursively and collects the
// data passed to them through `with` literals.
package expand

import (
	"log/slog"

	"github.com/goliatone/go-twigpreview/pkg/resolve"
	"github.com/goliatone/go-twigpreview/pkg/sample"
	"github.com/goliatone/go-twigpreview/pkg/syntax"
)

// Option configures an Expander.
type Option func(*Expander)

// WithResolver injects the resolver used to load included templates.
func WithResolver(r *resolve.Resolver) Option {
	return func(e *Expander) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Expander replaces include tags with the content they reference.
type Expander struct {
	resolver *resolve.Resolver
	logger   *slog.Logger
}

// New constructs an Expander.
func New(options ...Option) *Expander {
	e := &Expander{
		resolver: resolve.New(),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Expand inlines every include tag in text. Tags whose target cannot be
// resolved, was already entered, or has no base directory to resolve against
// expand to the empty string. Data from `with` literals is collected outer
// scope first; inner scopes never overwrite keys an outer scope set. A nil
// visited set starts a fresh pass.
func (e *Expander) Expand(text, baseDir string, visited resolve.Visited) (string, sample.Data) {
	if visited == nil {
		visited = resolve.NewVisited()
	}
	return e.expand(text, baseDir, visited)
}

// Expand runs a fresh expansion pass with a default expander.
func Expand(text, baseDir string) (string, sample.Data) {
	return New().Expand(text, baseDir, nil)
}

func (e *Expander) expand(text, baseDir string, visited resolve.Visited) (string, sample.Data) {
	collected := sample.New()

	out := syntax.ReplaceIncludes(text, func(inc syntax.Include) string {
		if inc.With != "" {
			if parsed, ok := syntax.ParseWithLiteral(inc.With); ok {
				sample.Merge(collected, parsed)
			} else {
				e.logger.Debug("expand: ignoring include literal", "ref", inc.Ref, "literal", inc.With)
			}
		}

		resolved, ok := e.resolver.Resolve(baseDir, inc.Ref)
		if !ok {
			e.logger.Debug("expand: include not found", "ref", inc.Ref, "base_dir", baseDir)
			return ""
		}
		if !visited.Mark(resolved) {
			return ""
		}
		content, ok := e.resolver.Read(resolved)
		if !ok {
			return ""
		}

		inner, vars := e.expand(content, baseDir, visited)
		sample.Merge(collected, vars)
		return inner
	})

	return out, collected
}
