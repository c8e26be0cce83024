// Package infer deduces a plausible sample data object from template text.
//
// The pass is heuristic and never fails: ambiguous occurrences are skipped.
// Scans run in a fixed order (loops, includes, outputs, if guards, then
// collection synthesis) because the order decides whether a name is loop
// scoped or top level.
package infer

import (
	"log/slog"
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/resolve"
	"github.com/goliatone/go-twigpreview/pkg/sample"
	"github.com/goliatone/go-twigpreview/pkg/syntax"
)

// Option configures an Engine.
type Option func(*Engine)

// WithResolver injects the resolver used to load included templates.
func WithResolver(r *resolve.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithKnown names top-level variables the host already provides, such as
// engine globals. They are left out of the inferred data so placeholders do
// not shadow real values.
func WithKnown(names ...string) Option {
	return func(e *Engine) {
		e.known = append(e.known, names...)
	}
}

// Engine infers sample data from template source.
type Engine struct {
	resolver *resolve.Resolver
	logger   *slog.Logger
	known    []string
}

// New constructs an Engine backed by the OS filesystem unless a resolver is
// supplied.
func New(options ...Option) *Engine {
	e := &Engine{
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

// Infer returns sample data for text. Included templates are resolved
// against baseDir and entered at most once per visited set; a nil set starts
// a fresh pass.
func (e *Engine) Infer(text, baseDir string, visited resolve.Visited) sample.Data {
	if visited == nil {
		visited = resolve.NewVisited()
	}
	result := e.infer(text, baseDir, visited)
	for _, name := range e.known {
		delete(result, name)
	}
	return result
}

// Infer runs a fresh inference pass with a default engine.
func Infer(text, baseDir string) sample.Data {
	return New().Infer(text, baseDir, nil)
}

func (e *Engine) infer(text, baseDir string, visited resolve.Visited) sample.Data {
	result := sample.New()
	loops := bindLoops(text)

	e.inferIncludes(result, text, baseDir, visited)

	props := newProperties()
	for _, coll := range loops.collections {
		props.touch(coll)
	}
	e.inferOutputs(result, text, loops, props)
	inferGuards(result, text, loops)
	synthesize(result, loops, props)

	return result
}

func (e *Engine) inferIncludes(result sample.Data, text, baseDir string, visited resolve.Visited) {
	for _, inc := range syntax.Includes(text) {
		if inc.With != "" {
			if parsed, ok := syntax.ParseWithLiteral(inc.With); ok {
				sample.Merge(result, parsed)
			} else {
				e.logger.Debug("infer: ignoring include literal", "ref", inc.Ref, "literal", inc.With)
			}
		}

		resolved, ok := e.resolver.Resolve(baseDir, inc.Ref)
		if !ok || !visited.Mark(resolved) {
			continue
		}
		content, ok := e.resolver.Read(resolved)
		if !ok {
			continue
		}
		sample.Merge(result, e.infer(content, baseDir, visited))
	}
}

func (e *Engine) inferOutputs(result sample.Data, text string, loops *bindings, props *properties) {
	for _, head := range syntax.OutputHeads(text) {
		if !syntax.IsReference(head) || syntax.IsLiteral(head) || syntax.IsCall(head) {
			continue
		}
		parts := syntax.SplitPath(syntax.StripIndexing(head))
		if len(parts) == 0 {
			continue
		}

		if coll, ok := loops.collection(parts[0]); ok {
			if len(parts) == 1 {
				props.touch(coll)
				continue
			}
			props.add(coll, parts[1:])
			continue
		}

		// collections are synthesized as arrays later
		if loops.isCollection(strings.Join(parts, ".")) {
			continue
		}

		var value any = map[string]any{}
		if len(parts) == 1 {
			value = parts[0]
		}
		sample.Assign(result, parts, value)
	}
}

func inferGuards(result sample.Data, text string, loops *bindings) {
	for _, name := range syntax.IfGuards(text) {
		if name == "not" || name == "empty" || strings.ContainsAny(name, " \t\r\n") {
			continue
		}
		if !syntax.IsReference(name) || syntax.IsLiteral(name) || syntax.IsCall(name) {
			continue
		}
		parts := syntax.SplitPath(syntax.StripIndexing(name))
		if len(parts) == 0 {
			continue
		}
		if _, scoped := loops.collection(parts[0]); scoped {
			continue
		}
		if loops.isCollection(strings.Join(parts, ".")) {
			continue
		}
		sample.Assign(result, parts, true)
	}
}
