// Package inherit resolves one level of template inheritance by overlaying a
// child's blocks onto its parent layout.
package inherit

import (
	"log/slog"
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/resolve"
	"github.com/goliatone/go-twigpreview/pkg/syntax"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithResolver injects the path resolver used to load parent layouts.
func WithResolver(r *resolve.Resolver) Option {
	return func(res *Resolver) {
		if r != nil {
			res.paths = r
		}
	}
}

// WithLogger sets the logger used to report missing parents.
func WithLogger(logger *slog.Logger) Option {
	return func(res *Resolver) {
		if logger != nil {
			res.logger = logger
		}
	}
}

// Resolver flattens `extends` directives.
type Resolver struct {
	paths  *resolve.Resolver
	logger *slog.Logger
}

// Result is the outcome of one resolution.
type Result struct {
	// Text is the working template text after inheritance.
	Text string
	// Parent is the reference named by the extends directive, if any.
	Parent string
	// ParentPath is the resolved parent file when it could be loaded.
	ParentPath string
	// Extended reports whether the child was overlaid onto its parent.
	Extended bool
}

// New constructs a Resolver.
func New(options ...Option) *Resolver {
	r := &Resolver{
		paths:  resolve.New(),
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Resolve applies a single level of inheritance to text. With an extends
// directive, every child block replaces the same-named parent block
// (delimiters included) with its inner content, child-only blocks and any
// text outside blocks are dropped, and parent-only blocks stay. The parent's
// own extends directive is not followed. Without one, block wrappers are
// removed and their content kept in place. A parent that cannot be loaded
// is treated like a missing directive: the extends line is removed and the
// child's blocks are unwrapped.
func (r *Resolver) Resolve(text, baseDir string) Result {
	ref, tag, ok := syntax.Extends(text)
	if !ok {
		return Result{Text: syntax.StripBlocks(text)}
	}

	parentPath, parent, found := r.paths.Load(baseDir, ref)
	if !found {
		r.logger.Warn("inherit: parent template not found", "parent", ref, "base_dir", baseDir)
		child := strings.Replace(text, tag, "", 1)
		return Result{Text: syntax.StripBlocks(child), Parent: ref}
	}

	return Result{
		Text:       Overlay(parent, strings.Replace(text, tag, "", 1)),
		Parent:     ref,
		ParentPath: parentPath,
		Extended:   true,
	}
}

// Overlay substitutes each block of child into parent. Replacement content is
// inserted literally.
func Overlay(parent, child string) string {
	out := parent
	for _, block := range syntax.Blocks(child) {
		out = syntax.ReplaceBlock(out, block.Name, block.Inner)
	}
	return out
}

// StripBlocks unwraps every block region in text.
func StripBlocks(text string) string {
	return syntax.StripBlocks(text)
}
