// Package resolve maps include and extends references onto files relative to
// a template's base directory. Every filesystem failure degrades to "not
// found"; no error crosses the package boundary.
package resolve

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithFS backs the resolver with an fs.FS instead of the OS filesystem. Base
// directories and resolved paths are then slash separated and relative to the
// filesystem root.
func WithFS(fsys fs.FS) Option {
	return func(r *Resolver) {
		r.fsys = fsys
	}
}

// Resolver resolves template references and loads their contents.
type Resolver struct {
	fsys fs.FS
}

// New constructs a Resolver. The zero value resolves against the OS
// filesystem as well.
func New(options ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Resolve returns the canonical path of ref relative to baseDir. It reports
// false when baseDir is unknown, the target does not exist, or it is a
// directory.
func (r *Resolver) Resolve(baseDir, ref string) (string, bool) {
	baseDir = strings.TrimSpace(baseDir)
	ref = strings.TrimSpace(ref)
	if baseDir == "" || ref == "" {
		return "", false
	}

	if r != nil && r.fsys != nil {
		return r.resolveFS(baseDir, ref)
	}

	candidate := ref
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, candidate)
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", false
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", false
	}
	return abs, true
}

func (r *Resolver) resolveFS(baseDir, ref string) (string, bool) {
	candidate := ref
	if !path.IsAbs(candidate) {
		candidate = path.Join(filepath.ToSlash(baseDir), candidate)
	}
	candidate = strings.TrimPrefix(path.Clean(candidate), "/")
	if candidate == "" || !fs.ValidPath(candidate) {
		return "", false
	}

	info, err := fs.Stat(r.fsys, candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	return candidate, true
}

// Load resolves ref and reads it as UTF-8 text. Invalid UTF-8 and read
// failures are reported as not found.
func (r *Resolver) Load(baseDir, ref string) (string, string, bool) {
	resolved, ok := r.Resolve(baseDir, ref)
	if !ok {
		return "", "", false
	}
	content, ok := r.Read(resolved)
	if !ok {
		return "", "", false
	}
	return resolved, content, true
}

// Read loads an already resolved path.
func (r *Resolver) Read(resolved string) (string, bool) {
	var (
		data []byte
		err  error
	)
	if r != nil && r.fsys != nil {
		data, err = fs.ReadFile(r.fsys, resolved)
	} else {
		data, err = os.ReadFile(resolved)
	}
	if err != nil || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// Dir returns the base directory of a document path. Unsaved documents (an
// empty path) have no base directory.
func Dir(documentPath string) string {
	documentPath = strings.TrimSpace(documentPath)
	if documentPath == "" {
		return ""
	}
	return filepath.Dir(documentPath)
}
