package preview

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/resolve"
)

// DefaultExtensions are the file extensions treated as templates.
var DefaultExtensions = []string{".twig"}

// Document is one template source as read at a point in time.
type Document struct {
	// Path is empty for unsaved documents.
	Path string
	Text string
}

// BaseDir is the directory references resolve against; empty when the
// document has no path.
func (d Document) BaseDir() string {
	return resolve.Dir(d.Path)
}

// Source supplies the current document text. Sessions call it on every
// render trigger and never cache the result.
type Source interface {
	Document() (Document, error)
}

// FileSource reads a document from disk.
type FileSource struct {
	Path string
}

// Document reads the file.
func (s FileSource) Document() (Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Document{}, fmt.Errorf("preview: read document: %w", err)
	}
	abs, err := filepath.Abs(s.Path)
	if err != nil {
		abs = s.Path
	}
	return Document{Path: abs, Text: string(data)}, nil
}

// StaticSource serves fixed text, for piped input and tests.
type StaticSource Document

// Document returns the fixed document.
func (s StaticSource) Document() (Document, error) {
	return Document(s), nil
}

// IsTemplate reports whether path has a template extension. Extra
// extensions may be given with or without the leading dot.
func IsTemplate(path string, extra ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, candidate := range append(append([]string(nil), DefaultExtensions...), extra...) {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if !strings.HasPrefix(candidate, ".") {
			candidate = "." + candidate
		}
		if ext == candidate {
			return true
		}
	}
	return false
}
