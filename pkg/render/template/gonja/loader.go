package gonja

import (
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/nikolalohinski/gonja/v2/loaders"

	"github.com/goliatone/go-twigpreview/pkg/render/template"
)

// registryLoader serves templates from a session registry by their reference
// name in a flat namespace. The template being rendered is served under
// rootName, and an optional fs.FS answers names the registry does not hold.
type registryLoader struct {
	registry *template.Registry
	files    fs.FS
	root     string
	hasRoot  bool
}

var _ loaders.Loader = (*registryLoader)(nil)

// Read returns the content of the named template.
func (l *registryLoader) Read(path string) (io.Reader, error) {
	content, ok := l.lookup(path)
	if !ok {
		return nil, fmt.Errorf("gonja: template %q not registered", path)
	}
	return strings.NewReader(content), nil
}

// Resolve returns the path unchanged when the template exists.
func (l *registryLoader) Resolve(path string) (string, error) {
	if _, ok := l.lookup(path); !ok {
		return "", fmt.Errorf("gonja: template %q not registered", path)
	}
	return path, nil
}

// Inherit returns the same loader; references are not relative to the
// including template.
func (l *registryLoader) Inherit(_ string) (loaders.Loader, error) {
	return l, nil
}

func (l *registryLoader) lookup(path string) (string, bool) {
	if l.hasRoot && path == rootName {
		return l.root, true
	}
	if content, ok := l.registry.Template(path); ok {
		return content, true
	}
	if l.files != nil {
		data, err := fs.ReadFile(l.files, strings.TrimPrefix(path, "/"))
		if err == nil {
			return string(data), true
		}
	}
	return "", false
}
