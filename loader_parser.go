package twigpreview

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goliatone/go-twigpreview/pkg/infer"
	"github.com/goliatone/go-twigpreview/pkg/resolve"
	"github.com/goliatone/go-twigpreview/pkg/sample"
)

// NewResolver constructs a reference resolver. A nil fsys resolves against
// the OS filesystem.
func NewResolver(fsys fs.FS) *resolve.Resolver {
	if fsys == nil {
		return resolve.New()
	}
	return resolve.New(resolve.WithFS(fsys))
}

// InferFile reads a template and infers sample data for it, following its
// includes relative to the file's directory.
func InferFile(path string, options ...infer.Option) (sample.Data, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("twigpreview: read %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return infer.New(options...).Infer(string(text), resolve.Dir(abs), nil), nil
}
