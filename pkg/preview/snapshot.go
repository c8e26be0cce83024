package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// DefaultSnapshotName is the file the browser snapshot is written to, next to
// the document.
const DefaultSnapshotName = "twig-preview-output.html"

// ErrNoDocumentDir is returned when a snapshot is requested for a document
// that has no directory.
var ErrNoDocumentDir = errors.New("preview: document has no directory")

// Opener opens a local file in an external viewer.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, path string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, path string) error {
	return f(ctx, path)
}

// SystemOpener opens files with the platform's default handler.
type SystemOpener struct{}

// Open launches the platform opener and does not wait for it to exit.
func (SystemOpener) Open(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := openCommand(runtime.GOOS, path)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("preview: open %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

// WriteSnapshot writes html into dir under name and returns the file path.
func WriteSnapshot(dir, name, html string) (string, error) {
	if dir == "" {
		return "", ErrNoDocumentDir
	}
	if name == "" {
		name = DefaultSnapshotName
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("preview: write snapshot: %w", err)
	}
	return target, nil
}
