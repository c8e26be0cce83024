// Package watch turns filesystem events for template files into debounced
// change notifications.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses editor save bursts into one notification.
const DefaultDebounce = 150 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a change is reported. Zero
// reports every event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts which paths trigger a notification.
func WithFilter(filter func(path string) bool) Option {
	return func(w *Watcher) {
		if filter != nil {
			w.filter = filter
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher reports changes below a set of directories. Directories are
// watched rather than files so atomic saves (write temp, rename) are seen.
type Watcher struct {
	dirs     []string
	debounce time.Duration
	filter   func(string) bool
	logger   *slog.Logger
}

// New watches the directories containing paths. Each path may be a file or
// a directory.
func New(paths []string, options ...Option) *Watcher {
	w := &Watcher{
		debounce: DefaultDebounce,
		filter:   func(string) bool { return true },
		logger:   slog.Default(),
	}
	seen := make(map[string]bool)
	for _, p := range paths {
		dir := p
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(w)
	}
	return w
}

// Dirs lists the watched directories.
func (w *Watcher) Dirs() []string {
	return append([]string(nil), w.dirs...)
}

// Run blocks until ctx is done, calling onChange with the last changed path
// after each quiet period. onChange runs on the watcher goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	if len(w.dirs) == 0 {
		return errors.New("watch: nothing to watch")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()

	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
		w.logger.Debug("watch: watching", "dir", dir)
	}

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) || !w.filter(event.Name) {
				continue
			}
			w.logger.Debug("watch: event", "path", event.Name, "op", event.Op.String())
			if w.debounce == 0 {
				onChange(event.Name)
				continue
			}
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange(pending)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch: watcher error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
