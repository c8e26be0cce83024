// Package server exposes a preview session over HTTP: the preview page, a
// websocket message channel and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	twigpreview "github.com/goliatone/go-twigpreview"
	"github.com/goliatone/go-twigpreview/internal/metrics"
	"github.com/goliatone/go-twigpreview/internal/watch"
	"github.com/goliatone/go-twigpreview/pkg/preview"
)

const shutdownTimeout = 5 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts /metrics and records connection and message counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAssets replaces the embedded preview page and client.
func WithAssets(fsys fs.FS) Option {
	return func(s *Server) {
		if fsys != nil {
			s.assets = fsys
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server serves one preview session.
type Server struct {
	session *preview.Session
	metrics *metrics.Metrics
	assets  fs.FS
	logger  *slog.Logger
	handler http.Handler
}

// New builds a server for session.
func New(session *preview.Session, options ...Option) *Server {
	s := &Server{
		session: session,
		assets:  twigpreview.RuntimeAssetsFS(),
		logger:  slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.logger = s.logger.With("component", "preview-server")
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/runtime/", http.StripPrefix("/runtime/", http.FileServerFS(s.assets)))
	mux.HandleFunc("/ws", s.handleSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	page, err := fs.ReadFile(s.assets, "index.html")
	if err != nil {
		http.Error(w, "preview page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// Serve handles connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", "url", "http://"+ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		s.logger.Info("preview server stopped")
		return nil
	case err, ok := <-serveErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Run seeds the session, then serves it on addr and re-renders on every
// change reported by watcher until ctx is done. The session is closed on
// return.
func Run(ctx context.Context, srv *Server, addr string, watcher *watch.Watcher) error {
	if _, err := srv.session.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, addr)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx, func(path string) {
				srv.logger.Debug("document changed", "path", path)
				srv.session.DocumentChanged(gctx)
			})
		})
	}

	err := g.Wait()
	if closeErr := srv.session.Close(); closeErr != nil {
		srv.logger.Warn("session close failed", "error", closeErr)
	}
	return err
}
