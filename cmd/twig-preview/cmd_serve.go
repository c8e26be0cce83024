package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-twigpreview/internal/metrics"
	"github.com/goliatone/go-twigpreview/internal/server"
	"github.com/goliatone/go-twigpreview/internal/watch"
	"github.com/goliatone/go-twigpreview/pkg/infer"
	"github.com/goliatone/go-twigpreview/pkg/preview"
	"github.com/goliatone/go-twigpreview/pkg/render"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		addr string
		open bool
	)
	cmd := &cobra.Command{
		Use:   "serve <template>",
		Short: "Serve a live preview that re-renders on every save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			e, err := setup(cmd, flags, path)
			if err != nil {
				return err
			}
			if err := checkTemplate(path, e.cfg, flags.force); err != nil {
				return err
			}
			if addr != "" {
				e.cfg.Addr = addr
			}

			var (
				m          *metrics.Metrics
				extra      []render.Option
				serverOpts = []server.Option{server.WithLogger(e.logger)}
			)
			if e.cfg.Metrics {
				m = metrics.New(nil)
				extra = append(extra, render.WithObserver(m))
				serverOpts = append(serverOpts, server.WithMetrics(m))
			}
			renderer, err := e.newRenderer(extra...)
			if err != nil {
				return err
			}
			session := preview.NewSession(preview.FileSource{Path: path}, renderer,
				preview.WithSanitize(e.cfg.Sanitize),
				preview.WithSnapshotName(e.cfg.SnapshotName),
				preview.WithInferrer(infer.New(e.inferOptions()...)),
				preview.WithLogger(e.logger),
			)

			watcher := watch.New([]string{path},
				watch.WithDebounce(e.cfg.Debounce),
				watch.WithFilter(func(changed string) bool {
					return preview.IsTemplate(changed, e.cfg.Extensions...)
				}),
				watch.WithLogger(e.logger),
			)

			srv := server.New(session, serverOpts...)
			if open {
				openWhenReady(cmd.Context(), e, session)
			}
			return server.Run(cmd.Context(), srv, e.cfg.Addr, watcher)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&open, "open", false, "open the preview page in the default browser")
	return cmd
}

// openWhenReady opens the preview page after the session's first render.
func openWhenReady(ctx context.Context, e *env, session *preview.Session) {
	var once bool
	session.Subscribe(preview.SinkFunc(func(msg preview.Outbound) error {
		if once || msg.Type == preview.TypeVars {
			return nil
		}
		once = true
		url := pageURL(e.cfg.Addr)
		go func() {
			if err := (preview.SystemOpener{}).Open(ctx, url); err != nil {
				e.logger.Warn("open browser failed", "url", url, "error", err)
			}
		}()
		return nil
	}))
}

func pageURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, port))
}
