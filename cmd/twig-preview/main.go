package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	twigpreview "github.com/goliatone/go-twigpreview"
	"github.com/goliatone/go-twigpreview/internal/config"
	"github.com/goliatone/go-twigpreview/pkg/infer"
	"github.com/goliatone/go-twigpreview/pkg/preview"
	"github.com/goliatone/go-twigpreview/pkg/render"
	"github.com/goliatone/go-twigpreview/pkg/resolve"
)

type globalFlags struct {
	configPath string
	engine     string
	logLevel   string
	logFormat  string
	force      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "twig-preview:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "twig-preview",
		Short: "Live HTML previews for Twig templates",
		Long: `twig-preview infers sample data from a Twig template and renders it
without the host framework: includes are inlined, single-level inheritance is
resolved, framework helpers are neutralized and rendering falls back through
progressively sanitized stages.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default: .twigpreview.yaml next to the template)")
	pf.StringVar(&flags.engine, "engine", "", "template engine: pongo2 or gonja")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json")
	pf.BoolVar(&flags.force, "force", false, "accept files without a template extension")

	root.AddCommand(
		newInferCmd(flags),
		newRenderCmd(flags),
		newServeCmd(flags),
		newCheckCmd(flags),
	)
	return root
}

// env is what every subcommand needs after flags and config are merged.
type env struct {
	cfg    config.Config
	dir    string
	logger *slog.Logger
}

// newRenderer builds the configured engine and pipeline.
func (e *env) newRenderer(extra ...render.Option) (*render.Renderer, error) {
	opts, err := e.renderOptions(extra...)
	if err != nil {
		return nil, err
	}
	return twigpreview.NewRendererWithEngine(e.cfg.Engine,
		[]twigpreview.EngineOption{twigpreview.WithGlobals(e.cfg.Globals)},
		opts...,
	)
}

// inferOptions keeps configured globals out of inferred data.
func (e *env) inferOptions() []infer.Option {
	known := make([]string, 0, len(e.cfg.Globals))
	for name := range e.cfg.Globals {
		known = append(known, name)
	}
	return []infer.Option{infer.WithLogger(e.logger), infer.WithKnown(known...)}
}

// renderOptions builds the renderer options shared by every subcommand.
func (e *env) renderOptions(extra ...render.Option) ([]render.Option, error) {
	opts := []render.Option{
		render.WithHelpers(e.cfg.Helpers...),
		render.WithLogger(e.logger),
	}
	if e.cfg.Translations != "" {
		path := e.cfg.Translations
		if !filepath.IsAbs(path) && e.dir != "" {
			path = filepath.Join(e.dir, path)
		}
		catalog, err := render.LoadCatalog(path)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("translations loaded", "path", path, "locales", catalog.Locales())
		opts = append(opts, render.WithTranslator(catalog, e.cfg.Locale))
	}
	return append(opts, extra...), nil
}

// setup loads config from the document's directory and applies flag
// overrides. Logs go to stderr so stdout stays clean for output.
func setup(cmd *cobra.Command, flags *globalFlags, docPath string) (*env, error) {
	dir := ""
	if docPath != "" {
		if abs, err := filepath.Abs(docPath); err == nil {
			dir = resolve.Dir(abs)
		}
	}
	cfg, err := config.Load(flags.configPath, dir)
	if err != nil {
		return nil, err
	}
	if flags.engine != "" {
		cfg.Engine = flags.engine
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Log.Logger(cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return &env{cfg: cfg, dir: dir, logger: logger}, nil
}

var errNotTemplate = errors.New("not a template file")

func checkTemplate(path string, cfg config.Config, force bool) error {
	if force || preview.IsTemplate(path, cfg.Extensions...) {
		return nil
	}
	return fmt.Errorf("%s: %w (use --force to preview it anyway)", path, errNotTemplate)
}

func writeOutput(w io.Writer, path, content string) error {
	if path == "" {
		_, err := io.WriteString(w, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
