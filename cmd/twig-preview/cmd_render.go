package main

import (
	"fmt"

	"github.com/spf13/cobra"

	twigpreview "github.com/goliatone/go-twigpreview"
	"github.com/goliatone/go-twigpreview/internal/prompt"
	"github.com/goliatone/go-twigpreview/pkg/preview"
	"github.com/goliatone/go-twigpreview/pkg/sample"
)

// promptDriver is nil outside tests, selecting the terminal driver.
var promptDriver prompt.Driver

func newRenderCmd(flags *globalFlags) *cobra.Command {
	var (
		dataPath    string
		out         string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template once with inferred or supplied data",
		Long: `Render a template once. Sample data comes from --data (JSON or YAML),
otherwise it is inferred from the template. --interactive lets you adjust
the data before rendering.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			e, err := setup(cmd, flags, path)
			if err != nil {
				return err
			}
			if err := checkTemplate(path, e.cfg, flags.force); err != nil {
				return err
			}

			var data sample.Data
			if dataPath != "" {
				if data, err = sample.LoadFile(dataPath); err != nil {
					return err
				}
			} else if data, err = twigpreview.InferFile(path, e.inferOptions()...); err != nil {
				return err
			}

			if interactive {
				if data, err = prompt.NewEditor(promptDriver).Edit(cmd.Context(), data); err != nil {
					return err
				}
			}

			renderer, err := e.newRenderer()
			if err != nil {
				return err
			}
			res, err := twigpreview.RenderFile(cmd.Context(), renderer, path, data)
			if err != nil {
				return err
			}
			if !res.OK() {
				return fmt.Errorf("render %s: %w", path, res.Err)
			}
			e.logger.Debug("rendered", "path", path, "stage", res.Stage)

			html := res.HTML
			if e.cfg.Sanitize {
				html = preview.SanitizeHTML(html)
			}
			return writeOutput(cmd.OutOrStdout(), out, html)
		},
	}
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "sample data file (.json, .yaml, .yml)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write HTML to a file instead of stdout")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "edit the sample data before rendering")
	return cmd
}
