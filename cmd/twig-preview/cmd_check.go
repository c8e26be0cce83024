package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	twigpreview "github.com/goliatone/go-twigpreview"
	"github.com/goliatone/go-twigpreview/pkg/preview"
	"github.com/goliatone/go-twigpreview/pkg/render"
)

func newCheckCmd(flags *globalFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Render templates with inferred data and report the stage each needed",
		Long: `check renders every template under the given paths with inferred data.
A template that only renders after helper stripping is reported with the
stage it needed; a template no stage can render fails the check. With
--strict any fallback counts as a failure.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, flags, "")
			if err != nil {
				return err
			}

			files, err := collectTemplates(args, e.cfg.Extensions)
			if err != nil {
				return err
			}
			renderer, err := e.newRenderer()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, file := range files {
				data, err := twigpreview.InferFile(file, e.inferOptions()...)
				var res twigpreview.Result
				if err == nil {
					res, err = twigpreview.RenderFile(cmd.Context(), renderer, file, data)
				}
				switch {
				case err != nil:
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
				case !res.OK():
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", file, res.Err)
				case strict && res.Stage != render.StageDirect:
					failed++
					fmt.Fprintf(out, "FAIL %s: needed stage %s\n", file, res.Stage)
				default:
					fmt.Fprintf(out, "ok   %s (%s)\n", file, res.Stage)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed", failed, len(files))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail templates that need a fallback stage")
	return cmd
}

func collectTemplates(paths, extensions []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !preview.IsTemplate(path, extensions...) || seen[path] {
				return nil
			}
			seen[path] = true
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
