package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	twigpreview "github.com/goliatone/go-twigpreview"
)

func newInferCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "infer <template>",
		Short: "Print the sample data inferred from a template",
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

			data, err := twigpreview.InferFile(path, e.inferOptions()...)
			if err != nil {
				return err
			}

			var encoded string
			switch format {
			case "json":
				encoded = data.JSON() + "\n"
			case "yaml":
				payload, err := yaml.Marshal(map[string]any(data))
				if err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				encoded = string(payload)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return writeOutput(cmd.OutOrStdout(), out, encoded)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	return cmd
}
