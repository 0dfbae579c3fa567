package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the selectable models",
		Long: `List the models offered by the chat model selector. The current
default is marked with '*'. Any other identifier can still be passed
with --model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(deps, opts)
			if err != nil {
				return err
			}
			for _, m := range cfg.SelectableModels() {
				marker := " "
				if m == cfg.DefaultModel {
					marker = "*"
				}
				fmt.Fprintf(deps.Stdout, "%s %s\n", marker, m)
			}
			return nil
		},
	}
}
