package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/coach/internal/config"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Inspect and edit configuration",
		Annotations: map[string]string{annotationNoApp: "true"},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file in use",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), rt.cfgPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				data, err := json.MarshalIndent(rt.cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a field in the config file in use",
			Long: `Set a single field using JSON path notation, for example:

  coach config set api.base_url https://coach.example.com/api
  coach config set api.timeout_ms 5000
  coach config set options.debug true`,
			Args: cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				if err := config.SetConfigFieldAt(rt.cfgPath, args[0], config.ParseValue(args[1])); err != nil {
					return err
				}
				rt.out.Success("Set %s.", args[0])
				return nil
			},
		},
	)

	return cmd
}
