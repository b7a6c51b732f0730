package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the application name and version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoApp: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rt.cfg.App.Name, rt.cfg.App.Version)
			return nil
		},
	}
}
