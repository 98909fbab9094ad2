package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drblury/notiflow/plugin"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the registered sources, destinations, formatters and filterers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, capability := range plugin.Capabilities {
				fmt.Fprintf(out, "%s:\n", capability)
				for _, name := range plugin.DefaultRegistry.Names(capability) {
					fmt.Fprintf(out, "  %s\n", name)
				}
			}
			return nil
		},
	}
}
