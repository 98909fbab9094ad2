package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drblury/notiflow/internal/runtime/config"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and check its required sections",
		Long: `Load the configuration, instantiating every declared component, and check that the
sources, destinations, message_groups and jobs sections are present.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := a.logger(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Context(), a.configPath(), config.WithLogger(logger))
			if err != nil {
				return err
			}
			defer func() {
				if err := cfg.Close(); err != nil {
					logger.Error("Failed to close components", err, nil)
				}
			}()
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "configuration is valid")
			fmt.Fprintf(out, "  sources:        %d\n", len(cfg.SourceNames()))
			fmt.Fprintf(out, "  destinations:   %d\n", len(cfg.DestinationNames()))
			fmt.Fprintf(out, "  message groups: %d\n", len(cfg.GroupNames()))
			fmt.Fprintf(out, "  jobs:           %d\n", len(cfg.JobNames()))
			return nil
		},
	}
}
