package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drblury/notiflow/internal/runtime/config"
	"github.com/drblury/notiflow/internal/runtime/runner"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run [jobs...]",
		Short: "Run jobs",
		Long: `Run the named jobs in the given order, or every job in declaration order when none
are named. A failing job does not stop the others; the command exits non-zero if any failed.

Examples:
  notiflow -c notiflow.yaml run
  notiflow -c notiflow.yaml run nightly_checks alert_oncall
  NOTIFLOW_LOG_FORMAT=json notiflow run --metrics-textfile /var/lib/node_exporter/notiflow.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
	}
}

func (a *app) run(cmd *cobra.Command, jobs []string) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := a.logger(cmd)
	if err != nil {
		return err
	}

	obs, err := a.observability(ctx, cmd, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, obs.shutdown(context.WithoutCancel(ctx)))
	}()

	cfg, err := config.Load(ctx, a.configPath(), config.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cfg.Close(); cerr != nil {
			logger.Error("Failed to close components", cerr, nil)
		}
	}()

	r, err := runner.New(cfg,
		runner.WithLogger(logger),
		runner.WithMetrics(obs.metrics),
		runner.WithTracerProvider(obs.tracerProvider),
	)
	if err != nil {
		return err
	}

	results, runErr := r.RunAll(ctx, jobs...)
	printSummary(cmd, results)
	return runErr
}

func printSummary(cmd *cobra.Command, results []runner.JobResult) {
	out := cmd.OutOrStdout()
	for _, res := range results {
		fmt.Fprintf(out, "%-24s %-6s %4d messages  %s\n",
			res.Job, res.State, res.Gathered, res.Duration.Round(time.Millisecond))
	}
}

