// Package cmd implements the notiflow command line.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drblury/notiflow/internal/runtime/logging"
	_ "github.com/drblury/notiflow/plugin/plugins"
)

// Setting keys. Each is a persistent flag and can be set through NOTIFLOW_<KEY>, dashes
// replaced by underscores.
const (
	keyConfig          = "config"
	keyLogFormat       = "log-format"
	keyLogLevel        = "log-level"
	keyMetricsAddr     = "metrics-addr"
	keyMetricsTextfile = "metrics-textfile"
	keyTrace           = "trace"
)

// DefaultConfigFile is read when neither --config nor NOTIFLOW_CONFIG is given.
const DefaultConfigFile = "notiflow.yaml"

// app carries the resolved process settings to the subcommands.
type app struct {
	v *viper.Viper
}

func (a *app) configPath() string { return a.v.GetString(keyConfig) }

func (a *app) logger(cmd *cobra.Command) (logging.ServiceLogger, error) {
	return logging.New(logging.Options{
		Writer: cmd.ErrOrStderr(),
		Format: a.v.GetString(keyLogFormat),
		Level:  a.v.GetString(keyLogLevel),
	})
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	a := &app{v: v}

	root := &cobra.Command{
		Use:   "notiflow",
		Short: "notiflow routes notifications from data sources to destinations",
		Long: `notiflow runs the jobs declared in a YAML configuration file. Each job queries its
sources for messages and dispatches them to message groups or destinations, filtering and
formatting per receiver.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", DefaultConfigFile, "configuration file")
	flags.String(keyLogFormat, "text", "log format: text, json")
	flags.String(keyLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(keyMetricsAddr, "", "serve Prometheus metrics on this address while jobs run")
	flags.String(keyMetricsTextfile, "", "write Prometheus metrics to this file after the run")
	flags.Bool(keyTrace, false, "print trace spans to stderr")
	cobra.CheckErr(v.BindPFlags(flags))

	v.SetEnvPrefix("NOTIFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newRunCmd(a), newValidateCmd(a), newPluginsCmd())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
