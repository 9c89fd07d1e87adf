package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"relief-hq/relief/pkg/cli"
	"relief-hq/relief/pkg/telemetry/tracing"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "relief",
	Short: "Relief - explainable substitute teacher assignment",
	Long: `Relief decides who covers a vacated lesson.

A policy combines golden rules (probabilistic hard constraints and score
adjustments) with a priority ladder (ordered scoring steps). For every
candidate the engine produces a decision trace with a human-readable
breakdown of how the score was reached.

Configuration is read from --config (YAML) and RELIEF_* environment
variables, e.g. RELIEF_POLICY_PATH or RELIEF_TELEMETRY_LOGGING_LEVEL.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, and a W3C trace context in TRACEPARENT becomes the parent of
// the command span.
func Execute() {
	ctx, stop := cli.SetupSignalHandler(tracing.FromEnvironment(context.Background()))
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and RELIEF_* variables when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json (overrides config)")
}

// commandContext returns the context of cmd, or a background context when
// a command function is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// stdout returns the output writer of cmd, or os.Stdout.
func stdout(cmd *cobra.Command) io.Writer {
	if cmd != nil {
		return cmd.OutOrStdout()
	}
	return os.Stdout
}
