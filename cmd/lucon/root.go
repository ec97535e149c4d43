package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/config"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "lucon",
	Short: "Lucon - usage-control decisions for message flows",
	Long: `Lucon decides whether messages may flow between the services of a
message-oriented service mesh.

Policies are written as LUCON theories: Horn clauses declaring rules, the
services they target, the data-flow labels they require, and the decision or
obligation that applies. Lucon answers:
  - flow decisions (ALLOW or DENY, with optional obligations)
  - label transformations of the services a message passes
  - diagnostic queries against the loaded theory`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code of its error.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and LUCON_* environment when empty)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration named by --config with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// formatter returns the formatter selected by --format.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}

// printResult writes a command result in the selected format.
func printResult(cmd *cobra.Command, result any) error {
	f, err := formatter()
	if err != nil {
		return err
	}
	return f.FormatTo(cmd.OutOrStdout(), result)
}

// commandLogger returns the logger of one-shot commands: warnings only,
// unless --verbose, written to stderr.
func commandLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	lc := cfg.Telemetry.Logging
	lc.Level = "warn"
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc, logging.Options{Writer: cmd.ErrOrStderr(), Service: "lucon"})
	if err != nil {
		return logging.Discard()
	}
	return logger
}
