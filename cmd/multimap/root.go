package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is the CLI version, overridable at build time via -ldflags.
var Version = "0.1.0-dev"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "multimap",
	Short: "Declarative multimap policy engine",
	Long: `multimap evaluates declarative filtering policies against mail
message metadata. Each policy module pairs named rules (a value selector
plus a lookup map: set, regexp, CIDR or SQLite) with a boolean expression
over the rule names, e.g. "ip & (from | !rcpt)".

Commands:
  - lint   validate a configuration without evaluating anything
  - check  evaluate one message from a file or stdin
  - run    serve evaluations over HTTP with map hot-reload and metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "multimap.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the process logger honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
