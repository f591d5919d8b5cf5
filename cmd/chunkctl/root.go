package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/chunkalloc/internal/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	logDir  string
	logJSON bool
)

// stdout is where command output goes; tests swap it.
var stdout io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "chunkctl",
	Short: "Drive and inspect the first-fit chunk allocator",
	Long: `chunkctl replays allocation traces against the first-fit chunk allocator,
shadowing every call with the Go heap, and reports allocator statistics.
It can verify heap invariants and content equality after every operation.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logDir, "log", "", "Write structured logs to a dated file in this directory")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit log records as JSON")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging enables the shared logger when --verbose or --log is given.
// It must run before any allocator is created, since allocators capture the
// logger at construction.
func initLogging(cmd *cobra.Command, args []string) error {
	opts := logger.Options{
		Enabled: verbose || logDir != "",
		Level:   slog.LevelInfo,
		JSON:    logJSON,
		LogDir:  logDir,
	}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	return logger.Init(opts)
}

// Helper functions for output

var printer = message.NewPrinter(language.English)

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		printer.Fprintf(stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		printer.Fprintf(stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
