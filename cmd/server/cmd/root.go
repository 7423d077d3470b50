// Package cmd holds the eventbook command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/event-booking/internal/config"
)

var (
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "eventbook",
		Short: "Event booking API server and tools",
		Long: `eventbook serves the event booking HTTP API: managers create events,
customers register for them, and registration never exceeds capacity.

Running without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default from LOG_FORMAT)")

	addServeFlags(serveCmd)
	addServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(auditConsumerCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// newLogger applies the persistent flags over the configured values.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
	return config.NewLogger(cfg)
}
