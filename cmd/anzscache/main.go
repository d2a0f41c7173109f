package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "anzscache",
		Short:         "ANZSCO occupation lookup and answer cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "anzscache.yaml", "path to config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (overrides log_level in config)")

	root.AddCommand(
		newServeCmd(g),
		newLookupCmd(g),
		newAskCmd(g),
		newCacheCmd(g),
		newIndexCmd(g),
		newQueriesCmd(g),
		newStatsCmd(g),
		newMCPCmd(g),
	)
	return root
}

// newLogger writes human-readable logs to stderr; stdout stays free for command
// output and the MCP transport.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}
