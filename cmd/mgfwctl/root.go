package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/me/mgfw/pkg/logging"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	sink   logging.Sink
	client *debugClient
)

// defaultServer returns the debug server URL, checking MGFW_SERVER first —
// the same env-var-then-default pattern as wilke-GoWe's GOWE_SERVER.
func defaultServer() string {
	if s := os.Getenv("MGFW_SERVER"); s != "" {
		return s
	}
	return "http://localhost:7070"
}

// newRootCmd builds the mgfwctl cobra tree, grounded on
// wilke-GoWe/internal/cli/root.go.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mgfwctl",
		Short: "mgfwctl — demo and ops CLI for the mgfw DI/scheduler framework",
		Long:  "mgfwctl wires up an Injector, a Scheduler, and a QueueHive, and talks to their debug server.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			sink = logging.NewSlogSink(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = newDebugClient(flagServer, sink)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "debug server URL (or MGFW_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (off, critical, error, warn, info, debug, trace)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(newDemoCmd(), newJobsCmd())
	return root
}
