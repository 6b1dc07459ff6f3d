// Command digest prints today's digest from a running digest server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"daily-digest/internal/client/poller"
	"daily-digest/internal/observability/logging"
)

const defaultServer = "http://localhost:8080"

// options are the flags shared by every subcommand.
type options struct {
	server  string
	timeout time.Duration
	output  string
	verbose bool
}

func (o *options) poller() *poller.Poller {
	level := "error"
	if o.verbose {
		level = "debug"
	}
	logger := logging.NewLoggerTo(os.Stderr, level, "text")
	return poller.New(poller.NewClient(o.server, o.timeout), poller.WithLogger(logger))
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "digest",
		Short:         "Show the daily almanac, horoscope and quotation.",
		Long:          `digest talks to a digest server and renders today's lunar almanac, horoscope forecasts and quotation.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case outputText, outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("invalid output %q: must be text, json or yaml", opts.output)
			}
		},
	}

	server := os.Getenv("DIGEST_SERVER_URL")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "digest server base URL (env DIGEST_SERVER_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "per-request timeout; a cold horoscope sweep takes about 15s")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log client activity to stderr")

	root.AddCommand(newShowCmd(opts), newRetryCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
