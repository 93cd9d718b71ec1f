package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardenproc/warden/internal/logger"
)

func main() {
	logger.Setup(slog.LevelInfo, "")
	root := buildRoot()
	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			_, _ = fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		os.Exit(exitCodeFor(err))
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	APIUrl     string
	APITimeout time.Duration
}

func buildRoot() *cobra.Command {
	flags := &GlobalFlags{}
	wc := command{flags: flags}

	root := &cobra.Command{
		Use:   "warden",
		Short: "Single-service lifecycle supervisor",
		Long: `Warden starts, stops, and monitors one long-running service per
configuration: spawn it detached, record its pid, wait for readiness with a
bounded poll, and escalate SIGTERM to SIGKILL on stop.

Examples:
  warden start --config /etc/warden/middled.toml
  warden status --config /etc/warden/middled.toml
  warden serve --config /etc/warden/middled.toml     # control daemon
  warden stop --api-url=http://127.0.0.1:9610/api    # via daemon`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "path to TOML config file")
	pf.StringVar(&flags.APIUrl, "api-url", "", "control daemon URL (e.g. http://127.0.0.1:9610/api); overrides local operation")
	pf.DurationVar(&flags.APITimeout, "api-timeout", 60*time.Second, "request timeout for daemon operations")

	root.AddCommand(
		createStartCommand(wc),
		createStopCommand(wc),
		createRestartCommand(wc),
		createStatusCommand(wc),
		createHistoryCommand(wc),
		createServeCommand(wc),
	)
	return root
}

func createStartCommand(wc command) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the service and wait until it is ready",
		Long: `Start the configured service. The command blocks until the readiness
probe reports ready or the start timeout elapses.

Exit codes: 0 success, 64 already running, 65 readiness timeout, 66 spawn
failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wc.Start(debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "launch attached to this terminal, without readiness tracking")
	return cmd
}

func createStopCommand(wc command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the service",
		Long: `Stop the configured service with SIGTERM, escalating to SIGKILL after
the stop timeout. Stopping an already-stopped service succeeds as a no-op.

Exit codes: 0 success or no-op, 67 the process survived SIGKILL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wc.Stop()
		},
	}
}

func createRestartCommand(wc command) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the service",
		Long:  "Stop the service (no-op when already stopped), then start it again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wc.Restart()
		},
	}
}

func createStatusCommand(wc command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service state, pid, and uptime",
		Long:  "Print the current lifecycle state. Exit code 0 when running, 1 otherwise.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wc.Status()
		},
	}
}

func createHistoryCommand(wc command) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wc.History(limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events to show")
	return cmd
}

func createServeCommand(wc command) *cobra.Command {
	var daemonize bool
	var logFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the warden control daemon",
		Long: `Run the long-lived control daemon: supervises the service, exposes the
HTTP control API, and serves Prometheus metrics when enabled.

Examples:
  warden serve --config /etc/warden/middled.toml
  warden serve --config /etc/warden/middled.toml --daemonize`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wc.Serve(daemonize, logFile)
		},
	}
	cmd.Flags().BoolVar(&daemonize, "daemonize", false, "run in the background")
	cmd.Flags().StringVar(&logFile, "logfile", "", "redirect daemon logs to file (overrides [server].log_file)")
	return cmd
}
