package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wardenproc/warden"
	"github.com/wardenproc/warden/internal/logger"
	"github.com/wardenproc/warden/internal/pidfile"
)

// Serve runs the long-lived control daemon: supervise the service, expose
// the HTTP control API, optionally serve Prometheus metrics.
func (c command) Serve(daemonize bool, logFile string) error {
	if c.flags.ConfigPath == "" {
		return fmt.Errorf("config file required for serve. Use --config=warden.toml")
	}
	fc, err := warden.LoadConfig(c.flags.ConfigPath)
	if err != nil {
		return err
	}
	if fc.Server == nil {
		return fmt.Errorf("config %s: [server] must be configured for serve", c.flags.ConfigPath)
	}

	if daemonize {
		if logFile == "" {
			logFile = fc.Server.LogFile
		}
		return daemonizeSelf(fc.Server.PIDFile, logFile)
	}

	logPath := logFile
	if logPath == "" {
		logPath = fc.Server.LogFile
	}
	log := logger.Setup(slog.LevelInfo, logPath)

	if fc.Metrics.Enabled {
		if err := warden.RegisterMetricsDefault(); err != nil {
			log.Warn("metrics registration failed", "error", err)
		}
		if fc.Metrics.Listen != "" {
			go func() {
				if err := warden.ServeMetrics(fc.Metrics.Listen); err != nil {
					log.Error("metrics server stopped", "error", err)
				}
			}()
		}
	}

	sup, st, cleanup, err := c.localSetup()
	if err != nil {
		return err
	}
	defer cleanup()

	// Adopt a service left running by a previous daemon instance.
	sup.Recover()

	srv := warden.NewHTTPServer(fc.Server.Listen, fc.Server.BasePath, sup, st, fc.Service.Name)
	log.Info("control API listening", "addr", fc.Server.Listen, "base_path", fc.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Info("shutting down", "signal", sig.String())
	if err := srv.Close(); err != nil {
		log.Warn("server close", "error", err)
	}
	if fc.Server.PIDFile != "" {
		_ = pidfile.Clear(fc.Server.PIDFile)
	}
	return nil
}
