// Package warden supervises the lifecycle of a single long-running service:
// start it detached, record its pid, wait for readiness, stop it with
// graceful-then-forceful termination, and report status.
package warden

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/wardenproc/warden/internal/config"
	"github.com/wardenproc/warden/internal/launcher"
	"github.com/wardenproc/warden/internal/metrics"
	"github.com/wardenproc/warden/internal/probe"
	iapi "github.com/wardenproc/warden/internal/server"
	"github.com/wardenproc/warden/internal/store"
	"github.com/wardenproc/warden/internal/supervisor"
)

// Re-export core types for external consumers. Aliases, so conversions are
// zero-cost.

type Spec = launcher.Spec

type Status = supervisor.Status

type Config = supervisor.Config

type Prober = probe.Prober

type Store = store.Store

type StoreConfig = store.Config

type FileConfig = cfg.FileConfig

type ProbeConfig = cfg.ProbeConfig

// Launch modes.
const (
	ModeSupervised       = launcher.ModeSupervised
	ModeInteractiveDebug = launcher.ModeInteractiveDebug
)

// Lifecycle errors, re-exported for errors.Is matching.
var (
	ErrAlreadyRunning      = supervisor.ErrAlreadyRunning
	ErrOperationInProgress = supervisor.ErrOperationInProgress
	ErrStartTimeout        = supervisor.ErrStartTimeout
	ErrStopTimeout         = supervisor.ErrStopTimeout
	ErrEarlyExit           = supervisor.ErrEarlyExit
	ErrSpawn               = launcher.ErrSpawn
)

// Supervisor is a thin facade over internal/supervisor.Supervisor.
type Supervisor = supervisor.Supervisor

// New creates a Supervisor for the given configuration and optional prober.
func New(c Config, p Prober) *Supervisor { return supervisor.New(c, p) }

// LoadConfig parses a warden TOML config file.
func LoadConfig(path string) (*FileConfig, error) { return cfg.Load(path) }

// NewStore builds an event store from its configuration.
func NewStore(c StoreConfig) (Store, error) { return store.New(c) }

// NewHTTPServer starts the control API server for a supervisor.
func NewHTTPServer(addr, basePath string, sup *Supervisor, st Store, service string) *http.Server {
	return iapi.NewServer(addr, basePath, sup, st, service)
}

// Metrics helpers.

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics serves /metrics on addr using the default registry. It
// blocks in the caller's goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
