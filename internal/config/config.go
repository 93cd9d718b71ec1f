package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/wardenproc/warden/internal/launcher"
	"github.com/wardenproc/warden/internal/probe"
	"github.com/wardenproc/warden/internal/store"
	"github.com/wardenproc/warden/internal/supervisor"
)

// FileConfig is the top-level TOML structure.
//
//	[service]
//	name = "middled"
//	command = "/usr/sbin/middled --foreground"
//	[probe]
//	type = "http"
//	url = "http://127.0.0.1:8080/healthz"
type FileConfig struct {
	Service launcher.Spec `mapstructure:"service"`
	PIDFile string        `mapstructure:"pid_file"`

	StartTimeout  time.Duration `mapstructure:"start_timeout"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`

	Probe   ProbeConfig   `mapstructure:"probe"`
	Store   *store.Config `mapstructure:"store"`
	Server  *ServerConfig `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ProbeConfig selects and configures the readiness probe. An empty type
// means no probe: the readiness wait degrades to a fixed delay.
type ProbeConfig struct {
	Type           string        `mapstructure:"type"` // "http", "command" or ""
	URL            string        `mapstructure:"url"`
	Command        string        `mapstructure:"command"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ServerConfig configures the warden control daemon (`warden serve`).
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
	PIDFile  string `mapstructure:"pid_file"`
	LogFile  string `mapstructure:"log_file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Load parses the TOML file at path and validates the minimum needed to
// supervise something.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.Service.Name == "" {
		return nil, fmt.Errorf("config %s: service.name is required", path)
	}
	if fc.Service.Command == "" {
		return nil, fmt.Errorf("config %s: service.command is required", path)
	}
	if fc.PIDFile == "" {
		return nil, fmt.Errorf("config %s: pid_file is required", path)
	}
	return &fc, nil
}

// BuildProber constructs the configured readiness prober, or nil when none
// is configured.
func (c ProbeConfig) BuildProber() (probe.Prober, error) {
	switch c.Type {
	case "":
		return nil, nil
	case "http":
		if c.URL == "" {
			return nil, fmt.Errorf("probe.url is required for http probe")
		}
		return probe.NewHTTPProber(c.URL, c.RequestTimeout), nil
	case "command":
		if c.Command == "" {
			return nil, fmt.Errorf("probe.command is required for command probe")
		}
		return probe.CommandProber{Command: c.Command}, nil
	default:
		return nil, fmt.Errorf("unknown probe type %q", c.Type)
	}
}

// SupervisorConfig converts the file config into the supervisor's runtime
// configuration.
func (fc *FileConfig) SupervisorConfig() supervisor.Config {
	return supervisor.Config{
		Service:       fc.Service,
		PIDFile:       fc.PIDFile,
		StartTimeout:  fc.StartTimeout,
		ProbeInterval: fc.ProbeInterval,
		StopTimeout:   fc.StopTimeout,
	}
}
