// Package store records confirmed lifecycle transitions of the supervised
// service so `warden history` and post-mortem tooling can reconstruct what
// happened across independent CLI invocations.
package store

import (
	"context"
	"time"
)

// Event is one confirmed lifecycle transition.
type Event struct {
	Service    string    `json:"service"`
	PID        int       `json:"pid"`
	State      string    `json:"state"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Store is a destination for lifecycle events. Implementations must be safe
// for concurrent use.
type Store interface {
	Append(ctx context.Context, e Event) error
	Recent(ctx context.Context, service string, limit int) ([]Event, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Type  string `json:"type" mapstructure:"type"`   // "sqlite" (default), "postgres", "clickhouse"
	DSN   string `json:"dsn" mapstructure:"dsn"`     // backend-specific DSN
	Table string `json:"table" mapstructure:"table"` // optional table override (clickhouse)
}
