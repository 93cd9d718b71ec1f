package client

import (
	"errors"
	"time"
)

// Status is the supervisor status as reported by the daemon.
type Status struct {
	Service   string    `json:"service"`
	State     string    `json:"state"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

// Event is one recorded lifecycle transition.
type Event struct {
	Service    string    `json:"service"`
	PID        int       `json:"pid"`
	State      string    `json:"state"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ErrorResponse is the daemon's error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Client-side mirrors of the daemon's error kinds, so remote failures map
// to the same exit codes as local ones.
var (
	ErrAlreadyRunning      = errors.New("service already running")
	ErrOperationInProgress = errors.New("operation already in progress")
	ErrStartTimeout        = errors.New("service did not become ready before timeout")
	ErrStopTimeout         = errors.New("service survived forced termination")
	ErrEarlyExit           = errors.New("service exited before becoming ready")
	ErrSpawn               = errors.New("spawn failed")
)

func kindToErr(kind string) error {
	switch kind {
	case "already_running":
		return ErrAlreadyRunning
	case "operation_in_progress":
		return ErrOperationInProgress
	case "start_timeout":
		return ErrStartTimeout
	case "stop_timeout":
		return ErrStopTimeout
	case "early_exit":
		return ErrEarlyExit
	case "spawn":
		return ErrSpawn
	default:
		return nil
	}
}
