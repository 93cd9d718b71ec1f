// Package probe waits for a launched service to become ready. Readiness is
// distinct from liveness: a spawned process that has not yet bound its
// sockets is alive but not ready. The wait is a bounded, cancellable poll.
package probe

import (
	"context"
	"log/slog"
	"time"
)

// Result is the outcome of a readiness wait.
type Result int

const (
	Ready Result = iota
	TimedOut
	Cancelled
	ProcessExited
)

func (r Result) String() string {
	switch r {
	case Ready:
		return "ready"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	case ProcessExited:
		return "process_exited"
	default:
		return "unknown"
	}
}

// Prober checks one readiness signal exposed by the managed service. A nil
// error means ready. Implementations must be safe for repeated calls.
type Prober interface {
	Check(ctx context.Context) error
	Describe() string
}

// Defaults applied when the config leaves interval/timeout zero.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultInterval = 250 * time.Millisecond
)

// WaitReady polls p every interval until it reports ready, pid dies, timeout
// elapses, or ctx is cancelled. alive is consulted each round so a crashed
// service fails the start immediately instead of burning the whole timeout.
func WaitReady(ctx context.Context, p Prober, alive func(int) bool, pid int, timeout, interval time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if p == nil {
		// No readiness signal configured: degrade to a fixed delay. This is
		// a product gap in the managed service, not something the
		// supervisor can invent around.
		slog.Warn("no readiness probe configured; falling back to fixed delay",
			"delay", timeout)
		select {
		case <-ctx.Done():
			return Cancelled
		case <-time.After(timeout):
			if alive != nil && !alive(pid) {
				return ProcessExited
			}
			return Ready
		}
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		if alive != nil && !alive(pid) {
			return ProcessExited
		}
		if err := p.Check(ctx); err == nil {
			return Ready
		}
		select {
		case <-ctx.Done():
			return Cancelled
		case <-deadline.C:
			return TimedOut
		case <-tick.C:
		}
	}
}
