// Package supervisor composes launcher, pidfile and probe into the
// start/stop/status/restart operations external callers interact with.
// One Supervisor manages one service instance on one host.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/wardenproc/warden/internal/launcher"
	"github.com/wardenproc/warden/internal/metrics"
	"github.com/wardenproc/warden/internal/pidfile"
	"github.com/wardenproc/warden/internal/probe"
	"github.com/wardenproc/warden/internal/store"
)

// Config holds the per-instance configuration. Everything is explicit;
// there is no ambient global state, so independent instances can coexist
// under test.
type Config struct {
	Service launcher.Spec `json:"service" mapstructure:"service"`
	PIDFile string        `json:"pid_file" mapstructure:"pid_file"`

	// Readiness wait bounds. StartTimeout caps the whole wait,
	// ProbeInterval is the poll period.
	StartTimeout  time.Duration `json:"start_timeout" mapstructure:"start_timeout"`
	ProbeInterval time.Duration `json:"probe_interval" mapstructure:"probe_interval"`

	// StopTimeout bounds the graceful-termination wait before escalating
	// to SIGKILL.
	StopTimeout time.Duration `json:"stop_timeout" mapstructure:"stop_timeout"`
}

// Status is the externally visible view of the service.
type Status struct {
	Service   string    `json:"service"`
	State     string    `json:"state"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

const (
	defaultStopTimeout = 5 * time.Second
	stopPollInterval   = 50 * time.Millisecond
	killGrace          = 500 * time.Millisecond
)

// Supervisor owns the ManagedProcess record for one service.
//
// Lock hierarchy: opMu serializes start/stop/restart (TryLock so a second
// caller fails fast instead of queueing on the pid file); mu protects the
// state fields and is never held across blocking waits.
type Supervisor struct {
	cfg    Config
	prober probe.Prober
	log    *slog.Logger

	opMu sync.Mutex

	mu        sync.Mutex
	state     State
	pid       int
	startedAt time.Time
	child     *launcher.Child
	watchGen  int

	st store.Store
}

// New creates a Supervisor for cfg. prober may be nil; the readiness wait
// then degrades to a fixed delay (see probe.WaitReady).
func New(cfg Config, prober probe.Prober) *Supervisor {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	return &Supervisor{
		cfg:    cfg,
		prober: prober,
		log:    slog.Default().With("service", cfg.Service.Name),
		state:  StateStopped,
	}
}

// SetStore configures an event store for confirmed transitions. Passing nil
// disables recording.
func (s *Supervisor) SetStore(st store.Store) { s.st = st }

// Start launches the service and blocks until it is ready, the start
// timeout elapses, or ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrOperationInProgress
	}
	defer s.opMu.Unlock()
	return s.start(ctx)
}

// Stop terminates the service: SIGTERM, bounded wait, then SIGKILL.
// Stopping an already-stopped service is a no-op success.
func (s *Supervisor) Stop(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrOperationInProgress
	}
	defer s.opMu.Unlock()
	return s.stop(ctx)
}

// Restart stops the service (no-op if already stopped) and starts it again.
func (s *Supervisor) Restart(ctx context.Context) error {
	if !s.opMu.TryLock() {
		return ErrOperationInProgress
	}
	defer s.opMu.Unlock()
	if err := s.stop(ctx); err != nil {
		return err
	}
	return s.start(ctx)
}

func (s *Supervisor) start(ctx context.Context) error {
	name := s.cfg.Service.Name

	pid, live, stale, err := pidfile.ReadLive(s.cfg.PIDFile, launcher.Alive)
	if err != nil {
		return err
	}
	if live {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	if stale {
		s.log.Warn("clearing stale pid file", "pid", pid, "path", s.cfg.PIDFile)
		if err := pidfile.Clear(s.cfg.PIDFile); err != nil {
			return err
		}
	}

	if s.cfg.Service.Mode == launcher.ModeInteractiveDebug {
		// Opaque alternate launch mode: attach to the caller's terminal,
		// no pid file, no readiness tracking.
		child, err := launcher.Launch(s.cfg.Service)
		if err != nil {
			metrics.IncStartFailure(name, "spawn")
			return err
		}
		s.log.Info("started in interactive debug mode", "pid", child.PID)
		return nil
	}

	child, err := launcher.Launch(s.cfg.Service)
	if err != nil {
		metrics.IncStartFailure(name, "spawn")
		s.recordEvent(StateFailed, 0, "spawn: "+err.Error())
		return err
	}

	if err := pidfile.Write(s.cfg.PIDFile, child.PID); err != nil {
		// Can't record the pid: kill the child rather than leave an
		// untracked process behind.
		_ = launcher.Terminate(child.PID, syscall.SIGKILL)
		return err
	}

	s.mu.Lock()
	s.child = child
	s.pid = child.PID
	s.startedAt = child.StartedAt
	s.mu.Unlock()
	s.setState(StateStarting)
	s.recordEvent(StateStarting, child.PID, "")

	waitStart := time.Now()
	res := probe.WaitReady(ctx, s.prober, launcher.Alive, child.PID, s.cfg.StartTimeout, s.cfg.ProbeInterval)
	switch res {
	case probe.Ready:
		metrics.ObserveReadinessWait(name, time.Since(waitStart).Seconds())
		s.setState(StateReady)
		s.setState(StateRunning)
		metrics.IncStart(name)
		s.recordEvent(StateRunning, child.PID, "")
		s.watch(child)
		s.log.Info("service is ready", "pid", child.PID, "wait", time.Since(waitStart))
		return nil

	case probe.TimedOut:
		metrics.IncStartFailure(name, "timeout")
		s.setState(StateFailed)
		s.killOrphan(child.PID)
		_ = pidfile.Clear(s.cfg.PIDFile)
		s.recordEvent(StateFailed, child.PID, "readiness timeout")
		return fmt.Errorf("%w after %s", ErrStartTimeout, s.cfg.StartTimeout)

	case probe.ProcessExited:
		metrics.IncStartFailure(name, "early_exit")
		s.setState(StateFailed)
		_ = pidfile.Clear(s.cfg.PIDFile)
		detail := ""
		if exitErr := child.ExitErr(); exitErr != nil {
			detail = exitErr.Error()
		}
		s.recordEvent(StateFailed, child.PID, detail)
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrEarlyExit, detail)
		}
		return ErrEarlyExit

	default: // probe.Cancelled
		// Shutdown requested mid-wait: don't leak an unconfirmed process.
		s.killOrphan(child.PID)
		_ = pidfile.Clear(s.cfg.PIDFile)
		s.setState(StateStopped)
		s.recordEvent(StateStopped, child.PID, "start cancelled")
		return fmt.Errorf("start cancelled: %w", ctx.Err())
	}
}

func (s *Supervisor) stop(ctx context.Context) error {
	name := s.cfg.Service.Name

	pid, live, stale, err := pidfile.ReadLive(s.cfg.PIDFile, launcher.Alive)
	if err != nil {
		return err
	}
	if stale {
		s.log.Warn("clearing stale pid file on stop", "pid", pid)
		_ = pidfile.Clear(s.cfg.PIDFile)
	}
	if !live {
		// Already stopped; make the recorded state agree.
		s.mu.Lock()
		cur := s.state
		s.mu.Unlock()
		if cur != StateStopped {
			s.setState(StateStopped)
		}
		return nil
	}

	s.setState(StateStopping)
	s.invalidateWatch()

	if err := launcher.Terminate(pid, syscall.SIGTERM); err != nil && !errors.Is(err, launcher.ErrProcessNotFound) {
		return err
	}
	if s.awaitDeath(ctx, pid, s.cfg.StopTimeout) {
		return s.finishStop(name, pid, "")
	}

	s.log.Warn("graceful stop timed out, escalating", "pid", pid, "wait", s.cfg.StopTimeout)
	_ = launcher.Terminate(pid, syscall.SIGKILL)
	if s.awaitDeath(ctx, pid, killGrace) {
		return s.finishStop(name, pid, "killed after graceful timeout")
	}

	// Still alive after SIGKILL: likely stuck in uninterruptible sleep.
	// Leave the pid file, it still names a live process.
	s.setState(StateFailed)
	s.recordEvent(StateFailed, pid, "survived SIGKILL")
	return fmt.Errorf("%w (pid %d)", ErrStopTimeout, pid)
}

func (s *Supervisor) finishStop(name string, pid int, detail string) error {
	if err := pidfile.Clear(s.cfg.PIDFile); err != nil {
		return err
	}
	s.setState(StateStopped)
	metrics.IncStop(name)
	s.recordEvent(StateStopped, pid, detail)
	s.log.Info("service stopped", "pid", pid)
	return nil
}

// killOrphan force-terminates a process whose readiness was never
// confirmed and waits briefly for it to go away.
func (s *Supervisor) killOrphan(pid int) {
	_ = launcher.Terminate(pid, syscall.SIGKILL)
	deadline := time.Now().Add(killGrace)
	for time.Now().Before(deadline) && launcher.Alive(pid) {
		time.Sleep(stopPollInterval)
	}
}

// awaitDeath polls liveness until pid is gone, d elapses, or ctx is done.
// Reports whether the process died.
func (s *Supervisor) awaitDeath(ctx context.Context, pid int, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if !launcher.Alive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return !launcher.Alive(pid)
		case <-time.After(stopPollInterval):
		}
	}
	return !launcher.Alive(pid)
}

// Recover aligns in-memory state with a service already running on the
// host, e.g. when the control daemon restarts while the service stays up.
// The original start time is not recoverable from the pid alone, so uptime
// starts over from the recovery point.
func (s *Supervisor) Recover() {
	pid, live, stale, err := pidfile.ReadLive(s.cfg.PIDFile, launcher.Alive)
	if err != nil {
		s.log.Warn("recover: pid file unreadable", "error", err)
		return
	}
	if stale {
		s.log.Warn("recover: clearing stale pid file", "pid", pid)
		_ = pidfile.Clear(s.cfg.PIDFile)
		return
	}
	if !live {
		return
	}
	s.mu.Lock()
	s.pid = pid
	s.startedAt = time.Now()
	s.mu.Unlock()
	s.setState(StateRunning)
	s.log.Info("recovered running service", "pid", pid)
}

// Status cross-checks the pid file against real process liveness so a crash
// between polls is reported instead of a ghost Running.
func (s *Supervisor) Status() Status {
	pid, live, stale, err := pidfile.ReadLive(s.cfg.PIDFile, launcher.Alive)
	if err != nil {
		s.log.Warn("status: pid file unreadable", "error", err)
	}

	s.mu.Lock()
	cur := s.state
	startedAt := s.startedAt
	s.mu.Unlock()

	if !live && (cur == StateRunning || cur == StateReady || cur == StateStarting) {
		// Died behind our back.
		if stale {
			_ = pidfile.Clear(s.cfg.PIDFile)
		}
		s.setState(StateFailed)
		s.recordEvent(StateFailed, pid, "found dead during status check")
		cur = StateFailed
	}

	st := Status{
		Service: s.cfg.Service.Name,
		State:   cur.String(),
		Running: live && cur == StateRunning,
	}
	if live {
		st.PID = pid
		if !startedAt.IsZero() {
			st.StartedAt = startedAt
			st.Uptime = time.Since(startedAt).Round(time.Second).String()
		}
	}
	return st
}

// watch observes the child in the background and transitions Running ->
// Failed when it dies outside of an explicit stop.
func (s *Supervisor) watch(child *launcher.Child) {
	s.mu.Lock()
	s.watchGen++
	gen := s.watchGen
	s.mu.Unlock()

	go func() {
		<-child.Done()
		s.mu.Lock()
		// A newer start or an explicit stop owns the state now.
		outdated := gen != s.watchGen || s.state != StateRunning
		pid := child.PID
		s.mu.Unlock()
		if outdated {
			return
		}
		s.setState(StateFailed)
		_ = pidfile.Clear(s.cfg.PIDFile)
		detail := "exited unexpectedly"
		if err := child.ExitErr(); err != nil {
			detail = err.Error()
		}
		s.recordEvent(StateFailed, pid, detail)
		s.log.Error("service died unexpectedly", "pid", pid, "detail", detail)
	}()
}

// invalidateWatch detaches any running watcher before an explicit stop so
// the intentional death is not reported as a failure.
func (s *Supervisor) invalidateWatch() {
	s.mu.Lock()
	s.watchGen++
	s.mu.Unlock()
}

func (s *Supervisor) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	name := s.cfg.Service.Name
	s.mu.Unlock()

	metrics.RecordStateTransition(name, prev.String(), next.String())
	metrics.SetCurrentState(name, prev.String(), false)
	metrics.SetCurrentState(name, next.String(), true)
}

func (s *Supervisor) recordEvent(st State, pid int, detail string) {
	if s.st == nil {
		return
	}
	e := store.Event{
		Service:    s.cfg.Service.Name,
		PID:        pid,
		State:      st.String(),
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.st.Append(context.Background(), e); err != nil {
		s.log.Warn("failed to record lifecycle event", "error", err)
	}
}
