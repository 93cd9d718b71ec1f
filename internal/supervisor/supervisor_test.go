package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/wardenproc/warden/internal/launcher"
	"github.com/wardenproc/warden/internal/pidfile"
	"github.com/wardenproc/warden/internal/store"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix-only test")
	}
}

func waitUntil(timeout, step time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(step)
	}
	return cond()
}

// readyAfter fails the first n checks, then reports ready forever.
type readyAfter struct {
	mu   sync.Mutex
	left int
}

func (p *readyAfter) Check(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.left > 0 {
		p.left--
		return errors.New("not yet")
	}
	return nil
}

func (p *readyAfter) Describe() string { return "test" }

// neverReady always fails.
type neverReady struct{}

func (neverReady) Check(ctx context.Context) error { return errors.New("never") }
func (neverReady) Describe() string                { return "never" }

// memStore records events in memory.
type memStore struct {
	mu     sync.Mutex
	events []store.Event
}

func (m *memStore) Append(ctx context.Context, e store.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memStore) Recent(ctx context.Context, service string, limit int) ([]store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Event, 0, len(m.events))
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].Service == service {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) states() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.State
	}
	return out
}

func testConfig(t *testing.T, command string) Config {
	t.Helper()
	return Config{
		Service: launcher.Spec{Name: "svc", Command: command},
		PIDFile: filepath.Join(t.TempDir(), "svc.pid"),

		StartTimeout:  5 * time.Second,
		ProbeInterval: 20 * time.Millisecond,
		StopTimeout:   2 * time.Second,
	}
}

func TestStartBecomesReadyThenStops(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, &readyAfter{left: 2})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := s.Status()
	if !st.Running || st.State != "running" {
		t.Fatalf("expected running status, got %+v", st)
	}
	if st.PID <= 0 {
		t.Fatalf("expected a pid, got %+v", st)
	}
	pid, ok, err := pidfile.Read(cfg.PIDFile)
	if err != nil || !ok || pid != st.PID {
		t.Fatalf("pid file mismatch: pid=%d ok=%v err=%v status=%+v", pid, ok, err, st)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	st = s.Status()
	if st.Running || st.State != "stopped" {
		t.Fatalf("expected stopped status, got %+v", st)
	}
	if _, err := os.Stat(cfg.PIDFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid file should be cleared after stop: %v", err)
	}
	if launcher.Alive(pid) {
		t.Fatalf("pid %d still alive after stop", pid)
	}
}

func TestStartReadinessTimeout(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	cfg.StartTimeout = 200 * time.Millisecond
	s := New(cfg, neverReady{})

	err := s.Start(context.Background())
	if !errors.Is(err, ErrStartTimeout) {
		t.Fatalf("expected ErrStartTimeout, got %v", err)
	}
	if st := s.Status(); st.State != "failed" {
		t.Fatalf("expected failed state, got %+v", st)
	}
	if _, err := os.Stat(cfg.PIDFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid file should be cleared after failed start: %v", err)
	}
}

func TestStartEarlyExit(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "true")
	s := New(cfg, neverReady{})

	err := s.Start(context.Background())
	if !errors.Is(err, ErrEarlyExit) {
		t.Fatalf("expected ErrEarlyExit, got %v", err)
	}
	if st := s.Status(); st.State != "failed" {
		t.Fatalf("expected failed state, got %+v", st)
	}
	if _, err := os.Stat(cfg.PIDFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid file should be cleared after early exit: %v", err)
	}
}

func TestStartAlreadyRunning(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, &readyAfter{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	err := s.Start(context.Background())
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStartClearsStalePidFile(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	// A pid that cannot be a live process.
	if err := pidfile.Write(cfg.PIDFile, 1<<31-2); err != nil {
		t.Fatalf("seed stale pid file: %v", err)
	}
	s := New(cfg, &readyAfter{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start over stale pid file: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	pid, ok, err := pidfile.Read(cfg.PIDFile)
	if err != nil || !ok {
		t.Fatalf("pid file unreadable: ok=%v err=%v", ok, err)
	}
	if pid == 1<<31-2 {
		t.Fatalf("stale pid not replaced")
	}
}

func TestStopWhenNotRunningIsNoop(t *testing.T) {
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on stopped service: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if st := s.Status(); st.State != "stopped" {
		t.Fatalf("expected stopped, got %+v", st)
	}
}

func TestStopEscalatesToSigkill(t *testing.T) {
	requireUnix(t)
	// The shell ignores SIGTERM and keeps respawning short sleeps.
	cfg := testConfig(t, `trap '' TERM; while :; do sleep 0.1; done`)
	cfg.StopTimeout = 300 * time.Millisecond
	s := New(cfg, &readyAfter{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := s.Status().PID

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop should succeed via SIGKILL: %v", err)
	}
	if launcher.Alive(pid) {
		t.Fatalf("pid %d survived SIGKILL escalation", pid)
	}
	if st := s.Status(); st.State != "stopped" {
		t.Fatalf("expected stopped, got %+v", st)
	}
}

func TestRestartChangesPid(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, &readyAfter{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := s.Status().PID

	if err := s.Restart(context.Background()); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	second := s.Status().PID
	if second <= 0 || second == first {
		t.Fatalf("expected a new pid after restart, got %d then %d", first, second)
	}
	if !launcher.Alive(second) {
		t.Fatalf("restarted pid %d not alive", second)
	}
}

func TestRestartFromStopped(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, &readyAfter{})

	if err := s.Restart(context.Background()); err != nil {
		t.Fatalf("Restart from stopped: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()
	if st := s.Status(); !st.Running {
		t.Fatalf("expected running after restart, got %+v", st)
	}
}

func TestConcurrentOperationRejected(t *testing.T) {
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, nil)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.Start(context.Background()); !errors.Is(err, ErrOperationInProgress) {
		t.Fatalf("expected ErrOperationInProgress from Start, got %v", err)
	}
	if err := s.Stop(context.Background()); !errors.Is(err, ErrOperationInProgress) {
		t.Fatalf("expected ErrOperationInProgress from Stop, got %v", err)
	}
	if err := s.Restart(context.Background()); !errors.Is(err, ErrOperationInProgress) {
		t.Fatalf("expected ErrOperationInProgress from Restart, got %v", err)
	}
}

func TestCrashDetected(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, &readyAfter{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := s.Status().PID

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		t.Fatalf("kill: %v", err)
	}
	ok := waitUntil(3*time.Second, 20*time.Millisecond, func() bool {
		st := s.Status()
		return st.State == "failed" && !st.Running
	})
	if !ok {
		t.Fatalf("crash not reflected in status: %+v", s.Status())
	}
	if !waitUntil(2*time.Second, 20*time.Millisecond, func() bool {
		_, err := os.Stat(cfg.PIDFile)
		return errors.Is(err, os.ErrNotExist)
	}) {
		t.Fatalf("pid file not cleared after crash")
	}
}

func TestStartCancelledMidWait(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, neverReady{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	err := s.Start(ctx)
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if st := s.Status(); st.State != "stopped" {
		t.Fatalf("expected stopped after cancelled start, got %+v", st)
	}
	if _, err := os.Stat(cfg.PIDFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid file should be cleared after cancelled start: %v", err)
	}
}

func TestRecoverAdoptsRunningService(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	s1 := New(cfg, &readyAfter{})
	if err := s1.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := s1.Status().PID

	// A fresh supervisor (new daemon instance) adopts the live pid.
	s2 := New(cfg, &readyAfter{})
	s2.Recover()
	st := s2.Status()
	if !st.Running || st.PID != pid {
		t.Fatalf("expected recovered running status with pid %d, got %+v", pid, st)
	}
	if err := s2.Stop(context.Background()); err != nil {
		t.Fatalf("Stop via recovered supervisor: %v", err)
	}
}

func TestRecoverClearsStalePidFile(t *testing.T) {
	cfg := testConfig(t, "sleep 30")
	if err := pidfile.Write(cfg.PIDFile, 1<<31-2); err != nil {
		t.Fatalf("seed stale pid file: %v", err)
	}
	s := New(cfg, nil)
	s.Recover()
	if _, err := os.Stat(cfg.PIDFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale pid file not cleared: %v", err)
	}
	if st := s.Status(); st.Running {
		t.Fatalf("expected not running, got %+v", st)
	}
}

func TestLifecycleEventsRecorded(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "sleep 30")
	s := New(cfg, &readyAfter{})
	ms := &memStore{}
	s.SetStore(ms)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	states := ms.states()
	want := []string{"starting", "running", "stopped"}
	if len(states) != len(want) {
		t.Fatalf("expected events %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("event %d: expected %q, got %v", i, want[i], states)
		}
	}
}

func TestDefaultStopTimeoutApplied(t *testing.T) {
	s := New(Config{Service: launcher.Spec{Name: "svc", Command: "true"}, PIDFile: "/tmp/x.pid"}, nil)
	if s.cfg.StopTimeout != defaultStopTimeout {
		t.Fatalf("expected default stop timeout, got %v", s.cfg.StopTimeout)
	}
}
