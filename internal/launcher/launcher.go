package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Sentinel errors surfaced to callers and mapped to exit codes by the CLI.
var (
	// ErrSpawn wraps failures to exec the configured command (missing or
	// non-executable binary). Fatal, never retried here.
	ErrSpawn = errors.New("launcher: spawn failed")

	// ErrProcessNotFound is returned by Terminate when no process with the
	// given pid exists.
	ErrProcessNotFound = errors.New("launcher: no such process")
)

// Child is a handle to a process spawned by Launch. The launcher owns the
// wait; Done is closed once the process has been reaped.
type Child struct {
	PID       int
	StartedAt time.Time

	mu        sync.Mutex
	cmd       *exec.Cmd
	exitErr   error
	done      chan struct{}
	outCloser io.WriteCloser
	errCloser io.WriteCloser
}

// Done returns a channel closed when the child has exited and been reaped.
func (c *Child) Done() <-chan struct{} { return c.done }

// ExitErr returns the error from Wait after Done is closed; nil before.
func (c *Child) ExitErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitErr
}

// Launch spawns the service described by spec and returns a handle to it.
// Supervised children run in their own process group with stdout/stderr
// redirected to the configured log sinks (or /dev/null). InteractiveDebug
// children inherit the caller's terminal.
func Launch(spec Spec) (*Child, error) {
	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}

	c := &Child{done: make(chan struct{})}

	if spec.Mode == ModeInteractiveDebug {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		setProcessGroup(cmd)
		if spec.Log.Dir != "" || spec.Log.StdoutPath != "" || spec.Log.StderrPath != "" {
			if spec.Log.Dir != "" {
				_ = os.MkdirAll(spec.Log.Dir, 0o750)
			}
			outW, errW, _ := spec.Log.Writers(spec.Name)
			c.outCloser, c.errCloser = outW, errW
		}
		if c.outCloser != nil {
			cmd.Stdout = c.outCloser
		} else {
			cmd.Stdout, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
		}
		if c.errCloser != nil {
			cmd.Stderr = c.errCloser
		} else {
			cmd.Stderr, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
		}
	}

	if err := cmd.Start(); err != nil {
		c.closeWriters()
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	c.cmd = cmd
	c.PID = cmd.Process.Pid
	c.StartedAt = time.Now()

	// Single waiter: reap the child so Alive never sees a zombie, then
	// release the log writers.
	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		c.exitErr = err
		c.mu.Unlock()
		c.closeWriters()
		close(c.done)
	}()

	return c, nil
}

func (c *Child) closeWriters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outCloser != nil {
		_ = c.outCloser.Close()
		c.outCloser = nil
	}
	if c.errCloser != nil {
		_ = c.errCloser.Close()
		c.errCloser = nil
	}
}
