package main

import (
	"errors"

	"github.com/wardenproc/warden/internal/launcher"
	"github.com/wardenproc/warden/internal/supervisor"
	"github.com/wardenproc/warden/pkg/client"
)

// Exit codes of the control surface. Callers (init scripts, service
// managers) dispatch on these.
const (
	exitGeneric        = 1
	exitAlreadyRunning = 64
	exitStartTimeout   = 65
	exitSpawn          = 66
	exitStopTimeout    = 67
)

// codedError carries an explicit exit code. An empty message suppresses
// error output (used by status, which prints its own report).
type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string { return e.msg }

func exitCodeFor(err error) int {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch {
	case errors.Is(err, supervisor.ErrAlreadyRunning),
		errors.Is(err, client.ErrAlreadyRunning):
		return exitAlreadyRunning
	case errors.Is(err, supervisor.ErrStartTimeout),
		errors.Is(err, client.ErrStartTimeout):
		return exitStartTimeout
	case errors.Is(err, launcher.ErrSpawn),
		errors.Is(err, client.ErrSpawn):
		return exitSpawn
	case errors.Is(err, supervisor.ErrStopTimeout),
		errors.Is(err, client.ErrStopTimeout):
		return exitStopTimeout
	default:
		return exitGeneric
	}
}
