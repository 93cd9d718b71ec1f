package supervisor

import "errors"

// Errors returned by lifecycle operations. The CLI maps these to distinct
// exit codes; callers outside the CLI should match with errors.Is.
var (
	// ErrAlreadyRunning: start was requested while the pid file names a
	// live process. No state is changed.
	ErrAlreadyRunning = errors.New("service already running")

	// ErrOperationInProgress: another start/stop/restart holds the
	// operation lock. Fail fast instead of racing on the pid file.
	ErrOperationInProgress = errors.New("operation already in progress")

	// ErrStartTimeout: the service spawned but never reported ready within
	// the start timeout. The orphan has been force-terminated and the pid
	// file cleared.
	ErrStartTimeout = errors.New("service did not become ready before timeout")

	// ErrEarlyExit: the service exited while the readiness wait was still
	// in progress.
	ErrEarlyExit = errors.New("service exited before becoming ready")

	// ErrStopTimeout: the service survived both the graceful and the
	// forceful signal. The pid file is left in place because the process is
	// still alive; manual intervention is required.
	ErrStopTimeout = errors.New("service survived forced termination")
)
