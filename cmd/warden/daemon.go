package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/wardenproc/warden/internal/pidfile"
)

// daemonizeSelf re-executes the current binary in a new session, records the
// child's pid, and exits the parent. A child whose parent is init skips the
// re-exec and keeps serving.
func daemonizeSelf(pidFile, logFile string) error {
	if os.Getppid() == 1 {
		return nil
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	args := stripDaemonArgs(os.Args[1:])
	if logFile != "" {
		args = append(args, "--logfile", logFile)
	}

	// #nosec G204 -- re-exec of our own binary
	cmd := exec.Command(executable, args...)
	configureDaemonAttrs(cmd)
	cmd.Stdin = nil

	if logFile != "" {
		// #nosec G304 -- operator-provided log path
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open daemon log file: %w", err)
		}
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon process: %w", err)
	}
	if pidFile != "" {
		if err := pidfile.Write(pidFile, cmd.Process.Pid); err != nil {
			return fmt.Errorf("write daemon pid file: %w", err)
		}
	}

	fmt.Printf("warden daemon started (pid %d)\n", cmd.Process.Pid)
	os.Exit(0)
	return nil
}

// stripDaemonArgs drops --daemonize and --logfile so the re-executed child
// runs in the foreground with the log file the parent chose.
func stripDaemonArgs(in []string) []string {
	var out []string
	skipNext := false
	for _, arg := range in {
		if skipNext {
			skipNext = false
			continue
		}
		switch {
		case arg == "--daemonize":
			continue
		case arg == "--logfile":
			skipNext = true
			continue
		}
		out = append(out, arg)
	}
	return out
}
