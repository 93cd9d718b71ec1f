//go:build !windows

package launcher

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Terminate sends sig to the process group of pid so the service and any
// helpers it forked receive it together. ErrProcessNotFound when the pid is
// already gone.
func Terminate(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return ErrProcessNotFound
	}
	err := syscall.Kill(-pid, sig)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ESRCH) {
		// Group gone; the process itself may linger if it changed groups.
		err = syscall.Kill(pid, sig)
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.ESRCH) {
			return ErrProcessNotFound
		}
	}
	return err
}

// Alive reports whether pid names a live process, without side effects.
// EPERM counts as alive (the process exists but belongs to someone else).
// Zombies count as dead: they no longer serve anything.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if runtime.GOOS == "linux" && isZombieLinux(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// isZombieLinux reports whether /proc/<pid>/status shows state Z.
func isZombieLinux(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
