// Package pidfile persists the pid of the supervised service to a
// well-known path. Writes are atomic (write-temp-then-rename) so a
// concurrent reader never observes a partial value, and staleness is
// always decided by a liveness check, never by file presence alone.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// Write persists pid to path atomically, creating parent directories as
// needed.
func Write(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("pidfile: create dir: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600); err != nil {
		return fmt.Errorf("pidfile: write %s: %w", path, err)
	}
	return nil
}

// Read returns the pid recorded at path. ok is false when the file does not
// exist. A present but unparsable file is an error: it means something other
// than us owns the path.
func Read(path string) (pid int, ok bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("pidfile: read %s: %w", path, err)
	}
	first, _, _ := strings.Cut(string(b), "\n")
	pid, err = strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return 0, false, fmt.Errorf("pidfile: invalid pid in %s", path)
	}
	return pid, true, nil
}

// ReadLive reads the pid and checks it against alive. A recorded pid whose
// process is gone is stale: stale is true and pid is still returned so the
// caller can log it before clearing.
func ReadLive(path string, alive func(int) bool) (pid int, live bool, stale bool, err error) {
	pid, ok, err := Read(path)
	if err != nil || !ok {
		return 0, false, false, err
	}
	if alive(pid) {
		return pid, true, false, nil
	}
	return pid, false, true, nil
}

// Clear removes the pid file. Idempotent: a missing file is success.
func Clear(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("pidfile: remove %s: %w", path, err)
	}
	return nil
}
