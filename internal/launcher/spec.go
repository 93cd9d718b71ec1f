package launcher

import (
	"os/exec"
	"strings"

	"github.com/wardenproc/warden/internal/logger"
)

// Mode selects how the service is attached at launch time.
type Mode string

const (
	// ModeSupervised runs the service detached in its own process group with
	// output captured to log files. Readiness tracking and pid-file
	// supervision apply.
	ModeSupervised Mode = "supervised"
	// ModeInteractiveDebug runs the service attached to the caller's
	// terminal. No readiness tracking and no pid file; lifecycle guarantees
	// end once the process is spawned.
	ModeInteractiveDebug Mode = "debug"
)

// Spec describes the service to be launched.
type Spec struct {
	Name    string        `json:"name" mapstructure:"name"`
	Command string        `json:"command" mapstructure:"command"`
	WorkDir string        `json:"work_dir" mapstructure:"work_dir"`
	Env     []string      `json:"env" mapstructure:"env"`
	Mode    Mode          `json:"mode" mapstructure:"mode"`
	Log     logger.Config `json:"log" mapstructure:"log"`
}

// BuildCommand constructs an *exec.Cmd for the spec's Command. It avoids
// invoking a shell when not necessary, and honors an explicit shell
// invocation already present in the command string (e.g. "sh -c 'echo hi'")
// without wrapping it in another shell layer.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if afterC, ok := parseExplicitShell(cmdStr); ok {
		// Absolute shell path so PATH overrides in Env cannot break startup.
		// #nosec G204
		return exec.Command("/bin/sh", "-c", afterC)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// parseExplicitShell detects "sh -c <ARG>" style prefixes and returns the
// argument that follows -c, with one surrounding quote pair stripped.
func parseExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
