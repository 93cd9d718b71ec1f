package probe

import (
	"context"
	"os/exec"
	"strings"
)

// CommandProber declares the service ready when a shell command exits zero
// (e.g. a CLI ping the service ships with).
type CommandProber struct {
	Command string
}

func (p CommandProber) Check(ctx context.Context) error {
	cmd := strings.TrimSpace(p.Command)
	if cmd == "" {
		return exec.ErrNotFound
	}
	// #nosec G204
	return exec.CommandContext(ctx, "/bin/sh", "-c", cmd).Run()
}

func (p CommandProber) Describe() string { return "command:" + p.Command }
