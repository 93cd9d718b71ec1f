package server

import "strings"

// Stable error kinds shared between server responses and the HTTP client.
const (
	KindAlreadyRunning = "already_running"
	KindOpInProgress   = "operation_in_progress"
	KindStartTimeout   = "start_timeout"
	KindStopTimeout    = "stop_timeout"
	KindEarlyExit      = "early_exit"
	KindSpawn          = "spawn"
)

// sanitizeBase normalizes a base path: leading '/', no trailing slash.
func sanitizeBase(bp string) string {
	if bp == "" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}
