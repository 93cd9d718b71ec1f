package supervisor

// State is the lifecycle state of the supervised service.
//
// Stopped -> Starting -> Ready -> Running -> Stopping -> Stopped
// Failed is reached from Starting or Running on unexpected death.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateReady
	StateRunning
	StateStopping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
