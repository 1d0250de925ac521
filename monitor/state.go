package monitor

// State represents the lifecycle state of a Sampler or Orchestrator
type State int

// State constants
const (
	// Idle represents an object not yet started
	Idle State = iota
	// Running represents a currently sampling object
	Running
	// Stopped represents a finished object; it cannot be restarted
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "(unknown)"
	}
}

// StopReason records why a Sampler left the Running state
type StopReason int

const (
	// NotStopped is reported while the sampler has not stopped
	NotStopped StopReason = iota
	// StopRequested means Stop was called or the context was cancelled
	StopRequested
	// TreeExited means the root was found gone on consecutive ticks
	TreeExited
)

func (r StopReason) String() string {
	switch r {
	case NotStopped:
		return "not stopped"
	case StopRequested:
		return "stop requested"
	case TreeExited:
		return "process tree exited"
	default:
		return "(unknown)"
	}
}
