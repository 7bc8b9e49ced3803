package playback

// Status is the controller's state machine position.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusErrored
	// StatusDegraded means the primary source failed and the fallback
	// source is live on the same element.
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	case StatusErrored:
		return "errored"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// State mirrors the media element. It is only mutated by element event
// handlers and by load resets.
type State struct {
	Status      Status
	CurrentTime float64
	Duration    float64
	IsPlaying   bool
	IsReady     bool
	Ended       bool
	Error       string
	Volume      float64
	Muted       bool
	// Buffered is the number of seconds decoded ahead of CurrentTime.
	Buffered   float64
	CurrentSrc string
}

// Progress is the integer percentage of CurrentTime over Duration.
func (s State) Progress() int {
	if s.Duration <= 0 {
		return 0
	}

	return int(s.CurrentTime / s.Duration * 100)
}

// resetForLoad clears per-source fields and keeps the output settings.
func (s *State) resetForLoad() {
	*s = State{
		Status: StatusLoading,
		Volume: s.Volume,
		Muted:  s.Muted,
	}
}
