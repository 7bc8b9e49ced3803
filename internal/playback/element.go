package playback

// Source is what a media element loads: either a URL or in-memory bytes.
type Source struct {
	URL  string
	Data []byte
	Name string
	MIME string
}

// EventType enumerates media element events.
type EventType int

const (
	EventLoadedMetadata EventType = iota
	EventTimeUpdate
	EventPlay
	EventPause
	EventEnded
	EventVolumeChange
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventTimeUpdate:
		return "timeupdate"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventEnded:
		return "ended"
	case EventVolumeChange:
		return "volumechange"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to element subscribers. Err is set for EventError.
// Seq is the sequence number of the load that was current when the event
// was raised.
type Event struct {
	Type EventType
	Err  *MediaError
	Seq  uint64
}

// MediaElement is the platform player the controller drives. Load is
// asynchronous: completion is signalled with EventLoadedMetadata or
// EventError, both stamped with the seq passed to Load. Handlers must not
// be invoked while the element holds locks that its methods take.
type MediaElement interface {
	Load(src Source, seq uint64)
	Play() error
	Pause()
	Paused() bool

	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Duration() float64
	Buffered() float64

	Volume() float64
	SetVolume(v float64)
	Muted() bool
	SetMuted(m bool)
	SetPlaybackRate(rate float64)
	SetLoop(loop bool)

	Error() *MediaError
	Subscribe(fn func(Event)) (unsubscribe func())

	// Reset unloads the current source.
	Reset()
}
