// Package mediasession publishes now-playing information to the host
// platform and routes its transport commands back to the player.
package mediasession

import (
	"errors"
	"math"
	"sync"
)

// ErrInvalidPosition is returned for position states the platform would
// reject.
var ErrInvalidPosition = errors.New("mediasession: invalid position state")

// PlaybackState is the transport state shown by the platform.
type PlaybackState string

const (
	StateNone    PlaybackState = "none"
	StatePaused  PlaybackState = "paused"
	StatePlaying PlaybackState = "playing"
)

// Action is a transport command.
type Action string

const (
	ActionPlay          Action = "play"
	ActionPause         Action = "pause"
	ActionPreviousTrack Action = "previoustrack"
	ActionNextTrack     Action = "nexttrack"
	ActionSeekBackward  Action = "seekbackward"
	ActionSeekForward   Action = "seekforward"
	ActionSeekTo        Action = "seekto"
)

// Actions lists every action in registration order.
var Actions = []Action{
	ActionPlay, ActionPause, ActionPreviousTrack, ActionNextTrack,
	ActionSeekBackward, ActionSeekForward, ActionSeekTo,
}

// ActionDetails accompanies a dispatched action. SeekOffset is used by
// the relative seeks, SeekTime by seekto.
type ActionDetails struct {
	Action     Action
	SeekOffset float64
	SeekTime   float64
}

// Handler reacts to an action.
type Handler func(ActionDetails)

// Artwork is one image rendition.
type Artwork struct {
	Src   string
	Sizes string
	Type  string
	Data  []byte
}

// Metadata is the now-playing description.
type Metadata struct {
	Title   string
	Artist  string
	Album   string
	Artwork []Artwork
}

// PositionState is the playhead reported to the platform.
type PositionState struct {
	Duration     float64
	PlaybackRate float64
	Position     float64
}

// DefaultArtwork is shown when a track has no picture.
var DefaultArtwork = []Artwork{
	{Src: "/radio/favicon/android-chrome-192x192.png", Sizes: "192x192", Type: "image/png"},
	{Src: "/radio/favicon/android-chrome-512x512.png", Sizes: "512x512", Type: "image/png"},
}

// Sink is the platform side of a session.
type Sink interface {
	SetMetadata(Metadata)
	SetPlaybackState(PlaybackState)
	SetPositionState(PositionState)
}

// Option configures a Session.
type Option func(*Session)

// WithSink forwards updates to the platform.
func WithSink(s Sink) Option {
	return func(m *Session) { m.sink = s }
}

// Session holds the published state and the registered handlers.
type Session struct {
	sink Sink

	mu       sync.Mutex
	metadata Metadata
	state    PlaybackState
	position PositionState
	handlers map[Action]Handler
}

// New returns a session with no metadata and state none.
func New(opts ...Option) *Session {
	s := &Session{
		state:    StateNone,
		handlers: make(map[Action]Handler),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetMetadata publishes m; without artwork the default icons are used.
func (s *Session) SetMetadata(m Metadata) {
	if len(m.Artwork) == 0 {
		m.Artwork = DefaultArtwork
	}

	s.mu.Lock()
	s.metadata = m
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.SetMetadata(m)
	}
}

// Metadata returns the published metadata.
func (s *Session) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.metadata
}

// SetPlaybackState publishes st.
func (s *Session) SetPlaybackState(st PlaybackState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.SetPlaybackState(st)
	}
}

// PlaybackState returns the published state.
func (s *Session) PlaybackState() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// SetPositionState publishes ps. A zero rate means 1. Live streams report
// an infinite duration.
func (s *Session) SetPositionState(ps PositionState) error {
	if ps.PlaybackRate == 0 {
		ps.PlaybackRate = 1
	}

	switch {
	case math.IsNaN(ps.Duration) || ps.Duration < 0:
		return ErrInvalidPosition
	case math.IsNaN(ps.Position) || ps.Position < 0 || ps.Position > ps.Duration:
		return ErrInvalidPosition
	case math.IsNaN(ps.PlaybackRate):
		return ErrInvalidPosition
	}

	s.mu.Lock()
	s.position = ps
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.SetPositionState(ps)
	}

	return nil
}

// PositionState returns the published position.
func (s *Session) PositionState() PositionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.position
}

// SetActionHandlers registers the non-nil handlers in hs, keeping the
// others.
func (s *Session) SetActionHandlers(hs map[Action]Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for a, h := range hs {
		if h != nil {
			s.handlers[a] = h
		}
	}
}

// ClearActionHandlers removes every handler.
func (s *Session) ClearActionHandlers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.handlers)
}

// Dispatch runs the handler for d.Action and reports whether one was
// registered.
func (s *Session) Dispatch(d ActionDetails) bool {
	s.mu.Lock()
	h, ok := s.handlers[d.Action]
	s.mu.Unlock()

	if !ok {
		return false
	}

	h(d)

	return true
}
