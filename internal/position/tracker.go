package position

import (
	"sync"
	"time"
)

// Playhead is the part of a media element the tracker reads and moves.
type Playhead interface {
	CurrentTime() float64
	SetCurrentTime(seconds float64)
}

// Tracker saves the playhead of the current track into a List.
type Tracker struct {
	list *List
	head Playhead
	options

	mu         sync.Mutex
	name       string
	suppressed bool
	lastSave   time.Time
}

// NewTracker returns a tracker writing head positions into list.
func NewTracker(list *List, head Playhead, opts ...Option) *Tracker {
	t := &Tracker{list: list, head: head, options: list.options}
	for _, opt := range opts {
		opt(&t.options)
	}

	return t
}

// SetTrack switches the tracked name and resets the throttle.
func (t *Tracker) SetTrack(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.name = name
	t.lastSave = time.Time{}
}

// Track returns the tracked name.
func (t *Tracker) Track() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.name
}

// Suppress disables saving, e.g. while a load is in flight.
func (t *Tracker) Suppress(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.suppressed = on
}

// SaveThrottled saves unless the previous save was less than the throttle
// interval ago. It reports whether a save happened.
func (t *Tracker) SaveThrottled() bool {
	t.mu.Lock()
	name, now := t.name, t.now()
	if t.suppressed || name == "" || (!t.lastSave.IsZero() && now.Sub(t.lastSave) < t.throttle) {
		t.mu.Unlock()

		return false
	}
	t.lastSave = now
	t.mu.Unlock()

	t.list.Save(name, t.head.CurrentTime())

	return true
}

// Flush saves immediately, bypassing the throttle.
func (t *Tracker) Flush() {
	t.mu.Lock()
	name := t.name
	if t.suppressed || name == "" {
		t.mu.Unlock()

		return
	}
	t.lastSave = t.now()
	t.mu.Unlock()

	t.list.Save(name, t.head.CurrentTime())
}

// Clear forgets the current track's position.
func (t *Tracker) Clear() {
	t.list.Remove(t.Track())
}

// Restore moves the playhead to the stored position, or to 0 when none
// is stored. It returns the position applied.
func (t *Tracker) Restore() float64 {
	pos := 0.0
	if name := t.Track(); name != "" {
		pos, _ = t.list.Lookup(name)
	}

	t.head.SetCurrentTime(pos)

	return pos
}
