// Package playback is the session controller for a single current source:
// it loads descriptors into one media element, tracks the element's state
// through its events and exposes play, pause, stop and seek.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithGraph registers a hook run before every Play to make sure the
// element is wired into the audio graph. A failure is logged and playback
// continues.
func WithGraph(ensure func() error) Option {
	return func(c *Controller) { c.ensureGraph = ensure }
}

type waiter struct {
	gen uint64
	ch  chan error
}

// Controller drives one MediaElement. Every method is safe for concurrent
// use; element methods are never called with the controller lock held.
type Controller struct {
	el          MediaElement
	logger      *slog.Logger
	ensureGraph func() error
	unsubscribe func()

	mu       sync.Mutex
	state    State
	current  *Descriptor
	pending  *Descriptor
	loading  bool
	gen      uint64
	waiter   *waiter
	// seq numbers element loads; only events stamped with awaited count.
	seq      uint64
	awaited  uint64
	fellBack bool
	resume   bool

	undoSeek    float64
	hasUndoSeek bool

	listenersMu sync.Mutex
	listeners   map[int]func(State)
	nextID      int
}

// NewController subscribes to el and returns an Empty controller.
func NewController(el MediaElement, opts ...Option) *Controller {
	c := &Controller{
		el:        el,
		logger:    slog.Default(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state.Volume = el.Volume()
	c.state.Muted = el.Muted()
	c.unsubscribe = el.Subscribe(c.handleEvent)

	return c
}

// Close detaches the controller from its element.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// Element returns the controlled media element.
func (c *Controller) Element() MediaElement { return c.el }

// State returns a copy of the playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Current returns the loaded descriptor.
func (c *Controller) Current() (Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Descriptor{}, false
	}

	return *c.current, true
}

// Pending returns the descriptor being loaded, if any.
func (c *Controller) Pending() (Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return Descriptor{}, false
	}

	return *c.pending, true
}

// Loading reports whether a load is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loading
}

// Subscribe registers fn for state changes and returns its cancel func.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Controller) notify() {
	s := c.State()

	c.listenersMu.Lock()
	fns := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Load makes d the current source. Loading the already current id without
// autoplay returns immediately. Otherwise the element is reloaded and Load
// waits for its metadata. A newer Load or Stop makes this one return
// ErrSuperseded. Failures return *LoadError, leave no current source and
// put the controller back to Empty with the message in State.Error.
func (c *Controller) Load(ctx context.Context, d Descriptor) error {
	c.mu.Lock()
	if !d.Autoplay && c.current != nil && c.current.ID == d.ID {
		c.mu.Unlock()

		return nil
	}

	if !d.valid() {
		c.mu.Unlock()

		return &LoadError{Descriptor: d, Err: ErrNoSource}
	}

	c.gen++
	gen := c.gen
	c.supersedeLocked()
	seq := c.nextSeqLocked()

	w := &waiter{gen: gen, ch: make(chan error, 1)}
	c.waiter = w
	c.pending = &d
	c.current = nil
	c.loading = true
	c.fellBack = false
	c.resume = false
	c.hasUndoSeek = false
	c.state.resetForLoad()
	c.state.CurrentSrc = d.source().URL
	c.mu.Unlock()

	c.notify()
	c.el.Load(d.source(), seq)

	var err error
	select {
	case err = <-w.ch:
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()

		return ErrSuperseded
	}

	c.loading = false
	c.pending = nil
	c.waiter = nil

	if err != nil {
		c.current = nil
		c.state.Status = StatusEmpty
		c.state.IsReady = false
		c.state.IsPlaying = false
		c.state.CurrentSrc = ""
		c.mu.Unlock()

		if ctx.Err() != nil {
			c.el.Reset()
		}
		c.notify()

		return &LoadError{Descriptor: d, Err: err}
	}

	c.current = &d
	c.mu.Unlock()
	c.notify()

	if d.Autoplay {
		return c.Play(ctx)
	}

	return nil
}

// nextSeqLocked numbers a new element load and makes it the only one whose
// events are accepted.
func (c *Controller) nextSeqLocked() uint64 {
	c.seq++
	c.awaited = c.seq

	return c.seq
}

// supersedeLocked fails any in-flight load waiter.
func (c *Controller) supersedeLocked() {
	if c.waiter == nil {
		return
	}

	select {
	case c.waiter.ch <- ErrSuperseded:
	default:
	}
	c.waiter = nil
}

// Play starts the loaded source. Element refusals are returned as
// *PlaybackRejection and leave the state out of Playing.
func (c *Controller) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()

		return &PlaybackRejection{Err: ErrNoSource}
	}
	c.mu.Unlock()

	if c.ensureGraph != nil {
		if err := c.ensureGraph(); err != nil {
			c.logger.Warn("playing without audio graph", "error", err)
		}
	}

	if err := c.el.Play(); err != nil {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()

		return &PlaybackRejection{Err: err}
	}

	c.mu.Lock()
	c.state.IsPlaying = true
	c.state.Ended = false
	if c.state.Status != StatusDegraded {
		c.state.Status = StatusPlaying
	}
	c.mu.Unlock()
	c.notify()

	return nil
}

// PlaySource loads d when it is not the current source and plays it.
func (c *Controller) PlaySource(ctx context.Context, d Descriptor) error {
	if cur, ok := c.Current(); !ok || cur.ID != d.ID {
		d.Autoplay = false
		if err := c.Load(ctx, d); err != nil {
			return err
		}

		if cur, ok := c.Current(); !ok || cur.ID != d.ID {
			return ErrSuperseded
		}
	}

	return c.Play(ctx)
}

// Pause pauses the element.
func (c *Controller) Pause() {
	c.el.Pause()

	c.mu.Lock()
	c.state.IsPlaying = false
	if c.state.Status == StatusPlaying {
		c.state.Status = StatusPaused
	}
	c.mu.Unlock()
	c.notify()
}

// Stop pauses, unloads the element and forgets the current source, so the
// next Play needs a Load. An in-flight Load returns ErrSuperseded.
func (c *Controller) Stop() {
	c.el.Pause()
	c.el.Reset()

	c.mu.Lock()
	c.gen++
	c.supersedeLocked()
	c.nextSeqLocked()
	c.current = nil
	c.pending = nil
	c.loading = false
	c.hasUndoSeek = false
	c.state = State{Volume: c.state.Volume, Muted: c.state.Muted}
	c.mu.Unlock()
	c.notify()
}

// Seek moves to seconds clamped to [0, duration] and remembers the previous
// position for UndoSeek. It does nothing while the duration is unknown.
func (c *Controller) Seek(seconds float64) {
	c.seek(seconds, true)
}

// SeekBy moves relative to the current position.
func (c *Controller) SeekBy(delta float64) {
	c.seek(c.el.CurrentTime()+delta, true)
}

// SeekFraction moves to fraction (0..1) of the duration.
func (c *Controller) SeekFraction(fraction float64) {
	c.seek(fraction*c.el.Duration(), true)
}

// UndoSeek returns to the position before the last seek. Only one level is
// kept; it reports whether there was anything to undo.
func (c *Controller) UndoSeek() bool {
	c.mu.Lock()
	if !c.hasUndoSeek {
		c.mu.Unlock()

		return false
	}

	target := c.undoSeek
	c.hasUndoSeek = false
	c.mu.Unlock()

	c.seek(target, false)

	return true
}

func (c *Controller) seek(seconds float64, record bool) {
	dur := c.el.Duration()
	if !(dur > 0) || math.IsInf(dur, 0) || math.IsNaN(seconds) {
		return
	}

	target := math.Max(0, math.Min(seconds, dur))
	prev := c.el.CurrentTime()
	c.el.SetCurrentTime(target)

	c.mu.Lock()
	if record {
		c.undoSeek = prev
		c.hasUndoSeek = true
	}
	c.state.CurrentTime = target
	c.mu.Unlock()
	c.notify()
}

// SetVolume sets the element volume in [0, 1].
func (c *Controller) SetVolume(v float64) {
	c.el.SetVolume(math.Max(0, math.Min(v, 1)))
}

func (c *Controller) SetMuted(m bool) { c.el.SetMuted(m) }

func (c *Controller) SetPlaybackRate(rate float64) { c.el.SetPlaybackRate(rate) }

func (c *Controller) SetLoop(loop bool) { c.el.SetLoop(loop) }

func (c *Controller) handleEvent(ev Event) {
	if ev.Type != EventVolumeChange {
		c.mu.Lock()
		stale := ev.Seq != c.awaited
		c.mu.Unlock()

		if stale {
			c.logger.Debug("dropping stale media event", "event", ev.Type, "seq", ev.Seq)

			return
		}
	}

	switch ev.Type {
	case EventLoadedMetadata:
		c.onLoadedMetadata()
	case EventTimeUpdate:
		t, buf := c.el.CurrentTime(), c.el.Buffered()
		c.mu.Lock()
		c.state.CurrentTime = t
		c.state.Buffered = buf
		c.mu.Unlock()
	case EventPlay:
		c.mu.Lock()
		c.state.IsPlaying = true
		c.state.Ended = false
		c.state.Error = ""
		if c.state.Status != StatusDegraded {
			c.state.Status = StatusPlaying
		}
		c.mu.Unlock()
	case EventPause:
		c.mu.Lock()
		c.state.IsPlaying = false
		if c.state.Status == StatusPlaying {
			c.state.Status = StatusPaused
		}
		c.mu.Unlock()
	case EventEnded:
		c.mu.Lock()
		c.state.IsPlaying = false
		c.state.Ended = true
		c.state.Status = StatusEnded
		c.mu.Unlock()
	case EventVolumeChange:
		v, m := c.el.Volume(), c.el.Muted()
		c.mu.Lock()
		c.state.Volume = v
		c.state.Muted = m
		c.mu.Unlock()
	case EventError:
		c.onError(ev.Err)
	}

	c.notify()
}

func (c *Controller) onLoadedMetadata() {
	dur, vol, muted := c.el.Duration(), c.el.Volume(), c.el.Muted()
	if math.IsNaN(dur) || math.IsInf(dur, 0) {
		dur = 0
	}

	c.mu.Lock()
	c.state.Duration = dur
	c.state.IsReady = true
	c.state.Volume = vol
	c.state.Muted = muted
	if c.state.Status != StatusDegraded {
		c.state.Status = StatusReady
	}

	resume := c.resume
	c.resume = false

	if c.waiter != nil {
		c.waiter.ch <- nil
		c.waiter = nil
	}
	c.mu.Unlock()

	if resume {
		if err := c.el.Play(); err != nil {
			c.logger.Warn("fallback source refused to play", "error", err)
		}
	}
}

func (c *Controller) onError(me *MediaError) {
	if me == nil {
		me = c.el.Error()
	}

	c.mu.Lock()
	d := c.current
	if d == nil {
		d = c.pending
	}

	if d != nil && d.FallbackSrc != "" && !c.fellBack && me != nil && me.Recoverable() {
		c.fellBack = true
		c.resume = c.state.IsPlaying
		c.state.Status = StatusDegraded
		c.state.IsReady = false
		c.state.CurrentSrc = d.FallbackSrc
		fallback := Source{URL: d.FallbackSrc, Name: d.Label}
		id := d.ID
		seq := c.nextSeqLocked()
		c.mu.Unlock()

		c.logger.Warn("primary source failed, switching to fallback",
			"id", id, "error", me)
		c.el.Load(fallback, seq)

		return
	}

	c.state.Error = errorMessage(me)
	c.state.IsPlaying = false

	// A failing load is reported to its caller; Load settles the status.
	if c.waiter != nil {
		var err error = me
		if me == nil {
			err = errors.New(c.state.Error)
		}
		c.waiter.ch <- err
		c.waiter = nil
	} else {
		c.state.Status = StatusErrored
	}
	c.mu.Unlock()
}
