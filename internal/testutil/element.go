package testutil

import (
	"sync"

	"github.com/cwbudde/algo-player/internal/playback"
)

// FakeElement is a scripted playback.MediaElement. With AutoResolve set,
// Load answers synchronously with loadedmetadata, or with an error when the
// source URL or name is listed in Failures.
type FakeElement struct {
	mu sync.Mutex

	AutoResolve bool
	Failures    map[string]playback.MediaErrorCode
	PlayErr     error
	// DurationOf returns the duration reported for a source; 0 means 180 s.
	DurationOf func(playback.Source) float64

	loads   []playback.Source
	current playback.Source
	seq     uint64
	cur     float64
	dur     float64
	vol     float64
	muted   bool
	paused  bool
	rate    float64
	loop    bool
	err     *playback.MediaError
	resets  int
	subs    map[int]func(playback.Event)
	nextSub int
	seekLog []float64
}

var _ playback.MediaElement = (*FakeElement)(nil)

// NewFakeElement returns an element that resolves loads immediately.
func NewFakeElement() *FakeElement {
	return &FakeElement{
		AutoResolve: true,
		vol:         1,
		paused:      true,
		rate:        1,
		subs:        make(map[int]func(playback.Event)),
	}
}

func (e *FakeElement) emit(ev playback.Event) {
	e.mu.Lock()
	ev.Seq = e.seq
	e.deliverLocked(ev)
}

// Emit delivers ev as is, Seq included, to every subscriber.
func (e *FakeElement) Emit(ev playback.Event) {
	e.mu.Lock()
	e.deliverLocked(ev)
}

// deliverLocked is called with e.mu held and releases it before calling
// subscribers.
func (e *FakeElement) deliverLocked(ev playback.Event) {
	fns := make([]func(playback.Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (e *FakeElement) Subscribe(fn func(playback.Event)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *FakeElement) Load(src playback.Source, seq uint64) {
	e.mu.Lock()
	e.loads = append(e.loads, src)
	e.current = src
	e.seq = seq
	e.cur, e.dur = 0, 0
	e.paused = true
	e.err = nil
	auto := e.AutoResolve
	e.mu.Unlock()

	if auto {
		e.Resolve()
	}
}

// Resolve finishes the last load: metadata, or an error if the source is
// listed in Failures.
func (e *FakeElement) Resolve() {
	e.mu.Lock()
	src := e.current
	code, fail := e.Failures[src.URL]
	if !fail && src.URL == "" {
		code, fail = e.Failures[src.Name]
	}
	if !fail {
		e.dur = 180
		if e.DurationOf != nil {
			if d := e.DurationOf(src); d > 0 {
				e.dur = d
			}
		}
	}
	e.mu.Unlock()

	if fail {
		e.Fail(code)

		return
	}

	e.emit(playback.Event{Type: playback.EventLoadedMetadata})
}

// Fail reports a media error on the current source.
func (e *FakeElement) Fail(code playback.MediaErrorCode) {
	me := &playback.MediaError{Code: code}

	e.mu.Lock()
	e.err = me
	e.paused = true
	e.mu.Unlock()

	e.emit(playback.Event{Type: playback.EventError, Err: me})
}

// Advance moves the playhead and emits timeupdate.
func (e *FakeElement) Advance(seconds float64) {
	e.mu.Lock()
	e.cur += seconds
	e.mu.Unlock()

	e.emit(playback.Event{Type: playback.EventTimeUpdate})
}

// End emits ended.
func (e *FakeElement) End() {
	e.mu.Lock()
	e.paused = true
	e.cur = e.dur
	e.mu.Unlock()

	e.emit(playback.Event{Type: playback.EventEnded})
}

// Loads returns every source passed to Load.
func (e *FakeElement) Loads() []playback.Source {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]playback.Source(nil), e.loads...)
}

// Seq returns the sequence number of the last load.
func (e *FakeElement) Seq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.seq
}

// Seeks returns every position passed to SetCurrentTime.
func (e *FakeElement) Seeks() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]float64(nil), e.seekLog...)
}

// Resets counts Reset calls.
func (e *FakeElement) Resets() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.resets
}

func (e *FakeElement) Play() error {
	e.mu.Lock()
	if e.PlayErr != nil {
		err := e.PlayErr
		e.mu.Unlock()

		return err
	}
	e.paused = false
	e.mu.Unlock()

	e.emit(playback.Event{Type: playback.EventPlay})

	return nil
}

func (e *FakeElement) Pause() {
	e.mu.Lock()
	was := e.paused
	e.paused = true
	e.mu.Unlock()

	if !was {
		e.emit(playback.Event{Type: playback.EventPause})
	}
}

func (e *FakeElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.paused
}

func (e *FakeElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cur
}

func (e *FakeElement) SetCurrentTime(seconds float64) {
	e.mu.Lock()
	e.cur = seconds
	e.seekLog = append(e.seekLog, seconds)
	e.mu.Unlock()

	e.emit(playback.Event{Type: playback.EventTimeUpdate})
}

func (e *FakeElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.dur
}

func (e *FakeElement) Buffered() float64 { return 0 }

func (e *FakeElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.vol
}

func (e *FakeElement) SetVolume(v float64) {
	e.mu.Lock()
	e.vol = v
	e.mu.Unlock()

	e.emit(playback.Event{Type: playback.EventVolumeChange})
}

func (e *FakeElement) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.muted
}

func (e *FakeElement) SetMuted(m bool) {
	e.mu.Lock()
	e.muted = m
	e.mu.Unlock()

	e.emit(playback.Event{Type: playback.EventVolumeChange})
}

func (e *FakeElement) SetPlaybackRate(rate float64) {
	e.mu.Lock()
	e.rate = rate
	e.mu.Unlock()
}

// PlaybackRate returns the last rate set.
func (e *FakeElement) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.rate
}

func (e *FakeElement) SetLoop(loop bool) {
	e.mu.Lock()
	e.loop = loop
	e.mu.Unlock()
}

// Loop returns the last loop flag set.
func (e *FakeElement) Loop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loop
}

func (e *FakeElement) Error() *playback.MediaError {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.err
}

func (e *FakeElement) Reset() {
	e.mu.Lock()
	e.current = playback.Source{}
	e.cur, e.dur = 0, 0
	e.paused = true
	e.resets++
	e.mu.Unlock()
}
