// Package media is the native media element: it decodes mp3, wav and
// ogg/vorbis from memory, files or HTTP, and streams the result at a fixed
// output rate with volume, rate, loop and seek control. Events are
// delivered in order on a dispatcher goroutine.
package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/algo-player/internal/playback"
	"github.com/gopxl/beep/v2"
)

var (
	errUnsupported = errors.New("media: unsupported source format")
	// ErrNotLoaded is returned by Play when no source is ready.
	ErrNotLoaded = errors.New("media: no source loaded")
)

const (
	resampleQuality = 4
	sniffBytes      = 12
	timeUpdateRate  = 4
)

// Option configures an Element.
type Option func(*Element)

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Element) { e.client = c }
}

// WithLogger sets the element logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Element) { e.logger = l }
}

// Element implements playback.MediaElement and beep.Streamer. It always
// streams: paused, ended or unloaded elements produce silence.
type Element struct {
	sampleRate beep.SampleRate
	client     *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	gen       uint64
	seq       uint64
	cancel    context.CancelFunc
	src       playback.Source
	stream    beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	paused    bool
	ended     bool
	volume    float64
	muted     bool
	rate      float64
	loop      bool
	err       *playback.MediaError
	sinceTick int

	subsMu  sync.Mutex
	subs    map[int]func(playback.Event)
	nextSub int

	queueMu sync.Mutex
	queue   []playback.Event
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

var (
	_ playback.MediaElement = (*Element)(nil)
	_ beep.Streamer         = (*Element)(nil)
)

// NewElement returns an element producing frames at sampleRate.
func NewElement(sampleRate beep.SampleRate, opts ...Option) *Element {
	e := &Element{
		sampleRate: sampleRate,
		client:     http.DefaultClient,
		logger:     slog.Default(),
		paused:     true,
		volume:     1,
		rate:       1,
		subs:       make(map[int]func(playback.Event)),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	go e.dispatch()

	return e
}

// SampleRate is the output rate of Stream.
func (e *Element) SampleRate() beep.SampleRate { return e.sampleRate }

// Close unloads the source and stops event delivery.
func (e *Element) Close() error {
	e.Reset()
	e.once.Do(func() { close(e.done) })

	return nil
}

func (e *Element) Subscribe(fn func(playback.Event)) func() {
	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subsMu.Unlock()

	return func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

func (e *Element) emit(seq uint64, t playback.EventType, me *playback.MediaError) {
	e.queueMu.Lock()
	e.queue = append(e.queue, playback.Event{Type: t, Err: me, Seq: seq})
	e.queueMu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Element) dispatch() {
	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
		}

		e.queueMu.Lock()
		events := e.queue
		e.queue = nil
		e.queueMu.Unlock()

		for _, ev := range events {
			e.subsMu.Lock()
			fns := make([]func(playback.Event), 0, len(e.subs))
			for _, fn := range e.subs {
				fns = append(fns, fn)
			}
			e.subsMu.Unlock()

			for _, fn := range fns {
				fn(ev)
			}
		}
	}
}

// Load replaces the current source and opens the new one in the
// background. Completion is reported as loadedmetadata or error; events
// raised from now on carry seq.
func (e *Element) Load(src playback.Source, seq uint64) {
	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.unloadLocked()
	e.gen++
	e.seq = seq
	gen := e.gen
	e.cancel = cancel
	e.src = src
	e.mu.Unlock()

	go e.open(ctx, gen, src)
}

func (e *Element) open(ctx context.Context, gen uint64, src playback.Source) {
	in, code, err := e.reader(ctx, src)
	if err != nil {
		e.fail(gen, code, err)

		return
	}

	rc := in.rc
	stream, format, err := decode(DetectFormat(in.mime, sourceName(src), in.head), rc)
	if err != nil {
		_ = rc.Close()

		code := playback.MediaErrDecode
		if errors.Is(err, errUnsupported) {
			code = playback.MediaErrSrcNotSupported
		}
		e.fail(gen, code, err)

		return
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		_ = stream.Close()

		return
	}

	e.stream = stream
	e.format = format
	e.resampler = beep.ResampleRatio(resampleQuality, e.ratioLocked(), stream)
	seq := e.seq
	e.mu.Unlock()

	e.logger.Debug("media loaded", "name", sourceName(src), "rate", format.SampleRate, "channels", format.NumChannels)
	e.emit(seq, playback.EventLoadedMetadata, nil)
}

func (e *Element) fail(gen uint64, code playback.MediaErrorCode, err error) {
	me := &playback.MediaError{Code: code, Err: err}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()

		return
	}
	e.err = me
	e.paused = true
	seq := e.seq
	e.mu.Unlock()

	e.emit(seq, playback.EventError, me)
}

type opened struct {
	rc   io.ReadCloser
	head []byte
	mime string
}

// reader opens src and returns the first bytes for format sniffing.
func (e *Element) reader(ctx context.Context, src playback.Source) (opened, playback.MediaErrorCode, error) {
	if src.Data != nil {
		head := src.Data[:min(len(src.Data), sniffBytes)]

		return opened{readSeekNopCloser{bytes.NewReader(src.Data)}, head, src.MIME}, 0, nil
	}

	switch {
	case strings.HasPrefix(src.URL, "http://"), strings.HasPrefix(src.URL, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
		if err != nil {
			return opened{}, playback.MediaErrSrcNotSupported, err
		}

		resp, err := e.client.Do(req)
		if err != nil {
			return opened{}, playback.MediaErrNetwork, err
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()

			return opened{}, playback.MediaErrSrcNotSupported, fmt.Errorf("media: GET %s: %s", src.URL, resp.Status)
		}

		br := bufio.NewReader(resp.Body)
		head, _ := br.Peek(sniffBytes)
		mime := src.MIME
		if mime == "" {
			mime = resp.Header.Get("Content-Type")
		}

		return opened{peekReadCloser{Reader: br, Closer: resp.Body}, head, mime}, 0, nil
	case src.URL != "":
		f, err := os.Open(strings.TrimPrefix(src.URL, "file://"))
		if err != nil {
			return opened{}, playback.MediaErrSrcNotSupported, err
		}

		head := make([]byte, sniffBytes)
		n, _ := io.ReadFull(f, head)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			_ = f.Close()

			return opened{}, playback.MediaErrDecode, err
		}

		return opened{f, head[:n], src.MIME}, 0, nil
	default:
		return opened{}, playback.MediaErrSrcNotSupported, playback.ErrNoSource
	}
}

func sourceName(src playback.Source) string {
	if src.Name != "" && src.URL == "" {
		return src.Name
	}

	return src.URL
}

func (e *Element) ratioLocked() float64 {
	return float64(e.format.SampleRate) / float64(e.sampleRate) * e.rate
}

// unloadLocked cancels any open and closes the stream.
func (e *Element) unloadLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	if e.stream != nil {
		_ = e.stream.Close()
	}

	e.stream, e.resampler = nil, nil
	e.format = beep.Format{}
	e.src = playback.Source{}
	e.paused, e.ended = true, false
	e.err = nil
	e.sinceTick = 0
}

// Reset unloads the current source.
func (e *Element) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	e.gen++
}

// Stream fills samples with the next frames. It never ends.
func (e *Element) Stream(samples [][2]float64) (int, bool) {
	e.mu.Lock()

	if e.paused || e.resampler == nil {
		e.mu.Unlock()
		clear(samples)

		return len(samples), true
	}

	filled := 0
	var event playback.EventType = -1
	var me *playback.MediaError

	for filled < len(samples) {
		n, ok := e.resampler.Stream(samples[filled:])
		filled += n
		if ok && n > 0 {
			continue
		}

		if err := e.stream.Err(); err != nil {
			me = &playback.MediaError{Code: playback.MediaErrDecode, Err: err}
			e.err = me
			e.paused = true
			event = playback.EventError

			break
		}

		if e.loop && e.stream.Len() > 0 && e.stream.Seek(0) == nil {
			e.resampler = beep.ResampleRatio(resampleQuality, e.ratioLocked(), e.stream)

			continue
		}

		e.ended = true
		e.paused = true
		event = playback.EventEnded

		break
	}

	gain := e.volume
	if e.muted {
		gain = 0
	}
	for i := range samples[:filled] {
		samples[i][0] *= gain
		samples[i][1] *= gain
	}
	clear(samples[filled:])

	e.sinceTick += filled
	tick := e.sinceTick >= int(e.sampleRate)/timeUpdateRate
	if tick {
		e.sinceTick = 0
	}
	seq := e.seq
	e.mu.Unlock()

	if tick {
		e.emit(seq, playback.EventTimeUpdate, nil)
	}
	if event >= 0 {
		e.emit(seq, event, me)
	}

	return len(samples), true
}

func (e *Element) Err() error { return nil }

// Play starts or resumes playback; an ended source restarts from zero.
func (e *Element) Play() error {
	e.mu.Lock()
	if e.err != nil {
		err := e.err
		e.mu.Unlock()

		return err
	}

	if e.resampler == nil {
		e.mu.Unlock()

		return ErrNotLoaded
	}

	if e.ended {
		if err := e.stream.Seek(0); err != nil {
			e.mu.Unlock()

			return fmt.Errorf("media: restart: %w", err)
		}
		e.resampler = beep.ResampleRatio(resampleQuality, e.ratioLocked(), e.stream)
		e.ended = false
	}

	was := e.paused
	e.paused = false
	seq := e.seq
	e.mu.Unlock()

	if was {
		e.emit(seq, playback.EventPlay, nil)
	}

	return nil
}

func (e *Element) Pause() {
	e.mu.Lock()
	was := e.paused
	e.paused = true
	loaded := e.resampler != nil
	seq := e.seq
	e.mu.Unlock()

	if !was && loaded {
		e.emit(seq, playback.EventPause, nil)
	}
}

func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.paused
}

// CurrentTime is the decoder position in seconds.
func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return 0
	}

	return e.format.SampleRate.D(e.stream.Position()).Seconds()
}

// SetCurrentTime seeks; sources that cannot seek keep their position.
func (e *Element) SetCurrentTime(seconds float64) {
	e.mu.Lock()
	if e.stream == nil || math.IsNaN(seconds) {
		e.mu.Unlock()

		return
	}

	pos := e.format.SampleRate.N(time.Duration(math.Max(0, seconds) * float64(time.Second)))
	if l := e.stream.Len(); l > 0 {
		pos = min(pos, l)
	}

	if err := e.stream.Seek(pos); err != nil {
		e.logger.Debug("media seek failed", "error", err)
	} else {
		e.resampler = beep.ResampleRatio(resampleQuality, e.ratioLocked(), e.stream)
		e.ended = false
	}
	seq := e.seq
	e.mu.Unlock()

	e.emit(seq, playback.EventTimeUpdate, nil)
}

// Duration is +Inf for sources of unknown length and 0 before metadata.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return 0
	}

	l := e.stream.Len()
	if l <= 0 {
		return math.Inf(1)
	}

	return e.format.SampleRate.D(l).Seconds()
}

// Buffered is the decodable time ahead of the playhead for in-memory and
// file sources, 0 for network streams.
func (e *Element) Buffered() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil || e.stream.Len() <= 0 {
		return 0
	}

	return e.format.SampleRate.D(e.stream.Len() - e.stream.Position()).Seconds()
}

func (e *Element) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.volume
}

func (e *Element) SetVolume(v float64) {
	e.mu.Lock()
	e.volume = math.Max(0, math.Min(v, 1))
	seq := e.seq
	e.mu.Unlock()

	e.emit(seq, playback.EventVolumeChange, nil)
}

func (e *Element) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.muted
}

func (e *Element) SetMuted(m bool) {
	e.mu.Lock()
	e.muted = m
	seq := e.seq
	e.mu.Unlock()

	e.emit(seq, playback.EventVolumeChange, nil)
}

// SetPlaybackRate changes speed (and pitch); non-positive rates are ignored.
func (e *Element) SetPlaybackRate(rate float64) {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rate = rate
	if e.resampler != nil {
		e.resampler.SetRatio(e.ratioLocked())
	}
}

func (e *Element) SetLoop(loop bool) {
	e.mu.Lock()
	e.loop = loop
	e.mu.Unlock()
}

func (e *Element) Error() *playback.MediaError {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.err
}
