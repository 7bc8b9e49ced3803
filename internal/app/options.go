package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/cwbudde/algo-player/internal/audiograph"
	"github.com/cwbudde/algo-player/internal/mediasession"
	"github.com/cwbudde/algo-player/internal/playback"
	"github.com/cwbudde/algo-player/internal/settings"
	"github.com/cwbudde/algo-player/internal/visualizer"
)

type options struct {
	logger      *slog.Logger
	kv          settings.KV
	element     playback.MediaElement
	sampleRate  beep.SampleRate
	httpClient  *http.Client
	stationsAPI string
	libraryDir  string
	scheduler   visualizer.FrameScheduler
	canvas      *visualizer.Canvas
	sink        mediasession.Sink
	outputBuf   time.Duration
	clock       func() time.Time
}

func defaultOptions() options {
	return options{
		logger:     slog.Default(),
		sampleRate: audiograph.DefaultSampleRate,
		clock:      time.Now,
	}
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the base logger; the session adds its id to it.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSettings persists preferences, positions and the station order in
// kv. The default is an in-memory store.
func WithSettings(kv settings.KV) Option {
	return func(o *options) { o.kv = kv }
}

// WithElement replaces the decoding media element. Elements that are not
// a beep.Streamer play without an audio graph or visualizer input.
func WithElement(el playback.MediaElement) Option {
	return func(o *options) { o.element = el }
}

// WithSampleRate sets the graph and element rate.
func WithSampleRate(sr beep.SampleRate) Option {
	return func(o *options) { o.sampleRate = sr }
}

// WithHTTPClient is used for streams and the station directory.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithStationsAPI enables radio mode against the directory at base.
func WithStationsAPI(base string) Option {
	return func(o *options) { o.stationsAPI = base }
}

// WithLibraryDir keeps the track list on disk under dir.
func WithLibraryDir(dir string) Option {
	return func(o *options) { o.libraryDir = dir }
}

// WithScheduler drives the visualizer. By default the session runs a
// ticker at 60 Hz.
func WithScheduler(s visualizer.FrameScheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithCanvas gives the visualizer a surface.
func WithCanvas(c *visualizer.Canvas) Option {
	return func(o *options) { o.canvas = c }
}

// WithMediaSink forwards now-playing updates to the host.
func WithMediaSink(s mediasession.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithAudioOutput plays the graph on the system speaker with the given
// buffer length.
func WithAudioOutput(buffer time.Duration) Option {
	return func(o *options) { o.outputBuf = buffer }
}

// WithClock replaces time.Now for position throttling.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}
