// Package app wires the player components into one explicit session:
// settings, media element, audio graph, equalizer, playback controller,
// position memory, library, station list, media session and visualizer.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"

	"github.com/cwbudde/algo-player/internal/audiograph"
	"github.com/cwbudde/algo-player/internal/equalizer"
	"github.com/cwbudde/algo-player/internal/library"
	"github.com/cwbudde/algo-player/internal/media"
	"github.com/cwbudde/algo-player/internal/mediasession"
	"github.com/cwbudde/algo-player/internal/playback"
	"github.com/cwbudde/algo-player/internal/position"
	"github.com/cwbudde/algo-player/internal/settings"
	"github.com/cwbudde/algo-player/internal/stations"
	"github.com/cwbudde/algo-player/internal/visualizer"
)

var (
	// ErrNoStations is returned by radio operations without a directory.
	ErrNoStations = errors.New("app: no station directory configured")
	// ErrNothingToPlay is returned when the active list is empty.
	ErrNothingToPlay = errors.New("app: nothing to play")
)

// SeekStep is the jump of the relative seek commands, in seconds.
const SeekStep = 10

// Session owns one player. Components never reach each other through
// globals; everything is reachable from here.
type Session struct {
	id     string
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	prefs     *settings.Store
	element   playback.MediaElement
	ownsEl    bool
	graph     *audiograph.Builder
	eq        *equalizer.Equalizer
	player    *playback.Controller
	positions *position.List
	tracker   *position.Tracker
	library   *library.Library
	tracks    *library.Store
	durations *library.DurationCache
	stations  *stations.List
	media     *mediasession.Session
	viz       *visualizer.Renderer
	sched     *visualizer.TickerScheduler
	output    *media.Output

	unsubs    []func()
	closeOnce sync.Once

	mu       sync.Mutex
	prev     playback.State
	chainSet bool
	eqActive bool
	vizCfg   visualizer.Config
	// trackID is the descriptor whose playhead the tracker stores under
	// the track name.
	trackID string
}

// New builds a session. It fails only when an audio output was requested
// and cannot be opened.
func New(opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{id: uuid.NewString()}
	s.logger = o.logger.With("session", s.id)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if o.kv == nil {
		o.kv = settings.NewMemoryStore()
	}
	s.prefs = settings.NewStore(o.kv, settings.WithLogger(s.logger))
	snap := s.prefs.Snapshot()

	if o.outputBuf > 0 {
		out, err := media.OpenOutput(o.sampleRate, o.outputBuf)
		if err != nil {
			s.cancel()

			return nil, fmt.Errorf("app: %w", err)
		}
		s.output = out
	}

	s.element = o.element
	if s.element == nil {
		elOpts := []media.Option{media.WithLogger(s.logger)}
		if o.httpClient != nil {
			elOpts = append(elOpts, media.WithHTTPClient(o.httpClient))
		}
		s.element = media.NewElement(o.sampleRate, elOpts...)
		s.ownsEl = true
	}

	rate := o.sampleRate
	s.graph = audiograph.NewBuilder(
		audiograph.WithLogger(s.logger),
		audiograph.WithContextFactory(func() (*audiograph.Context, error) { return audiograph.NewContext(rate) }),
	)
	s.eq = equalizer.New(snap.Filter)
	s.player = playback.NewController(s.element,
		playback.WithLogger(s.logger),
		playback.WithGraph(s.ensureGraph),
	)

	s.positions = position.NewList(o.kv, position.WithLogger(s.logger), position.WithClock(o.clock))
	s.tracker = position.NewTracker(s.positions, s.element)

	s.library = library.New()
	s.durations = library.NewDurationCache()
	if o.libraryDir != "" {
		s.tracks = library.NewStore(o.libraryDir, library.WithStoreLogger(s.logger))
		s.library.Update(s.tracks.LoadAll())
		s.library.ChangeActive(s.tracks.LoadActiveIndex())
	}

	if o.stationsAPI != "" {
		var clientOpts []stations.ClientOption
		if o.httpClient != nil {
			clientOpts = append(clientOpts, stations.WithHTTPClient(o.httpClient))
		}
		s.stations = stations.NewList(stations.NewClient(o.stationsAPI, clientOpts...), s.prefs, stations.WithLogger(s.logger))
	}

	var mediaOpts []mediasession.Option
	if o.sink != nil {
		mediaOpts = append(mediaOpts, mediasession.WithSink(o.sink))
	}
	s.media = mediasession.New(mediaOpts...)
	s.media.SetActionHandlers(s.actionHandlers())

	sched := o.scheduler
	if sched == nil {
		s.sched = visualizer.NewTickerScheduler(visualizer.DefaultFPS)
		sched = s.sched
	}
	s.viz = visualizer.New(sched, visualizer.WithLogger(s.logger))
	if o.canvas != nil {
		s.viz.SetCanvas(o.canvas)
	}

	s.apply(snap)
	s.unsubs = append(s.unsubs,
		s.prefs.Subscribe(s.apply),
		s.player.Subscribe(s.onState),
	)

	if fs, ok := o.kv.(*settings.FileStore); ok {
		if err := fs.Watch(func() { s.prefs.Reload() }); err != nil {
			s.logger.Warn("settings file not watched", "path", fs.Path(), "error", err)
		}
	}

	s.logger.Debug("session started", "mode", snap.Mode, "library", s.library.Len())

	return s, nil
}

// ID is the session's unique id, also attached to every log record.
func (s *Session) ID() string { return s.id }

func (s *Session) Logger() *slog.Logger                { return s.logger }
func (s *Session) Settings() *settings.Store           { return s.prefs }
func (s *Session) Player() *playback.Controller        { return s.player }
func (s *Session) Graph() *audiograph.Builder          { return s.graph }
func (s *Session) Equalizer() *equalizer.Equalizer     { return s.eq }
func (s *Session) Positions() *position.List           { return s.positions }
func (s *Session) Library() *library.Library           { return s.library }
func (s *Session) MediaSession() *mediasession.Session { return s.media }
func (s *Session) Visualizer() *visualizer.Renderer    { return s.viz }

// Stations returns the station list, or nil without a directory.
func (s *Session) Stations() *stations.List { return s.stations }

// Close flushes the playhead position, stops playback and releases the
// graph, the element and the audio device. It is idempotent.
func (s *Session) Close() error {
	var err error

	s.closeOnce.Do(func() {
		s.flushPosition()
		s.cancel()
		s.wg.Wait()

		for _, unsub := range s.unsubs {
			unsub()
		}

		s.viz.Stop()
		s.media.ClearActionHandlers()
		s.player.Pause()
		s.player.Close()
		s.graph.Teardown()

		if s.tracks != nil {
			s.tracks.SaveActiveIndex(s.library.ActiveIndex())
		}
		if s.sched != nil {
			s.sched.Close()
		}

		var errs []error
		if c, ok := s.element.(io.Closer); ok && s.ownsEl {
			errs = append(errs, c.Close())
		}
		if s.output != nil {
			errs = append(errs, s.output.Close())
		}
		err = errors.Join(errs...)
	})

	return err
}

// ensureGraph runs before every play: it wires a streaming element into
// the graph, hands the analyser to the visualizer and (re)attaches the
// speaker when the context changed.
func (s *Session) ensureGraph() error {
	st, ok := s.element.(beep.Streamer)
	if !ok {
		return nil
	}

	before := s.graph.Context()
	err := s.graph.EnsureGraph(st)

	if an := s.graph.Analyser(); an != nil {
		s.viz.SetAnalyser(an)
	} else {
		s.viz.SetAnalyser(nil)
	}

	if ctx := s.graph.Context(); err == nil && s.output != nil && ctx != nil && ctx != before {
		s.output.Play(ctx.Destination())
	}

	return err
}

// apply re-applies a settings snapshot. Every step is idempotent, so
// repeated or reordered snapshots are harmless.
func (s *Session) apply(snap settings.Snapshot) {
	s.player.SetVolume(snap.VolumeFraction())
	s.player.SetPlaybackRate(snap.PlaybackRate)
	s.player.SetLoop(snap.Loop)

	s.eq.Apply(snap.Filter)
	active := snap.Filter.HasActiveEffects()

	cfg := visualizer.Config{
		Type:      visualizer.Type(snap.Visualization),
		Intensity: snap.VisualizationIntensity,
		FPS:       snap.VisualizationFPS,
	}

	s.mu.Lock()
	rewire := !s.chainSet || s.eqActive != active
	s.chainSet, s.eqActive = true, active
	vizChanged := s.vizCfg != cfg
	s.vizCfg = cfg
	s.mu.Unlock()

	if rewire {
		if active {
			s.graph.SetEffectChain(s.eq.Builder())
		} else {
			s.graph.SetEffectChain(nil)
		}
	}

	if vizChanged {
		s.viz.SetConfig(cfg)
	}
}

// onState mirrors controller state into the media session, the
// visualizer and the position memory.
func (s *Session) onState(st playback.State) {
	s.mu.Lock()
	prev := s.prev
	s.prev = st
	s.mu.Unlock()

	if ps := playbackState(st); ps != playbackState(prev) || prev == (playback.State{}) {
		s.media.SetPlaybackState(ps)
	}

	if st.Duration > 0 && !math.IsInf(st.Duration, 0) {
		err := s.media.SetPositionState(mediasession.PositionState{
			Duration:     st.Duration,
			PlaybackRate: s.prefs.Snapshot().PlaybackRate,
			Position:     math.Min(st.CurrentTime, st.Duration),
		})
		if err != nil {
			s.logger.Debug("position state rejected", "error", err)
		}
	}

	switch {
	case st.IsPlaying && !prev.IsPlaying:
		s.viz.Start()
	case !st.IsPlaying && prev.IsPlaying:
		s.viz.FadeOut()
	}

	switch {
	case st.Status == playback.StatusEnded && prev.Status != playback.StatusEnded:
		s.onEnded()
	case !st.IsPlaying && prev.IsPlaying && st.Status == playback.StatusPaused:
		s.flushPosition()
	case st.IsPlaying && st.CurrentTime != prev.CurrentTime:
		s.savePosition()
	}
}

func playbackState(st playback.State) mediasession.PlaybackState {
	switch {
	case st.IsPlaying:
		return mediasession.StatePlaying
	case st.Status == playback.StatusEmpty:
		return mediasession.StateNone
	default:
		return mediasession.StatePaused
	}
}

// track points the tracker at name, stored for descriptor id. Empty
// values stop tracking.
func (s *Session) track(name, id string) {
	s.mu.Lock()
	s.trackID = id
	s.mu.Unlock()

	s.tracker.SetTrack(name)
}

// tracking reports whether the tracked track is the controller's current
// source.
func (s *Session) tracking() bool {
	cur, ok := s.player.Current()

	s.mu.Lock()
	defer s.mu.Unlock()

	return ok && s.trackID != "" && cur.ID == s.trackID
}

// savePosition stores the playhead at most once per throttle interval.
func (s *Session) savePosition() {
	if s.tracking() {
		s.tracker.SaveThrottled()
	}
}

// flushPosition stores the playhead now.
func (s *Session) flushPosition() {
	if s.tracking() {
		s.tracker.Flush()
	}
}

func (s *Session) onEnded() {
	s.tracker.Clear()
	s.track("", "")

	snap := s.prefs.Snapshot()
	if snap.Mode != settings.ModeMusic || !snap.Autoplay {
		return
	}

	if s.ctx.Err() != nil || !s.library.Next() {
		return
	}
	s.persistActive()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.playActiveTrack(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("autoplay of next track failed", "error", err)
		}
	}()
}
