// Package visualizer renders analyser data as animated frames.
//
// A Renderer runs a frame loop on a FrameScheduler: every frame it reads
// the analyser into a reused byte buffer, hands it to the selected
// Strategy and composites the result onto a Canvas with the current fade
// alpha. The loop stops on its own after sustained silence, when the page
// is hidden, or at the end of a fade-out.
package visualizer

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// State is the renderer's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateAnimating
	StateFadingOut
)

func (s State) String() string {
	switch s {
	case StateAnimating:
		return "animating"
	case StateFadingOut:
		return "fading-out"
	default:
		return "idle"
	}
}

const (
	// DefaultFPS caps the draw rate when the config leaves it unset.
	DefaultFPS = 60
	// DefaultAutoStopFrames is how many consecutive silent frames end the
	// loop.
	DefaultAutoStopFrames = 180
	// DefaultSilenceLevel is the mean byte magnitude below which a frame
	// counts as silent.
	DefaultSilenceLevel = 2.0

	// fadeSteps frames ramp alpha between 0 and 1.
	fadeSteps = 20
)

// Analyser is the part of an analyser node the renderer reads.
type Analyser interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
	ByteTimeDomainData(dst []byte)
}

// Config selects the strategy and its tunables.
type Config struct {
	Type      Type
	Intensity float64
	FPS       int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithAutoStopFrames sets the silent-frame limit. Zero or less disables
// auto-stop.
func WithAutoStopFrames(n int) Option {
	return func(r *Renderer) { r.autoStop = n }
}

// WithSilenceLevel sets the mean magnitude treated as silence.
func WithSilenceLevel(level float64) Option {
	return func(r *Renderer) { r.silenceLevel = level }
}

// WithRand seeds strategies that use randomness.
func WithRand(rng *rand.Rand) Option {
	return func(r *Renderer) { r.rng = rng }
}

// Renderer drives the visualization loop. It is safe for concurrent use;
// frame callbacks and public methods serialise on one mutex.
type Renderer struct {
	sched        FrameScheduler
	logger       *slog.Logger
	autoStop     int
	silenceLevel float64
	rng          *rand.Rand
	strategies   map[Type]Strategy

	mu        sync.Mutex
	analyser  Analyser
	canvas    *Canvas
	cfg       Config
	visible   bool
	dark      bool
	text      string
	state     State
	gen       int
	frameID   int
	lastFrame time.Time
	fade      int
	silent    int
	data      []byte
}

// New returns an idle renderer with the bars strategy selected.
func New(sched FrameScheduler, opts ...Option) *Renderer {
	r := &Renderer{
		sched:        sched,
		logger:       slog.Default(),
		autoStop:     DefaultAutoStopFrames,
		silenceLevel: DefaultSilenceLevel,
		cfg:          Config{Type: TypeBars, Intensity: 1, FPS: DefaultFPS},
		visible:      true,
		fade:         fadeSteps,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	r.strategies = newStrategies(r.rng)

	return r
}

// State returns the lifecycle state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Alpha returns the current fade alpha.
func (r *Renderer) Alpha() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return float64(r.fade) / fadeSteps
}

// Config returns the active configuration.
func (r *Renderer) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cfg
}

// SetAnalyser attaches the data source. A nil analyser makes the next
// frame stop the loop unless it is fading out.
func (r *Renderer) SetAnalyser(a Analyser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.analyser = a
}

// SetCanvas attaches the drawing surface.
func (r *Renderer) SetCanvas(c *Canvas) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.canvas = c
}

// SetConfig applies a new configuration. An empty type stops the loop;
// a valid one starts it if it is not already running. Unknown types are
// treated as empty.
func (r *Renderer) SetConfig(cfg Config) {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if !cfg.Type.Valid() {
		cfg.Type = TypeNone
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cfg = cfg
	if cfg.Type == TypeNone {
		r.stopLocked()

		return
	}
	r.startLocked()
}

// SetVisible reports page visibility. Hiding stops the loop immediately;
// showing restarts it when a strategy is selected.
func (r *Renderer) SetVisible(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.visible = visible
	if !visible {
		if r.state != StateIdle {
			r.stopLocked()
		}

		return
	}

	if r.cfg.Type != TypeNone && r.state == StateIdle {
		r.startLocked()
	}
}

// SetDark switches the theme. Gradient caches are dropped and any text on
// screen is redrawn in the new colours.
func (r *Renderer) SetDark(dark bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dark == dark {
		return
	}
	r.dark = dark

	for _, s := range r.strategies {
		if c, ok := s.(cacheClearer); ok {
			c.ClearCache()
		}
	}

	if r.text != "" {
		r.drawTextLocked()
	}
}

// Start begins animating with a fade-in. It does nothing while already
// animating, or without an analyser, a canvas or a selected strategy, or
// while hidden. Starting during a fade-out cancels the fade.
func (r *Renderer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startLocked()
}

func (r *Renderer) startLocked() {
	if r.state == StateAnimating {
		return
	}
	if r.analyser == nil || r.canvas == nil || r.cfg.Type == TypeNone || !r.visible {
		return
	}

	r.cancelLocked()
	r.state = StateAnimating
	r.fade = 0
	r.silent = 0
	r.text = ""

	if n := r.analyser.FrequencyBinCount(); len(r.data) != n {
		r.data = make([]byte, n)
	}

	r.scheduleLocked()
}

// FadeOut ramps alpha down over the next frames and then stops.
func (r *Renderer) FadeOut() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateAnimating {
		return
	}
	r.state = StateFadingOut
}

// Stop ends the loop at once and drops transient strategy state.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
}

func (r *Renderer) stopLocked() {
	r.state = StateIdle
	r.fade = fadeSteps
	r.cancelLocked()
	r.resetStrategiesLocked()
}

// Reset is a hard stop that also zeroes the sample buffer.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateIdle
	r.cancelLocked()
	r.resetStrategiesLocked()
	clear(r.data)
}

// DrawText stops any animation and draws s centred on a cleared canvas.
// An empty s redraws the previous text.
func (r *Renderer) DrawText(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s != "" {
		r.text = s
	}
	r.drawTextLocked()
}

func (r *Renderer) drawTextLocked() {
	if r.canvas == nil {
		return
	}

	text := r.text
	r.stopLocked()
	r.text = text

	w, h := r.canvas.Size()
	dc := r.canvas.begin()
	dc.SetColor(ink(r.dark, 1))
	dc.DrawStringAnchored(text, float64(w)/2, float64(h)/2, 0.5, 0.5)
	r.canvas.compose(1)
}

func (r *Renderer) resetStrategiesLocked() {
	for _, s := range r.strategies {
		if rs, ok := s.(resetter); ok {
			rs.Reset()
		}
	}
}

func (r *Renderer) cancelLocked() {
	r.gen++
	if r.frameID != 0 {
		r.sched.CancelFrame(r.frameID)
		r.frameID = 0
	}
}

func (r *Renderer) scheduleLocked() {
	gen := r.gen
	r.frameID = r.sched.RequestFrame(func(now time.Time) { r.frame(gen, now) })
}

func (r *Renderer) frame(gen int, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		return
	}
	r.frameID = 0

	if r.state == StateIdle || r.cfg.Type == TypeNone || !r.visible {
		return
	}

	interval := time.Second / time.Duration(r.cfg.FPS)
	if !r.lastFrame.IsZero() && now.Sub(r.lastFrame) < interval {
		r.scheduleLocked()

		return
	}
	r.lastFrame = now

	if r.canvas == nil || r.data == nil {
		r.stopLocked()

		return
	}

	if r.state == StateFadingOut {
		r.fade--
		if r.fade <= 0 {
			r.stopLocked()

			return
		}
	} else if r.fade < fadeSteps {
		r.fade++
	}

	if r.analyser == nil {
		if r.state != StateFadingOut {
			r.stopLocked()

			return
		}
		clear(r.data)
	} else {
		r.analyser.ByteFrequencyData(r.data)
	}

	if r.state == StateAnimating && r.autoStop > 0 {
		if mean(r.data) < r.silenceLevel {
			r.silent++
		} else {
			r.silent = 0
		}

		if r.silent > r.autoStop {
			r.logger.Debug("visualizer: stopping after silence", "frames", r.silent)
			r.stopLocked()

			return
		}
	}

	strategy := r.strategies[r.cfg.Type]
	if td, ok := strategy.(timeDomain); ok && td.TimeDomain() && r.analyser != nil {
		r.analyser.ByteTimeDomainData(r.data)
	}

	w, h := r.canvas.Size()
	dc := r.canvas.begin()
	if r.analyser != nil {
		strategy.Draw(dc, Frame{
			Data:      r.data,
			Width:     float64(w),
			Height:    float64(h),
			Dark:      r.dark,
			Intensity: r.cfg.Intensity,
			Time:      float64(now.UnixNano()) / 1e9,
		})
	}
	r.canvas.compose(float64(r.fade) / fadeSteps)

	r.scheduleLocked()
}
