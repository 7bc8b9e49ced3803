package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/fogleman/gg"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-player/internal/app"
	"github.com/cwbudde/algo-player/internal/audiograph"
	"github.com/cwbudde/algo-player/internal/settings"
	"github.com/cwbudde/algo-player/internal/visualizer"
)

type RenderParams struct {
	File      string  `pos:"true" help:"Audio file to visualize."`
	Viz       string  `optional:"true" help:"Visualization to draw." default:"bars"`
	Out       string  `short:"o" optional:"true" help:"Directory for the PNG frames." default:"frames"`
	Frames    int     `short:"n" optional:"true" help:"Number of frames to render." default:"60"`
	FPS       int     `optional:"true" help:"Frames per second of audio time." default:"30"`
	Width     int     `optional:"true" help:"Frame width in pixels." default:"640"`
	Height    int     `optional:"true" help:"Frame height in pixels." default:"360"`
	Intensity float64 `optional:"true" help:"Visualization intensity." default:"1"`
	Preset    string  `short:"e" optional:"true" help:"Equalizer preset to render through." default:""`
	Dark      bool    `optional:"true" help:"Draw for a dark background."`
	Verbose   bool    `short:"v" optional:"true" help:"Log debug records."`
}

func RenderCmd() *cobra.Command {
	return boa.CmdT[RenderParams]{
		Use:         "render",
		Short:       "Render visualization frames of a file to PNG",
		Long:        "Decodes a file through the equalizer graph faster than real time and writes one PNG per visualization frame.",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *RenderParams, cmd *cobra.Command, args []string) {
			n, err := runRender(context.Background(), params)
			if err != nil {
				fmt.Fprintf(os.Stderr, "render: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("wrote %d frames to %s\n", n, params.Out)
		},
	}.ToCobra()
}

// stepScheduler runs frame callbacks only when step is called, so frames
// follow audio time instead of the wall clock.
type stepScheduler struct {
	mu      sync.Mutex
	next    int
	pending map[int]func(time.Time)
}

func newStepScheduler() *stepScheduler {
	return &stepScheduler{pending: make(map[int]func(time.Time))}
}

func (s *stepScheduler) RequestFrame(fn func(now time.Time)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.pending[s.next] = fn

	return s.next
}

func (s *stepScheduler) CancelFrame(id int) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *stepScheduler) step(now time.Time) {
	s.mu.Lock()
	due := s.pending
	s.pending = make(map[int]func(time.Time))
	s.mu.Unlock()

	for _, id := range slices.Sorted(maps.Keys(due)) {
		due[id](now)
	}
}

func runRender(ctx context.Context, p *RenderParams) (int, error) {
	if !visualizer.Type(p.Viz).Valid() {
		return 0, fmt.Errorf("unknown visualization %q", p.Viz)
	}
	if p.FPS <= 0 || p.Frames <= 0 || p.Width <= 0 || p.Height <= 0 {
		return 0, errors.New("fps, frames, width and height must be positive")
	}

	track, err := readTrack(p.File)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(p.Out, 0o755); err != nil {
		return 0, err
	}

	written := 0
	var saveErr error
	canvas := visualizer.NewCanvas(p.Width, p.Height, func(im image.Image) {
		if saveErr != nil {
			return
		}
		written++
		saveErr = gg.SavePNG(filepath.Join(p.Out, fmt.Sprintf("frame-%04d.png", written)), im)
	})

	sched := newStepScheduler()
	s, err := app.New(
		app.WithLogger(stderrLogger(p.Verbose)),
		app.WithScheduler(sched),
		app.WithCanvas(canvas),
	)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if err := configure(s.Settings(), p.Preset, ""); err != nil {
		return 0, err
	}
	s.Settings().Update(func(snap *settings.Snapshot) {
		snap.Visualization = p.Viz
		snap.VisualizationIntensity = p.Intensity
		snap.VisualizationFPS = p.FPS
	})
	s.Visualizer().SetDark(p.Dark)

	if err := s.PlayFile(ctx, track); err != nil {
		return 0, err
	}
	if !waitAnimating(s.Visualizer(), 2*time.Second) {
		return 0, errors.New("visualizer did not start")
	}

	graph := s.Graph().Context()
	if graph == nil {
		return 0, errors.New("audio graph not available")
	}

	block := make([][2]float64, int(audiograph.DefaultSampleRate)/p.FPS)
	frame := time.Second / time.Duration(p.FPS)
	now := time.Unix(0, 0)

	for written < p.Frames && saveErr == nil {
		if _, ok := graph.Destination().Stream(block); !ok {
			break
		}
		if st := s.Player().State(); st.Ended || s.Visualizer().State() == visualizer.StateIdle {
			break
		}

		now = now.Add(frame)
		sched.step(now)
	}

	return written, saveErr
}

func waitAnimating(r *visualizer.Renderer, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for r.State() != visualizer.StateAnimating {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}

	return true
}
