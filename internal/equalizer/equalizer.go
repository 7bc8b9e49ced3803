// Package equalizer is the three-band effect unit spliced between the
// analyser and the destination of an audio graph.
package equalizer

import (
	"sync"

	"github.com/cwbudde/algo-player/internal/audiograph"
)

// Equalizer owns the bass/mid/treble filter nodes of the current graph and
// re-applies settings to them in place.
type Equalizer struct {
	mu       sync.Mutex
	settings Settings
	bands    [3]*audiograph.BiquadFilterNode
}

// New returns an equalizer with the given settings. No nodes exist until
// its Builder runs.
func New(s Settings) *Equalizer {
	return &Equalizer{settings: s.Normalized()}
}

// Settings returns the current settings.
func (e *Equalizer) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.settings
}

// HasActiveEffects reports whether the current settings colour the signal.
func (e *Equalizer) HasActiveEffects() bool {
	return e.Settings().HasActiveEffects()
}

// Apply sets every band parameter from s on the live nodes. Applying the
// same settings twice is a no-op for the signal.
func (e *Equalizer) Apply(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.settings = s.Normalized()
	e.applyLocked()
}

func (e *Equalizer) applyLocked() {
	if e.bands[0] == nil {
		return
	}

	s := e.settings
	e.bands[0].Set(audiograph.FilterParams{Type: audiograph.LowShelf, Frequency: s.Bass.Frequency, Gain: s.Bass.Gain})
	e.bands[1].Set(audiograph.FilterParams{Type: audiograph.Peaking, Frequency: s.Mid.Frequency, Gain: s.Mid.Gain, Q: MidQ})
	e.bands[2].Set(audiograph.FilterParams{Type: audiograph.HighShelf, Frequency: s.Treble.Frequency, Gain: s.Treble.Gain})
}

// Nodes returns the live bass, mid and treble nodes, or nils.
func (e *Equalizer) Nodes() [3]*audiograph.BiquadFilterNode {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.bands
}

// Builder returns the effect builder that inserts the three bands in
// series. Its cleanup disconnects them.
func (e *Equalizer) Builder() audiograph.EffectBuilder {
	return func(ctx *audiograph.Context, _ *audiograph.AnalyserNode) (*audiograph.EffectChain, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		bands := [3]*audiograph.BiquadFilterNode{
			ctx.NewBiquadFilter(audiograph.FilterParams{Type: audiograph.LowShelf}),
			ctx.NewBiquadFilter(audiograph.FilterParams{Type: audiograph.Peaking}),
			ctx.NewBiquadFilter(audiograph.FilterParams{Type: audiograph.HighShelf}),
		}

		if err := ctx.Connect(bands[0], bands[1]); err != nil {
			return nil, err
		}
		if err := ctx.Connect(bands[1], bands[2]); err != nil {
			ctx.Disconnect(bands[0])
			return nil, err
		}

		e.bands = bands
		e.applyLocked()

		cleanup := func() {
			for _, b := range bands {
				ctx.Disconnect(b)
			}

			e.mu.Lock()
			if e.bands == bands {
				e.bands = [3]*audiograph.BiquadFilterNode{}
			}
			e.mu.Unlock()
		}

		return &audiograph.EffectChain{Input: bands[0], Output: bands[2], Cleanup: cleanup}, nil
	}
}
