package equalizer

import (
	"math"

	"github.com/cwbudde/algo-player/dsp/filter/biquad"
	"github.com/cwbudde/algo-player/dsp/filter/design"
	"github.com/samber/lo"
)

const (
	// MidQ is the quality factor of the peaking mid band.
	MidQ = 0.7

	minGainDB = -24
	maxGainDB = 24
)

// Band is one equalizer band.
type Band struct {
	Frequency float64 `json:"frequency"`
	Gain      float64 `json:"gain"`
}

// Settings holds the three bands. Bass is a low shelf, Mid a peak and
// Treble a high shelf.
type Settings struct {
	Bass   Band `json:"bass"`
	Mid    Band `json:"mid"`
	Treble Band `json:"treble"`
}

// DefaultSettings is flat at 100 Hz, 1 kHz and 4 kHz.
func DefaultSettings() Settings {
	return Settings{
		Bass:   Band{Frequency: 100},
		Mid:    Band{Frequency: 1000},
		Treble: Band{Frequency: 4000},
	}
}

// HasActiveEffects reports whether any band colours the signal.
func (s Settings) HasActiveEffects() bool {
	return s.Bass.Gain != 0 || s.Mid.Gain != 0 || s.Treble.Gain != 0
}

// Normalized clamps gains to ±24 dB and replaces unusable frequencies with
// the defaults.
func (s Settings) Normalized() Settings {
	def := DefaultSettings()
	s.Bass = s.Bass.normalized(def.Bass.Frequency)
	s.Mid = s.Mid.normalized(def.Mid.Frequency)
	s.Treble = s.Treble.normalized(def.Treble.Frequency)

	return s
}

func (b Band) normalized(defaultFreq float64) Band {
	if !(b.Frequency > 0) || math.IsInf(b.Frequency, 0) {
		b.Frequency = defaultFreq
	}

	if math.IsNaN(b.Gain) {
		b.Gain = 0
	}
	b.Gain = min(max(b.Gain, minGainDB), maxGainDB)

	return b
}

// Coefficients designs the three sections at sampleRate.
func (s Settings) Coefficients(sampleRate float64) []biquad.Coefficients {
	return []biquad.Coefficients{
		design.LowShelf(s.Bass.Frequency, s.Bass.Gain, sampleRate),
		design.Peak(s.Mid.Frequency, s.Mid.Gain, MidQ, sampleRate),
		design.HighShelf(s.Treble.Frequency, s.Treble.Gain, sampleRate),
	}
}

// ResponseDB evaluates the combined magnitude response at each frequency.
func (s Settings) ResponseDB(freqs []float64, sampleRate float64) []float64 {
	sections := s.Coefficients(sampleRate)

	return lo.Map(freqs, func(f float64, _ int) float64 {
		return biquad.CascadeDB(sections, f, sampleRate)
	})
}

// Preset is a named band configuration.
type Preset struct {
	Name     string
	Settings Settings
}

// DefaultPreset is the flat preset name.
const DefaultPreset = "default"

var presets = []Preset{
	{DefaultPreset, Settings{Band{250, 0}, Band{1000, 0}, Band{4000, 0}}},
	{"Pop", Settings{Band{250, 6}, Band{1000, -2}, Band{4000, 4}}},
	{"Rock", Settings{Band{200, 8}, Band{1200, 4}, Band{4000, 2}}},
	{"Jazz", Settings{Band{250, 4}, Band{800, 3}, Band{4000, -2}}},
	{"Electronic", Settings{Band{200, 10}, Band{1000, 2}, Band{4500, 6}}},
	{"Speech", Settings{Band{250, -4}, Band{2000, 6}, Band{4000, -2}}},
}

// Presets returns the built-in presets in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// PresetNames lists the preset names in display order.
func PresetNames() []string {
	return lo.Map(presets, func(p Preset, _ int) string { return p.Name })
}

// PresetByName looks a preset up by exact name.
func PresetByName(name string) (Settings, bool) {
	p, ok := lo.Find(presets, func(p Preset) bool { return p.Name == name })

	return p.Settings, ok
}

// NextPreset returns the preset after name, wrapping around. Unknown names
// start from the first preset.
func NextPreset(name string) string {
	_, i, ok := lo.FindIndexOf(presets, func(p Preset) bool { return p.Name == name })
	if !ok {
		return presets[0].Name
	}

	return presets[(i+1)%len(presets)].Name
}
