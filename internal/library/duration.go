package library

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/cwbudde/algo-player/internal/media"
	"github.com/cwbudde/algo-player/internal/playback"
)

var errUnknownLength = errors.New("library: unknown length")

// DurationCache probes track durations once per file name. Files that
// cannot be probed are cached as 0.
type DurationCache struct {
	mu    sync.Mutex
	byKey map[string]float64
}

// NewDurationCache returns an empty cache.
func NewDurationCache() *DurationCache {
	return &DurationCache{byKey: make(map[string]float64)}
}

// Duration returns the duration of f in seconds.
func (c *DurationCache) Duration(f playback.File) float64 {
	c.mu.Lock()
	if d, ok := c.byKey[f.Name]; ok {
		c.mu.Unlock()

		return d
	}
	c.mu.Unlock()

	d, err := Probe(f)
	if err != nil {
		d = 0
	}

	c.mu.Lock()
	c.byKey[f.Name] = d
	c.mu.Unlock()

	return d
}

// Cached returns the cached duration without probing.
func (c *DurationCache) Cached(name string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.byKey[name]

	return d, ok
}

// Probe measures the duration of f without decoding the whole stream
// where the container allows it.
func Probe(f playback.File) (float64, error) {
	head := f.Data[:min(len(f.Data), 12)]

	switch media.DetectFormat(f.MIME, f.Name, head) {
	case media.FormatWAV:
		dec := wav.NewDecoder(bytes.NewReader(f.Data))
		if !dec.IsValidFile() {
			return 0, fmt.Errorf("library: %s: invalid wav", f.Name)
		}

		if err := dec.FwdToPCM(); err != nil {
			return 0, fmt.Errorf("library: %s: %w", f.Name, err)
		}

		bytesPerSec := float64(dec.SampleRate) * float64(dec.NumChans) * float64((dec.BitDepth+7)/8)
		if bytesPerSec == 0 {
			return 0, errUnknownLength
		}

		return float64(dec.PCMLen()) / bytesPerSec, nil
	case media.FormatMP3:
		dec, err := mp3.NewDecoder(bytes.NewReader(f.Data))
		if err != nil {
			return 0, fmt.Errorf("library: %s: %w", f.Name, err)
		}
		if dec.Length() <= 0 {
			return 0, errUnknownLength
		}

		// 16-bit stereo frames
		return float64(dec.Length()) / 4 / float64(dec.SampleRate()), nil
	case media.FormatVorbis:
		r, err := oggvorbis.NewReader(bytes.NewReader(f.Data))
		if err != nil {
			return 0, fmt.Errorf("library: %s: %w", f.Name, err)
		}
		if r.Length() <= 0 {
			return 0, errUnknownLength
		}

		return float64(r.Length()) / float64(r.SampleRate()), nil
	default:
		return 0, fmt.Errorf("library: %s: unsupported format", f.Name)
	}
}
