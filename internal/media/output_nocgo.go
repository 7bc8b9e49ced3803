//go:build !((linux && cgo) || windows || darwin)

package media

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// AudioAvailable reports whether this build can open a sound device.
// Device output needs cgo on this platform.
const AudioAvailable = false

// Output is unavailable without cgo.
type Output struct{}

// OpenOutput always fails with ErrNoAudioDevice.
func OpenOutput(beep.SampleRate, time.Duration) (*Output, error) {
	return nil, ErrNoAudioDevice
}

func (o *Output) Play(beep.Streamer) {}

func (o *Output) Close() error { return nil }
