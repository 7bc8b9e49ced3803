//go:build (linux && cgo) || windows || darwin

package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable reports whether this build can open a sound device.
const AudioAvailable = true

// Output plays one streamer on the system speaker.
type Output struct {
	mu     sync.Mutex
	closed bool
}

// OpenOutput initializes the speaker at sampleRate with the given buffer
// length.
func OpenOutput(sampleRate beep.SampleRate, buffer time.Duration) (*Output, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(buffer)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAudioDevice, err)
	}

	return &Output{}, nil
}

// Play starts pulling s. Only one streamer plays at a time.
func (o *Output) Play(s beep.Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	speaker.Clear()
	speaker.Play(s)
}

// Close stops playback and releases the device.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}

	o.closed = true
	speaker.Clear()
	speaker.Close()

	return nil
}
