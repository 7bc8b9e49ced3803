package testutil

import (
	"github.com/gopxl/beep/v2"
)

// StereoFrames duplicates a mono signal onto both channels.
func StereoFrames(mono []float64) [][2]float64 {
	out := make([][2]float64, len(mono))
	for i, v := range mono {
		out[i] = [2]float64{v, v}
	}
	return out
}

// Left extracts the left channel of a frame block.
func Left(frames [][2]float64) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f[0]
	}
	return out
}

// FrameStreamer plays a fixed frame slice once. It implements
// beep.StreamSeeker.
type FrameStreamer struct {
	Frames [][2]float64
	pos    int
}

var _ beep.StreamSeeker = (*FrameStreamer)(nil)

// NewFrameStreamer wraps frames in a seekable streamer.
func NewFrameStreamer(frames [][2]float64) *FrameStreamer {
	return &FrameStreamer{Frames: frames}
}

func (s *FrameStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.Frames) {
		return 0, false
	}
	n := copy(samples, s.Frames[s.pos:])
	s.pos += n
	return n, true
}

func (s *FrameStreamer) Err() error { return nil }

func (s *FrameStreamer) Len() int { return len(s.Frames) }

func (s *FrameStreamer) Position() int { return s.pos }

func (s *FrameStreamer) Seek(p int) error {
	s.pos = max(0, min(p, len(s.Frames)))
	return nil
}
