package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrSuperseded is returned by a Load that was overtaken by a newer Load
	// or by Stop.
	ErrSuperseded = errors.New("playback: load superseded")
	// ErrNoSource is returned when there is nothing to load or play.
	ErrNoSource = errors.New("playback: no source")
)

// MediaErrorCode follows the platform media error numbering.
type MediaErrorCode int

const (
	MediaErrUnknown         MediaErrorCode = 0
	MediaErrAborted         MediaErrorCode = 1
	MediaErrNetwork         MediaErrorCode = 2
	MediaErrDecode          MediaErrorCode = 3
	MediaErrSrcNotSupported MediaErrorCode = 4
)

// Message is the user-facing text stored in State.Error.
func (c MediaErrorCode) Message() string {
	switch c {
	case MediaErrAborted:
		return "Playback aborted"
	case MediaErrDecode:
		return "Audio decoding error"
	case MediaErrNetwork:
		return "Network error during playback"
	case MediaErrSrcNotSupported:
		return "Audio source not supported"
	default:
		return "Audio error"
	}
}

// MediaError is reported by the element when loading or decoding fails.
type MediaError struct {
	Code MediaErrorCode
	Err  error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return "playback: " + e.Code.Message()
	}

	return fmt.Sprintf("playback: %s: %v", e.Code.Message(), e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

// Recoverable reports whether a fallback source may help.
func (e *MediaError) Recoverable() bool {
	return e.Code == MediaErrDecode || e.Code == MediaErrNetwork
}

// LoadError is returned by Load for a bad or unsupported source.
type LoadError struct {
	Descriptor Descriptor
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("playback: load %q: %v", e.Descriptor.ID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PlaybackRejection is returned when the element refuses to start.
type PlaybackRejection struct {
	Err error
}

func (e *PlaybackRejection) Error() string {
	return fmt.Sprintf("playback: play rejected: %v", e.Err)
}

func (e *PlaybackRejection) Unwrap() error { return e.Err }

// errorMessage maps an element error to the State.Error text.
func errorMessage(me *MediaError) string {
	if me == nil {
		return "Unknown audio error"
	}

	return me.Code.Message()
}
