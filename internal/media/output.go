package media

import "errors"

// ErrNoAudioDevice is returned when no sound device can be opened.
var ErrNoAudioDevice = errors.New("media: no audio device")
