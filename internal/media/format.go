package media

import (
	"bytes"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Format is a container/codec the element can decode.
type Format int

const (
	FormatUnknown Format = iota
	FormatMP3
	FormatWAV
	FormatVorbis
)

func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatWAV:
		return "wav"
	case FormatVorbis:
		return "vorbis"
	default:
		return "unknown"
	}
}

var mimeFormats = map[string]Format{
	"audio/mpeg":      FormatMP3,
	"audio/mp3":       FormatMP3,
	"audio/wav":       FormatWAV,
	"audio/wave":      FormatWAV,
	"audio/x-wav":     FormatWAV,
	"audio/ogg":       FormatVorbis,
	"audio/vorbis":    FormatVorbis,
	"application/ogg": FormatVorbis,
}

var extFormats = map[string]Format{
	".mp3": FormatMP3,
	".wav": FormatWAV,
	".ogg": FormatVorbis,
	".oga": FormatVorbis,
}

// DetectFormat picks a format from the MIME type, then the file extension
// of name, then the leading bytes.
func DetectFormat(mime, name string, head []byte) Format {
	mime = strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0]))
	if f, ok := mimeFormats[mime]; ok {
		return f
	}

	if f, ok := extFormats[strings.ToLower(path.Ext(stripQuery(name)))]; ok {
		return f
	}

	return sniff(head)
}

func stripQuery(name string) string {
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		return u.Path
	}

	return name
}

func sniff(head []byte) Format {
	switch {
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(head, []byte("OggS")):
		return FormatVorbis
	case bytes.HasPrefix(head, []byte("ID3")):
		return FormatMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// decode opens rc with the decoder for f.
func decode(f Format, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch f {
	case FormatMP3:
		return mp3.Decode(rc)
	case FormatWAV:
		return wav.Decode(rc)
	case FormatVorbis:
		return vorbis.Decode(rc)
	default:
		return nil, beep.Format{}, errUnsupported
	}
}

// readSeekNopCloser keeps Seek visible to decoders that type-assert for it.
type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error { return nil }

// peekReadCloser replays already-peeked bytes before the rest of a body.
type peekReadCloser struct {
	io.Reader
	io.Closer
}
