package library

import (
	"bytes"
	"path"
	"strings"

	"github.com/dhowden/tag"

	"github.com/cwbudde/algo-player/internal/playback"
)

// Tags is the display metadata of a track.
type Tags struct {
	Title       string
	Artist      string
	Album       string
	Picture     []byte
	PictureMIME string
}

// ReadTags reads ID3, MP4, FLAC or Vorbis tags from f. Missing tags fall
// back to the file name as title; the error reports why tags were absent.
func ReadTags(f playback.File) (Tags, error) {
	t := Tags{Title: strings.TrimSuffix(f.Name, path.Ext(f.Name))}

	m, err := tag.ReadFrom(bytes.NewReader(f.Data))
	if err != nil {
		return t, err
	}

	if title := strings.TrimSpace(m.Title()); title != "" {
		t.Title = title
	}
	t.Artist = strings.TrimSpace(m.Artist())
	t.Album = strings.TrimSpace(m.Album())

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		t.Picture = pic.Data
		t.PictureMIME = pic.MIMEType
	}

	return t, nil
}
