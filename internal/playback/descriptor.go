package playback

import (
	"fmt"
	"math"
	"time"
)

// SourceType classifies a descriptor.
type SourceType string

const (
	SourceFile     SourceType = "file"
	SourceStream   SourceType = "stream"
	SourceExternal SourceType = "external"
)

// File is an in-memory audio file.
type File struct {
	Name         string
	Data         []byte
	LastModified time.Time
	MIME         string
}

// Size returns the file length in bytes.
func (f File) Size() int { return len(f.Data) }

// Descriptor identifies a playable source. ID is the only key used to decide
// whether a source is already loaded; Src must not change under the same ID.
type Descriptor struct {
	ID       string
	Label    string
	Src      string
	File     *File
	Type     SourceType
	Autoplay bool

	// FallbackSrc is loaded on the same element when the primary source
	// fails with a decode or network error.
	FallbackSrc string
}

// FileDescriptorID builds the stable id of a local file:
// file-<name>-<lastModifiedMillis>-<size>.
func FileDescriptorID(f File) string {
	return fmt.Sprintf("file-%s-%d-%d", f.Name, f.LastModified.UnixMilli(), f.Size())
}

// RadioDescriptorID builds the id of a radio station.
func RadioDescriptorID(stationID int) string {
	return fmt.Sprintf("radio-%d", stationID)
}

// FileDescriptor describes a local file.
func FileDescriptor(f File) Descriptor {
	return Descriptor{
		ID:    FileDescriptorID(f),
		Label: f.Name,
		File:  &f,
		Type:  SourceFile,
	}
}

// StreamDescriptor describes a radio stream.
func StreamDescriptor(stationID int, label, src string) Descriptor {
	return Descriptor{
		ID:    RadioDescriptorID(stationID),
		Label: label,
		Src:   src,
		Type:  SourceStream,
	}
}

// source converts the descriptor into what the media element loads.
func (d Descriptor) source() Source {
	if d.File != nil {
		return Source{Name: d.File.Name, Data: d.File.Data, MIME: d.File.MIME}
	}

	return Source{URL: d.Src, Name: d.Label}
}

func (d Descriptor) valid() bool {
	return d.ID != "" && (d.File != nil || d.Src != "")
}

// FormatTime renders seconds as m:ss. Negative and non-finite values render
// as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}

	s := int64(seconds)

	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
