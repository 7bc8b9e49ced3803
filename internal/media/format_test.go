package media

import "testing"

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mime string
		file string
		head []byte
		want Format
	}{
		{"mime wins", "audio/mpeg; charset=binary", "x.wav", nil, FormatMP3},
		{"mime case", "Audio/Ogg", "", nil, FormatVorbis},
		{"extension", "", "Song.WAV", nil, FormatWAV},
		{"url with query", "", "http://host/stream.ogg?token=1", nil, FormatVorbis},
		{"riff sniff", "", "blob", []byte("RIFF\x00\x00\x00\x00WAVE"), FormatWAV},
		{"ogg sniff", "", "", []byte("OggS\x00"), FormatVorbis},
		{"id3 sniff", "", "", []byte("ID3\x04"), FormatMP3},
		{"frame sync", "", "", []byte{0xFF, 0xFB, 0x90}, FormatMP3},
		{"riff without wave", "", "", []byte("RIFF\x00\x00\x00\x00AVI "), FormatUnknown},
		{"nothing", "text/plain", "notes.txt", []byte("hello"), FormatUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := DetectFormat(tc.mime, tc.file, tc.head); got != tc.want {
				t.Fatalf("DetectFormat = %v, want %v", got, tc.want)
			}
		})
	}
}
