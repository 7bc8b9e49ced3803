package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cwbudde/algo-player/internal/hotkeys"
	"github.com/cwbudde/algo-player/internal/settings"
	"github.com/cwbudde/algo-player/internal/testutil"
)

func writeTone(t *testing.T, seconds float64) string {
	t.Helper()

	const sr = 48000
	data := testutil.WAVBytes(t, testutil.DeterministicSine(440, sr, 0.8, int(seconds*sr)), sr)

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestKeyEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want hotkeys.Event
	}{
		{" ", hotkeys.Event{Key: " "}},
		{"left", hotkeys.Event{Key: "left"}},
		{"ctrl+c", hotkeys.Event{Key: "c", Ctrl: true}},
		{"ctrl+shift+left", hotkeys.Event{Key: "left", Ctrl: true, Shift: true}},
		{"alt+v", hotkeys.Event{Key: "v", Alt: true}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := keyEvent(tt.in); got != tt.want {
				t.Fatalf("keyEvent(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSpectrumRowWidth(t *testing.T) {
	t.Parallel()

	if got := spectrumRow(nil, 12); got != strings.Repeat(" ", 12) {
		t.Fatalf("empty row = %q", got)
	}

	bins := make([]byte, 64)
	for i := range bins {
		bins[i] = byte(i * 4)
	}

	row := spectrumRow(bins, 10)
	if !strings.Contains(row, "▁") && !strings.Contains(row, "▂") {
		t.Fatalf("row has no low bars: %q", row)
	}
	if strings.Contains(row, "█") {
		t.Fatalf("only the lower half of the bins is shown, got a full bar: %q", row)
	}
}

func TestProgressBar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		percent, filled int
	}{
		{0, 0},
		{50, 10},
		{100, 20},
		{150, 20},
	}

	for _, tt := range tests {
		bar := progressBar(tt.percent, 20)
		if n := utf8.RuneCountInString(bar); n != 20 {
			t.Fatalf("progressBar(%d) has %d runes", tt.percent, n)
		}
		if n := strings.Count(bar, "━"); n != tt.filled {
			t.Fatalf("progressBar(%d) filled %d, want %d", tt.percent, n, tt.filled)
		}
	}
}

func TestHelpLineNamesSpace(t *testing.T) {
	t.Parallel()

	line := helpLine(hotkeys.Table{{Key: " ", Help: "play/pause"}, {Key: "n", Help: "next"}})
	if line != "space play/pause · n next · q quit" {
		t.Fatalf("helpLine = %q", line)
	}
}

func TestReadTrack(t *testing.T) {
	t.Parallel()

	f, err := readTrack(writeTone(t, 0.1))
	if err != nil {
		t.Fatalf("readTrack: %v", err)
	}
	if f.Name != "tone.wav" || f.Size() == 0 || f.LastModified.IsZero() {
		t.Fatalf("file = %+v", f)
	}

	junk := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(junk, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readTrack(junk); err == nil {
		t.Fatal("text file accepted as audio")
	}

	if _, err := readTracks([]string{junk}); err == nil {
		t.Fatal("readTracks ignored a bad file")
	}
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	prefs := settings.NewStore(settings.NewMemoryStore())

	if err := configure(prefs, "Rock", "spectrum"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	snap := prefs.Snapshot()
	if snap.EqualizerPreset != "Rock" || snap.Filter.Bass.Gain != 8 || snap.Visualization != "spectrum" {
		t.Fatalf("snapshot = %+v", snap)
	}

	if err := configure(prefs, "", "none"); err != nil || prefs.Snapshot().Visualization != "" {
		t.Fatalf("none: err = %v, viz = %q", err, prefs.Snapshot().Visualization)
	}

	if err := configure(prefs, "Polka", ""); err == nil {
		t.Fatal("unknown preset accepted")
	}
	if err := configure(prefs, "", "lava"); err == nil {
		t.Fatal("unknown visualization accepted")
	}
}

func TestStepSchedulerOrder(t *testing.T) {
	t.Parallel()

	s := newStepScheduler()

	var got []int
	for i := 1; i <= 3; i++ {
		s.RequestFrame(func(time.Time) { got = append(got, i) })
	}
	s.CancelFrame(2)
	s.step(time.Unix(1, 0))

	if fmt.Sprint(got) != "[1 3]" {
		t.Fatalf("ran %v, want [1 3]", got)
	}

	s.step(time.Unix(2, 0))
	if len(got) != 2 {
		t.Fatal("callbacks ran twice")
	}
}

func TestPresetsTable(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := runPresets(&PresetsParams{SampleRate: 48000}, &out); err != nil {
		t.Fatalf("runPresets: %v", err)
	}

	for _, want := range []string{"Rock", "Speech", "16K", "+8 dB @ 200"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("table lacks %q:\n%s", want, out.String())
		}
	}

	if err := runPresets(&PresetsParams{SampleRate: 22050}, &out); err == nil {
		t.Fatal("rate below the probe frequencies accepted")
	}
}

func TestStationsTable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stations" {
			http.NotFound(w, r)

			return
		}
		fmt.Fprint(w, `{"success": true, "data": {
			"stations": [
				{"id": 1, "name": "Jazz FM", "category": "jazz", "description": "smooth"},
				{"id": 2, "name": "Rock Radio", "category": "rock"}
			],
			"categories": [{"id": "jazz", "name": "Jazz"}],
			"total": 2}}`)
	}))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	if err := runStations(context.Background(), &StationsParams{API: srv.URL + "/api", Timeout: 5}, &out); err != nil {
		t.Fatalf("runStations: %v", err)
	}
	for _, want := range []string{"Jazz FM", "Rock Radio", "Jazz", "2 OF 2"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("table lacks %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := runStations(context.Background(), &StationsParams{API: srv.URL + "/api", Category: "ROCK", Timeout: 5}, &out); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "Jazz FM") || !strings.Contains(out.String(), "1 OF 2") {
		t.Fatalf("category filter:\n%s", out.String())
	}

	if err := runStations(context.Background(), &StationsParams{API: srv.URL + "/missing", Timeout: 5}, &out); err == nil {
		t.Fatal("404 directory accepted")
	}
}

func TestRenderWritesFrames(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "frames")
	p := &RenderParams{
		File:      writeTone(t, 1),
		Viz:       "bars",
		Out:       out,
		Frames:    4,
		FPS:       30,
		Width:     64,
		Height:    48,
		Intensity: 1,
		Dark:      true,
	}

	n, err := runRender(context.Background(), p)
	if err != nil {
		t.Fatalf("runRender: %v", err)
	}
	if n != 4 {
		t.Fatalf("wrote %d frames, want 4", n)
	}

	for i := 1; i <= n; i++ {
		if _, err := os.Stat(filepath.Join(out, fmt.Sprintf("frame-%04d.png", i))); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	p.Viz = "lava"
	if _, err := runRender(context.Background(), p); err == nil {
		t.Fatal("unknown visualization accepted")
	}
}
