package library

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-player/internal/playback"
	"github.com/cwbudde/algo-player/internal/testutil"
)

func tracks(names ...string) []playback.File {
	out := make([]playback.File, len(names))
	for i, n := range names {
		out[i] = playback.File{Name: n, Data: []byte(n), LastModified: time.UnixMilli(int64(1000 + i)), MIME: "audio/mpeg"}
	}

	return out
}

func names(files []playback.File) string {
	s := make([]string, len(files))
	for i, f := range files {
		s[i] = f.Name
	}

	return fmt.Sprint(s)
}

func TestNextWrapsOnlyWithRepeat(t *testing.T) {
	t.Parallel()

	l := New()
	l.Update(tracks("a", "b", "c"))
	l.ChangeActive(2)

	if l.Next() || l.ActiveIndex() != 2 {
		t.Fatalf("Next at end without repeat moved to %d", l.ActiveIndex())
	}

	l.ToggleRepeat()
	if !l.Next() || l.ActiveIndex() != 0 {
		t.Fatalf("Next with repeat = %d, want 0", l.ActiveIndex())
	}

	if !l.Prev() || l.ActiveIndex() != 2 {
		t.Fatalf("Prev from first = %d, want 2", l.ActiveIndex())
	}

	if l.ChangeActive(3) || l.ChangeActive(-1) {
		t.Fatal("out of range index accepted")
	}

	empty := New()
	if empty.Next() || empty.Prev() {
		t.Fatal("navigation on an empty library")
	}
	if _, ok := empty.Active(); ok {
		t.Fatal("empty library has an active track")
	}
}

func TestUpdateResets(t *testing.T) {
	t.Parallel()

	l := New()
	l.Update(tracks("a", "b", "c"))
	l.ChangeActive(2)
	l.ToggleRepeat()

	l.UpdateWithoutReset(tracks("x", "y", "z"))
	if l.ActiveIndex() != 2 || l.Repeating() {
		t.Fatalf("UpdateWithoutReset: index %d repeat %v", l.ActiveIndex(), l.Repeating())
	}

	l.Update(tracks("x", "y"))
	if l.ActiveIndex() != 0 {
		t.Fatalf("Update kept index %d", l.ActiveIndex())
	}
}

func TestReorderFollowsActive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		active, from, to int
		order            string
		want             int
	}{
		{active: 1, from: 1, to: 3, order: "[a c d b]", want: 3},
		{active: 2, from: 0, to: 3, order: "[b c d a]", want: 1},
		{active: 1, from: 3, to: 0, order: "[d a b c]", want: 2},
		{active: 0, from: 2, to: 3, order: "[a b d c]", want: 0},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d-%d-%d", tc.active, tc.from, tc.to), func(t *testing.T) {
			t.Parallel()

			l := New()
			l.Update(tracks("a", "b", "c", "d"))
			l.ChangeActive(tc.active)
			before, _ := l.Active()

			l.Reorder(tc.from, tc.to)

			if got := names(l.Files()); got != tc.order {
				t.Fatalf("order = %s, want %s", got, tc.order)
			}
			after, _ := l.Active()
			if l.ActiveIndex() != tc.want || after.Name != before.Name {
				t.Fatalf("active = %d (%s), want %d (%s)", l.ActiveIndex(), after.Name, tc.want, before.Name)
			}
		})
	}
}

func TestShuffleRestoresOrder(t *testing.T) {
	t.Parallel()

	l := New(WithRand(rand.New(rand.NewPCG(1, 2))))
	l.Update(tracks("a", "b", "c", "d", "e", "f"))
	l.ChangeActive(4)

	l.ToggleShuffle()
	if !l.Shuffled() || l.ActiveIndex() != 0 || l.Len() != 6 {
		t.Fatalf("shuffle state: %v %d", l.Shuffled(), l.ActiveIndex())
	}

	l.ToggleShuffle()
	if l.Shuffled() || names(l.Files()) != "[a b c d e f]" {
		t.Fatalf("unshuffled order = %s", names(l.Files()))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	s := NewStore(dir, WithStoreLogger(logger))

	if got := s.LoadAll(); len(got) != 0 {
		t.Fatalf("fresh store = %d tracks", len(got))
	}
	if s.LoadActiveIndex() != 0 {
		t.Fatal("fresh index not 0")
	}

	s.SaveAll(tracks("b/side.mp3", "a.mp3"))
	s.SaveAll([]playback.File{{Name: "a.mp3", Data: []byte("new"), LastModified: time.UnixMilli(5), MIME: "audio/wav"}})
	s.SaveActiveIndex(1)

	got := s.LoadAll()
	if names(got) != "[a.mp3 b/side.mp3]" {
		t.Fatalf("loaded = %s", names(got))
	}
	if string(got[0].Data) != "new" || got[0].MIME != "audio/wav" || got[0].LastModified.UnixMilli() != 5 {
		t.Fatalf("replaced track = %+v", got[0])
	}
	if s.LoadActiveIndex() != 1 {
		t.Fatalf("index = %d", s.LoadActiveIndex())
	}

	if err := os.WriteFile(filepath.Join(dir, stateFile), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if s.LoadActiveIndex() != 0 {
		t.Fatal("corrupt state not read as 0")
	}

	s.ClearAll()
	if len(s.LoadAll()) != 0 || s.LoadActiveIndex() != 0 {
		t.Fatal("ClearAll left data behind")
	}
}

func TestDurationProbe(t *testing.T) {
	t.Parallel()

	wav := playback.File{Name: "tone.wav", Data: testutil.WAVBytes(t, testutil.DeterministicSine(440, 8000, 0.5, 4000), 8000)}

	c := NewDurationCache()
	if d := c.Duration(wav); math.Abs(d-0.5) > 1e-6 {
		t.Fatalf("wav duration = %v, want 0.5", d)
	}

	junk := playback.File{Name: "junk.mp3", Data: []byte("not audio at all")}
	if d := c.Duration(junk); d != 0 {
		t.Fatalf("junk duration = %v", d)
	}
	if d, ok := c.Cached("junk.mp3"); !ok || d != 0 {
		t.Fatal("failed probe not cached")
	}

	// cached by name, so new bytes under the same name are not probed
	wav.Data = nil
	if d := c.Duration(wav); math.Abs(d-0.5) > 1e-6 {
		t.Fatalf("cached duration = %v", d)
	}
}

func TestReadTagsFallsBackToName(t *testing.T) {
	t.Parallel()

	tags, err := ReadTags(playback.File{Name: "My Song.mp3", Data: []byte("no tags")})
	if err == nil {
		t.Fatal("expected tag error")
	}
	if tags.Title != "My Song" || tags.Artist != "" {
		t.Fatalf("tags = %+v", tags)
	}
}
