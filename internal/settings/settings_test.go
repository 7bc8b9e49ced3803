package settings

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-player/internal/equalizer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultsOnEmptyStore(t *testing.T) {
	t.Parallel()

	s := NewStore(NewMemoryStore(), WithLogger(quietLogger()))
	got := s.Snapshot()

	if got != Defaults() {
		t.Fatalf("snapshot = %+v", got)
	}
	if got.Volume != 100 || got.Visualization != "bars" || got.Mode != ModeRadio || got.ActiveRadioID != 1 {
		t.Fatalf("unexpected defaults %+v", got)
	}
	if got.Filter.Bass.Frequency != 100 || got.Filter.Treble.Frequency != 4000 {
		t.Fatalf("default bands = %+v", got.Filter)
	}
	if got.VolumeFraction() != 1 {
		t.Fatalf("VolumeFraction = %v", got.VolumeFraction())
	}
}

func TestUpdatePersistsChangedKeys(t *testing.T) {
	t.Parallel()

	kv := NewMemoryStore()
	s := NewStore(kv, WithLogger(quietLogger()))

	var seen []Snapshot
	cancel := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })
	defer cancel()

	s.Update(func(snap *Snapshot) {
		snap.Volume = 40
		snap.Mode = ModeMusic
	})

	if raw, ok, _ := kv.Get(KeyVolume); !ok || raw != "40" {
		t.Fatalf("volume key = %q %v", raw, ok)
	}
	if raw, _, _ := kv.Get(KeyMode); raw != `"music"` {
		t.Fatalf("mode key = %q", raw)
	}
	if _, ok, _ := kv.Get(KeyPlaybackRate); ok {
		t.Fatal("unchanged key was written")
	}

	if len(seen) != 1 || seen[0].Volume != 40 {
		t.Fatalf("broadcasts = %+v", seen)
	}

	// a second store over the same KV reads the values back
	if got := NewStore(kv, WithLogger(quietLogger())).Snapshot(); got.Volume != 40 || got.Mode != ModeMusic {
		t.Fatalf("reread = %+v", got)
	}
}

func TestBadValueKeepsDefault(t *testing.T) {
	t.Parallel()

	kv := NewMemoryStore()
	_ = kv.Set(KeyVolume, `"loud"`)
	_ = kv.Set(KeyVisualizationFPS, "30")

	got := NewStore(kv, WithLogger(quietLogger())).Snapshot()
	if got.Volume != 100 || got.VisualizationFPS != 30 {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestApplyPreset(t *testing.T) {
	t.Parallel()

	s := NewStore(NewMemoryStore(), WithLogger(quietLogger()))

	if !s.ApplyPreset("Rock") {
		t.Fatal("ApplyPreset(Rock) = false")
	}

	rock, _ := equalizer.PresetByName("Rock")
	if got := s.Snapshot(); got.EqualizerPreset != "Rock" || got.Filter != rock {
		t.Fatalf("snapshot = %+v", got)
	}

	if s.ApplyPreset("rock") {
		t.Fatal("preset lookup must be case sensitive")
	}
	if s.Snapshot().EqualizerPreset != "Rock" {
		t.Fatal("unknown preset changed state")
	}
}

func TestMigrationRemovesObsoleteKeys(t *testing.T) {
	t.Parallel()

	kv := NewMemoryStore()
	_ = kv.Set("radioPositions", "[]")
	_ = kv.Set("active-radio", `{"id":3}`)
	_ = kv.Set(KeyVolume, "70")

	NewStore(kv, WithLogger(quietLogger()))

	for _, key := range []string{"radioPositions", "active-radio"} {
		if _, ok, _ := kv.Get(key); ok {
			t.Fatalf("%s survived migration", key)
		}
	}
	if raw, _, _ := kv.Get(KeyMigrationVersion); raw != "1" {
		t.Fatalf("version = %q", raw)
	}

	// already migrated stores are left alone
	_ = kv.Set("radioPositions", "[]")
	Migrate(kv, quietLogger())
	if _, ok, _ := kv.Get("radioPositions"); !ok {
		t.Fatal("migration ran twice")
	}
}

type failingKV struct{ *MemoryStore }

func (failingKV) Set(string, string) error { return errors.New("disk full") }

func TestStorageFaultIsNotFatal(t *testing.T) {
	t.Parallel()

	s := NewStore(failingKV{NewMemoryStore()}, WithLogger(quietLogger()))
	got := s.Update(func(snap *Snapshot) { snap.Loop = true })

	if !got.Loop || !s.Snapshot().Loop {
		t.Fatal("in-memory snapshot not updated after a failed write")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if err := f.Set(KeyVolume, "55"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := f.Set(KeyMode, "not json"); err == nil {
		t.Fatal("invalid JSON accepted")
	}

	g, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	if raw, ok, _ := g.Get(KeyVolume); !ok || raw != "55" {
		t.Fatalf("reopened value = %q %v", raw, ok)
	}

	if err := g.Delete(KeyVolume); err != nil {
		t.Fatal(err)
	}
	if keys, _ := g.Keys(); len(keys) != 0 {
		t.Fatalf("keys after delete = %v", keys)
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatal("corrupt file opened without error")
	}
}

func TestFileStoreReloadIgnoresOwnWrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	_ = f.Set(KeyLoop, "true")
	if changed, err := f.Reload(); err != nil || changed {
		t.Fatalf("Reload after own write = %v, %v", changed, err)
	}

	if err := os.WriteFile(path, []byte(`{"audio-loop": false}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if changed, err := f.Reload(); err != nil || !changed {
		t.Fatalf("Reload after external write = %v, %v", changed, err)
	}
	if raw, _, _ := f.Get(KeyLoop); raw != "false" {
		t.Fatalf("loop = %q", raw)
	}
}

func TestFileStoreWatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	f, err := OpenFile(path, WithFileLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	s := NewStore(f, WithLogger(quietLogger()))

	changed := make(chan Snapshot, 8)
	s.Subscribe(func(snap Snapshot) { changed <- snap })

	if err := f.Watch(func() { s.Reload() }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// an external editor rewrites the file
	other, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Set(KeyVolume, "12"); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-changed:
			if snap.Volume == 12 {
				return
			}
		case <-deadline:
			t.Fatal("external edit not broadcast")
		}
	}
}
