package settings

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/cwbudde/algo-player/internal/equalizer"
)

// Storage keys. Positions, station order and the migration marker are
// owned by other packages but live in the same store.
const (
	KeyVolume                 = "audio-volume"
	KeyPlaybackRate           = "audio-playback-rate"
	KeyLoop                   = "audio-loop"
	KeyAutoplay               = "audio-autoplay"
	KeyVisualization          = "audio-visualization"
	KeyVisualizationIntensity = "visualization-intensity"
	KeyVisualizationFPS       = "visualization-fps"
	KeyElectricEffects        = "electric-effects"
	KeyEqualizerPreset        = "audio-equalizer-preset"
	KeyFilterSettings         = "audio-filter-settings"
	KeyMode                   = "radio-mode"
	KeyActiveRadioID          = "active-radio-id"
	KeyPositions              = "audioPositions"
	KeyUserRadios             = "user-radios"
	KeyMigrationVersion       = "storage-migration-version"
)

// Mode selects what the player is playing from.
type Mode string

const (
	ModeMusic Mode = "music"
	ModeRadio Mode = "radio"
)

// Snapshot is an immutable view of every persisted preference.
type Snapshot struct {
	Volume                 int                `json:"volume"`
	PlaybackRate           float64            `json:"playbackRate"`
	Loop                   bool               `json:"loop"`
	Autoplay               bool               `json:"autoplay"`
	Visualization          string             `json:"visualization"`
	VisualizationIntensity float64            `json:"visualizationIntensity"`
	VisualizationFPS       int                `json:"visualizationFPS"`
	ElectricEffects        bool               `json:"electricEffects"`
	EqualizerPreset        string             `json:"equalizerPreset"`
	Filter                 equalizer.Settings `json:"filterSettings"`
	Mode                   Mode               `json:"mode"`
	ActiveRadioID          int                `json:"activeRadioId"`
}

// Defaults returns the preferences of a fresh install.
func Defaults() Snapshot {
	return Snapshot{
		Volume:                 100,
		PlaybackRate:           1,
		Visualization:          "bars",
		VisualizationIntensity: 1,
		VisualizationFPS:       60,
		ElectricEffects:        true,
		EqualizerPreset:        equalizer.DefaultPreset,
		Filter:                 equalizer.DefaultSettings(),
		Mode:                   ModeRadio,
		ActiveRadioID:          1,
	}
}

// VolumeFraction maps the 0..100 volume onto the element range.
func (s Snapshot) VolumeFraction() float64 {
	return float64(min(max(s.Volume, 0), 100)) / 100
}

// field binds one storage key to a Snapshot field.
type field struct {
	key string
	ptr func(*Snapshot) any
}

var fields = []field{
	{KeyVolume, func(s *Snapshot) any { return &s.Volume }},
	{KeyPlaybackRate, func(s *Snapshot) any { return &s.PlaybackRate }},
	{KeyLoop, func(s *Snapshot) any { return &s.Loop }},
	{KeyAutoplay, func(s *Snapshot) any { return &s.Autoplay }},
	{KeyVisualization, func(s *Snapshot) any { return &s.Visualization }},
	{KeyVisualizationIntensity, func(s *Snapshot) any { return &s.VisualizationIntensity }},
	{KeyVisualizationFPS, func(s *Snapshot) any { return &s.VisualizationFPS }},
	{KeyElectricEffects, func(s *Snapshot) any { return &s.ElectricEffects }},
	{KeyEqualizerPreset, func(s *Snapshot) any { return &s.EqualizerPreset }},
	{KeyFilterSettings, func(s *Snapshot) any { return &s.Filter }},
	{KeyMode, func(s *Snapshot) any { return &s.Mode }},
	{KeyActiveRadioID, func(s *Snapshot) any { return &s.ActiveRadioID }},
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for storage faults.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store projects a KV onto Snapshots and broadcasts every change.
// Storage faults are logged and never returned: a key that cannot be read
// keeps its default, a write that fails leaves the in-memory snapshot
// updated.
type Store struct {
	kv     KV
	logger *slog.Logger

	mu      sync.Mutex
	current Snapshot
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewStore runs pending migrations and reads the current snapshot.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	Migrate(kv, s.logger)
	s.current = s.read()

	return s
}

// KV returns the underlying store.
func (s *Store) KV() KV { return s.kv }

func (s *Store) read() Snapshot {
	snap := Defaults()

	for _, f := range fields {
		raw, ok, err := s.kv.Get(f.key)
		if err != nil {
			s.logger.Warn("settings read failed", "key", f.key, "error", err)

			continue
		}
		if !ok {
			continue
		}

		// decode into a scratch copy so a bad value keeps the default
		scratch := snap
		if err := json.Unmarshal([]byte(raw), f.ptr(&scratch)); err != nil {
			s.logger.Warn("settings value ignored", "key", f.key, "error", err)

			continue
		}
		snap = scratch
	}

	return snap
}

// Snapshot returns the current preferences.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Update applies fn to a copy of the current snapshot, persists the keys
// that changed and notifies subscribers.
func (s *Store) Update(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	prev := s.current
	next := prev
	fn(&next)

	for _, f := range fields {
		before, err1 := json.Marshal(f.ptr(&prev))
		after, err2 := json.Marshal(f.ptr(&next))
		if err1 != nil || err2 != nil || string(before) == string(after) {
			continue
		}

		if err := s.kv.Set(f.key, string(after)); err != nil {
			s.logger.Warn("settings write failed", "key", f.key, "error", err)
		}
	}

	s.current = next
	s.mu.Unlock()

	s.broadcast(next)

	return next
}

// ApplyPreset writes the preset's bands and name. Unknown names are
// ignored and reported as false.
func (s *Store) ApplyPreset(name string) bool {
	bands, ok := equalizer.PresetByName(name)
	if !ok {
		return false
	}

	s.Update(func(snap *Snapshot) {
		snap.Filter = bands
		snap.EqualizerPreset = name
	})

	return true
}

// Reload rereads the store, typically after another process changed it,
// and broadcasts the result.
func (s *Store) Reload() Snapshot {
	snap := s.read()

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.broadcast(snap)

	return snap
}

// Subscribe registers fn for every new snapshot and returns a cancel func.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) broadcast(snap Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// MigrationVersion is the store layout this build writes.
const MigrationVersion = 1

var obsoleteKeys = []string{"radioPositions", "active-radio"}

// Migrate upgrades kv to MigrationVersion. It runs once per store.
func Migrate(kv KV, logger *slog.Logger) {
	version := 0
	if raw, ok, err := kv.Get(KeyMigrationVersion); err == nil && ok {
		if v, err := strconv.Atoi(raw); err == nil {
			version = v
		}
	}

	if version >= MigrationVersion {
		return
	}

	for _, key := range obsoleteKeys {
		if err := kv.Delete(key); err != nil {
			logger.Warn("settings migration: delete failed", "key", key, "error", err)
		}
	}

	if err := kv.Set(KeyMigrationVersion, strconv.Itoa(MigrationVersion)); err != nil {
		logger.Warn("settings migration: version write failed", "error", err)

		return
	}

	logger.Debug("settings migrated", "from", version, "to", MigrationVersion)
}
