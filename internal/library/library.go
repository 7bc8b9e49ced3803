// Package library keeps the local track list: ordering, navigation,
// shuffle and repeat, plus on-disk persistence and per-file metadata.
package library

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/cwbudde/algo-player/internal/playback"
)

// Option configures a Library.
type Option func(*Library)

// WithRand sets the shuffle source.
func WithRand(r *rand.Rand) Option {
	return func(l *Library) { l.rng = r }
}

// Library is an ordered track list with one active track.
type Library struct {
	rng *rand.Rand

	mu       sync.Mutex
	files    []playback.File
	original []playback.File
	active   int
	shuffle  bool
	repeat   bool
}

// New returns an empty library.
func New(opts ...Option) *Library {
	l := &Library{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Files returns the current order.
func (l *Library) Files() []playback.File {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.files)
}

// Len is the number of tracks.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.files)
}

// Active returns the active track.
func (l *Library) Active() (playback.File, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active < 0 || l.active >= len(l.files) {
		return playback.File{}, false
	}

	return l.files[l.active], true
}

// ActiveIndex is the index of the active track.
func (l *Library) ActiveIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.active
}

// Shuffled reports whether shuffle is on.
func (l *Library) Shuffled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.shuffle
}

// Repeating reports whether repeat is on.
func (l *Library) Repeating() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.repeat
}

// Update replaces the list and resets index, shuffle and repeat.
func (l *Library) Update(files []playback.File) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.replaceLocked(files)
	l.active = 0
}

// UpdateWithoutReset replaces the list but keeps the active index, e.g.
// after restoring a saved index.
func (l *Library) UpdateWithoutReset(files []playback.File) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.replaceLocked(files)
}

func (l *Library) replaceLocked(files []playback.File) {
	l.files = slices.Clone(files)
	l.original = slices.Clone(files)
	l.shuffle, l.repeat = false, false
}

// ChangeActive selects index i. Out of range indices are ignored.
func (l *Library) ChangeActive(i int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= len(l.files) {
		return false
	}
	l.active = i

	return true
}

// Next advances. From the last track it wraps only with repeat on; it
// reports whether the active track changed position.
func (l *Library) Next() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.files)
	if n == 0 {
		return false
	}

	if l.active == n-1 {
		if !l.repeat {
			return false
		}
		l.active = 0

		return true
	}

	l.active = (l.active + 1) % n

	return true
}

// Prev steps back, always wrapping.
func (l *Library) Prev() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.files)
	if n == 0 {
		return false
	}
	l.active = (l.active - 1 + n) % n

	return true
}

// Reorder moves the track at from to index to. The active track keeps
// being active.
func (l *Library) Reorder(from, to int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.files)
	if from == to || from < 0 || to < 0 || from >= n || to >= n {
		return
	}

	moved := l.files[from]
	l.files = slices.Insert(slices.Delete(l.files, from, from+1), to, moved)

	if !l.shuffle {
		l.original = slices.Clone(l.files)
	}

	switch {
	case l.active == from:
		l.active = to
	case from < l.active && to >= l.active:
		l.active--
	case from > l.active && to <= l.active:
		l.active++
	}
}

// ToggleShuffle shuffles the list and restarts at the first track, or
// restores the order from before shuffling.
func (l *Library) ToggleShuffle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.files) == 0 {
		return
	}

	if !l.shuffle {
		l.original = slices.Clone(l.files)
		l.rng.Shuffle(len(l.files), func(i, j int) { l.files[i], l.files[j] = l.files[j], l.files[i] })
		l.active = 0
		l.shuffle = true

		return
	}

	l.files = slices.Clone(l.original)
	l.active = min(l.active, len(l.files)-1)
	l.shuffle = false
}

// ToggleRepeat flips repeat.
func (l *Library) ToggleRepeat() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.repeat = !l.repeat
}
