// Package position remembers where each track was left so playback can
// resume there. The list is bounded; the least recently saved entry is
// evicted first.
package position

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/cwbudde/algo-player/internal/settings"
)

// MaxPositions bounds the stored list.
const MaxPositions = 10

// DefaultThrottle is the minimum spacing of throttled saves.
const DefaultThrottle = time.Second

// Entry is one remembered position.
type Entry struct {
	Name      string  `json:"name"`
	Position  float64 `json:"position"`
	Timestamp int64   `json:"timestamp"`
}

// Option configures a List or Tracker.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	now      func() time.Time
	throttle time.Duration
}

func defaultOptions() options {
	return options{
		logger:   slog.Default(),
		now:      time.Now,
		throttle: DefaultThrottle,
	}
}

// WithLogger sets the logger for storage faults.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithThrottle sets the spacing of throttled saves.
func WithThrottle(d time.Duration) Option {
	return func(o *options) { o.throttle = d }
}

// List is the persisted position list, stored as JSON under
// settings.KeyPositions.
type List struct {
	kv settings.KV
	options

	mu sync.Mutex
}

// NewList returns a list backed by kv.
func NewList(kv settings.KV, opts ...Option) *List {
	l := &List{kv: kv, options: defaultOptions()}
	for _, opt := range opts {
		opt(&l.options)
	}

	return l
}

func (l *List) load() []Entry {
	raw, ok, err := l.kv.Get(settings.KeyPositions)
	if err != nil {
		l.logger.Warn("positions read failed", "error", err)

		return nil
	}
	if !ok {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		l.logger.Warn("positions ignored", "error", err)

		return nil
	}

	return entries
}

func (l *List) store(entries []Entry) {
	if entries == nil {
		entries = []Entry{}
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		l.logger.Warn("positions encode failed", "error", err)

		return
	}

	if err := l.kv.Set(settings.KeyPositions, string(raw)); err != nil {
		l.logger.Warn("positions write failed", "error", err)
	}
}

// Entries returns the stored list.
func (l *List) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.load()
}

// Save records pos for name, replacing an existing entry in place. A new
// name on a full list evicts the entry with the oldest timestamp.
func (l *List) Save(name string, pos float64) {
	if name == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.load()
	entry := Entry{Name: name, Position: pos, Timestamp: l.now().UnixMilli()}

	if i := slices.IndexFunc(entries, func(e Entry) bool { return e.Name == name }); i >= 0 {
		entries[i] = entry
	} else {
		if len(entries) >= MaxPositions {
			oldest := lo.MinBy(entries, func(a, b Entry) bool { return a.Timestamp < b.Timestamp })
			entries = lo.Reject(entries, func(e Entry, _ int) bool { return e.Name == oldest.Name })
		}
		entries = append(entries, entry)
	}

	l.store(entries)
}

// Lookup returns the stored position for name.
func (l *List) Lookup(name string) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := lo.Find(l.load(), func(e Entry) bool { return e.Name == name })

	return e.Position, ok
}

// Remove drops the entry for name.
func (l *List) Remove(name string) {
	if name == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.load()
	kept := lo.Reject(entries, func(e Entry, _ int) bool { return e.Name == name })
	if len(kept) != len(entries) {
		l.store(kept)
	}
}
