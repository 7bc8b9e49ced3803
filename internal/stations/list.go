package stations

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/cwbudde/algo-player/internal/settings"
)

// CacheTTL is how long a fetched directory is considered fresh.
const CacheTTL = time.Minute

// Fetcher returns the current directory.
type Fetcher interface {
	Fetch(ctx context.Context) (Directory, error)
}

// Option configures a List.
type Option func(*List)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *List) { s.logger = l }
}

// WithClock replaces time.Now for cache freshness.
func WithClock(now func() time.Time) Option {
	return func(s *List) { s.now = now }
}

// List is the user's ordered station list. The order and the active id
// are persisted in the settings store.
type List struct {
	fetcher Fetcher
	prefs   *settings.Store
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	stations   []Station
	categories []Category
	active     *Station
	lastFetch  time.Time
	lastErr    string
	inflight   chan struct{}
	flightErr  error
	subs       map[int]func(Station, bool)
	nextSub    int
}

// NewList restores the saved order and the active station.
func NewList(fetcher Fetcher, prefs *settings.Store, opts ...Option) *List {
	s := &List{
		fetcher: fetcher,
		prefs:   prefs,
		logger:  slog.Default(),
		now:     time.Now,
		subs:    make(map[int]func(Station, bool)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stations = s.loadSaved()
	s.mu.Lock()
	st, changed := s.reconcileLocked()
	s.mu.Unlock()

	if changed {
		s.persistActive(st.ID)
	}

	return s
}

func (s *List) loadSaved() []Station {
	raw, ok, err := s.prefs.KV().Get(settings.KeyUserRadios)
	if err != nil {
		s.logger.Warn("stations read failed", "error", err)

		return nil
	}
	if !ok {
		return nil
	}

	var saved []Station
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		s.logger.Warn("saved stations ignored", "error", err)

		return nil
	}

	return saved
}

func (s *List) saveLocked() {
	list := s.stations
	if list == nil {
		list = []Station{}
	}

	raw, err := json.Marshal(list)
	if err != nil {
		s.logger.Warn("stations encode failed", "error", err)

		return
	}
	if err := s.prefs.KV().Set(settings.KeyUserRadios, string(raw)); err != nil {
		s.logger.Warn("stations write failed", "error", err)
	}
}

// reconcileLocked points active at the persisted id, falling back to the
// first station. changed is set when the active station moved; the caller
// persists and announces it after unlocking.
func (s *List) reconcileLocked() (st Station, changed bool) {
	if len(s.stations) == 0 {
		s.active = nil

		return Station{}, false
	}

	target := s.prefs.Snapshot().ActiveRadioID
	st, ok := lo.Find(s.stations, func(st Station) bool { return st.ID == target })
	if !ok {
		st = s.stations[0]
	}

	changed = s.active == nil || s.active.ID != st.ID
	s.active = &st

	return st, changed
}

func (s *List) announce(st Station, changed bool) {
	if !changed {
		return
	}

	s.persistActive(st.ID)
	s.notify(st, true)
}

func (s *List) persistActive(id int) {
	if s.prefs.Snapshot().ActiveRadioID == id {
		return
	}

	s.prefs.Update(func(snap *settings.Snapshot) { snap.ActiveRadioID = id })
}

// Fetch refreshes the directory unless the cached copy is younger than
// CacheTTL and force is false. Concurrent calls share one request.
func (s *List) Fetch(ctx context.Context, force bool) error {
	s.mu.Lock()
	if s.inflight != nil {
		wait := s.inflight
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		return s.flightErr
	}

	now := s.now()
	cached := len(s.stations) > 0 && len(s.categories) > 0
	fresh := !s.lastFetch.IsZero() && now.Sub(s.lastFetch) < CacheTTL
	if !force && cached && fresh {
		s.mu.Unlock()

		return nil
	}

	done := make(chan struct{})
	s.inflight = done
	s.lastErr = ""
	s.mu.Unlock()

	dir, err := s.fetcher.Fetch(ctx)

	s.mu.Lock()
	var active Station
	var changed bool
	if err != nil {
		s.lastErr = err.Error()
		s.logger.Warn("station directory fetch failed", "error", err)
	} else {
		ordered := MergeWithSavedOrder(s.stations, dir.Stations)
		if !slices.Equal(s.stations, ordered) {
			s.stations = ordered
			s.saveLocked()
			active, changed = s.reconcileLocked()
		}
		if !slices.Equal(s.categories, dir.Categories) {
			s.categories = dir.Categories
		}
		s.lastFetch = now
	}
	s.flightErr = err
	s.inflight = nil
	close(done)
	s.mu.Unlock()

	s.announce(active, changed)

	return err
}

// MergeWithSavedOrder orders incoming by the position of each id in saved;
// stations not in saved follow in incoming order.
func MergeWithSavedOrder(saved, incoming []Station) []Station {
	if len(saved) == 0 {
		return incoming
	}

	order := make(map[int]int, len(saved))
	for i, st := range saved {
		order[st.ID] = i
	}

	type weighted struct {
		st     Station
		weight int
	}

	ws := lo.Map(incoming, func(st Station, i int) weighted {
		w, ok := order[st.ID]
		if !ok {
			w = len(order) + i
		}

		return weighted{st, w}
	})
	slices.SortStableFunc(ws, func(a, b weighted) int { return a.weight - b.weight })

	return lo.Map(ws, func(w weighted, _ int) Station { return w.st })
}

// Stations returns the ordered list.
func (s *List) Stations() []Station {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.stations)
}

// Categories returns the directory categories of the last fetch.
func (s *List) Categories() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.categories)
}

// Active returns the active station.
func (s *List) Active() (Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return Station{}, false
	}

	return *s.active, true
}

// Loading reports whether a fetch is in flight.
func (s *List) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inflight != nil
}

// LastError is the message of the last failed fetch, or "".
func (s *List) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// LastFetch is the time of the last successful fetch.
func (s *List) LastFetch() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastFetch
}

// SetStations replaces the list when it differs from the current one.
func (s *List) SetStations(list []Station) {
	s.mu.Lock()
	if slices.Equal(s.stations, list) {
		s.mu.Unlock()

		return
	}
	s.stations = slices.Clone(list)
	s.saveLocked()
	active, changed := s.reconcileLocked()
	s.mu.Unlock()

	s.announce(active, changed)
}

// ChangeActive activates the station with id. Unknown ids are ignored.
func (s *List) ChangeActive(id int) (Station, bool) {
	s.mu.Lock()
	st, ok := lo.Find(s.stations, func(st Station) bool { return st.ID == id })
	if !ok {
		s.mu.Unlock()

		return Station{}, false
	}

	changed := s.active == nil || s.active.ID != st.ID
	s.active = &st
	s.mu.Unlock()

	s.announce(st, changed)

	return st, true
}

// Next activates the following station, wrapping to the first.
func (s *List) Next() (Station, bool) { return s.neighbour(1) }

// Prev activates the preceding station, wrapping to the last.
func (s *List) Prev() (Station, bool) { return s.neighbour(-1) }

func (s *List) neighbour(offset int) (Station, bool) {
	s.mu.Lock()
	if len(s.stations) == 0 {
		s.mu.Unlock()

		return Station{}, false
	}

	idx := -1
	if s.active != nil {
		idx = slices.IndexFunc(s.stations, func(st Station) bool { return st.ID == s.active.ID })
	}

	next := idx + offset
	switch {
	case next >= len(s.stations):
		next = 0
	case next < 0:
		next = len(s.stations) - 1
	}

	id := s.stations[next].ID
	s.mu.Unlock()

	return s.ChangeActive(id)
}

// Reorder moves the station at from to index to. Out of range indices are
// ignored.
func (s *List) Reorder(from, to int) {
	s.mu.Lock()
	n := len(s.stations)
	if from == to || from < 0 || to < 0 || from >= n || to >= n {
		s.mu.Unlock()

		return
	}

	list := slices.Clone(s.stations)
	moved := list[from]
	list = slices.Delete(list, from, from+1)
	list = slices.Insert(list, to, moved)
	s.mu.Unlock()

	s.SetStations(list)
}

// Subscribe calls fn whenever the active station changes.
func (s *List) Subscribe(fn func(st Station, ok bool)) func() {
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

func (s *List) notify(st Station, ok bool) {
	s.mu.Lock()
	fns := make([]func(Station, bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st, ok)
	}
}
