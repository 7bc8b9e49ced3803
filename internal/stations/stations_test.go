package stations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwbudde/algo-player/internal/settings"
)

const directoryJSON = `{
  "success": true,
  "data": {
    "stations": [
      {"id": 1, "name": "Jazz FM", "src": "http://upstream/jazz", "category": "jazz", "description": "smooth"},
      {"id": 2, "name": "Rock Radio", "category": "rock"},
      {"id": 3, "name": "News", "category": "talk"}
    ],
    "categories": [{"id": "jazz", "name": "Jazz", "description": ""}],
    "total": 3
  }
}`

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newPrefs() *settings.Store {
	return settings.NewStore(settings.NewMemoryStore(), settings.WithLogger(quiet()))
}

func directoryServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stations" {
			http.NotFound(w, r)

			return
		}
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestClientFetchNormalizes(t *testing.T) {
	t.Parallel()

	srv := directoryServer(t, directoryJSON, nil)
	c := NewClient(srv.URL + "/api/")

	dir, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if dir.Total != 3 || len(dir.Stations) != 3 || len(dir.Categories) != 1 {
		t.Fatalf("directory = %+v", dir)
	}

	want := Station{ID: 1, Name: "Jazz FM", Src: srv.URL + "/api/proxy/1", Category: "jazz", Description: "smooth", Direct: "http://upstream/jazz"}
	if dir.Stations[0] != want {
		t.Fatalf("station = %+v, want %+v", dir.Stations[0], want)
	}
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	failed := directoryServer(t, `{"success": false, "data": {}}`, nil)
	if _, err := NewClient(failed.URL + "/api").Fetch(context.Background()); !errors.Is(err, ErrUnsuccessful) {
		t.Fatalf("err = %v, want ErrUnsuccessful", err)
	}

	missing := directoryServer(t, directoryJSON, nil)
	if _, err := NewClient(missing.URL + "/other").Fetch(context.Background()); err == nil || err.Error() != "stations: HTTP 404" {
		t.Fatalf("err = %v", err)
	}
}

func TestMergeWithSavedOrder(t *testing.T) {
	t.Parallel()

	saved := []Station{{ID: 3}, {ID: 1}}
	incoming := []Station{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}

	got := MergeWithSavedOrder(saved, incoming)
	ids := make([]int, len(got))
	for i, st := range got {
		ids[i] = st.ID
	}

	if fmt.Sprint(ids) != "[3 1 2 4]" {
		t.Fatalf("order = %v", ids)
	}

	if got := MergeWithSavedOrder(nil, incoming); len(got) != 4 || got[0].ID != 1 {
		t.Fatalf("no saved order = %+v", got)
	}
}

func TestListFetchCachesAndReconciles(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := directoryServer(t, directoryJSON, &hits)

	now := time.Unix(1000, 0)
	prefs := newPrefs()
	prefs.Update(func(s *settings.Snapshot) { s.ActiveRadioID = 2 })

	l := NewList(NewClient(srv.URL+"/api"), prefs, WithLogger(quiet()), WithClock(func() time.Time { return now }))

	if _, ok := l.Active(); ok {
		t.Fatal("active station before any fetch")
	}

	if err := l.Fetch(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if st, _ := l.Active(); st.ID != 2 {
		t.Fatalf("active = %+v, want persisted id 2", st)
	}

	if err := l.Fetch(context.Background(), false); err != nil || hits.Load() != 1 {
		t.Fatalf("fresh cache refetched: hits = %d, err = %v", hits.Load(), err)
	}

	if err := l.Fetch(context.Background(), true); err != nil || hits.Load() != 2 {
		t.Fatalf("forced fetch: hits = %d, err = %v", hits.Load(), err)
	}

	now = now.Add(CacheTTL)
	if err := l.Fetch(context.Background(), false); err != nil || hits.Load() != 3 {
		t.Fatalf("stale cache: hits = %d, err = %v", hits.Load(), err)
	}

	// the list survives in the store
	again := NewList(NewClient(srv.URL+"/api"), prefs, WithLogger(quiet()))
	if n := len(again.Stations()); n != 3 {
		t.Fatalf("restored %d stations", n)
	}
}

func TestListFallsBackToFirst(t *testing.T) {
	t.Parallel()

	prefs := newPrefs()
	prefs.Update(func(s *settings.Snapshot) { s.ActiveRadioID = 99 })

	l := NewList(nil, prefs, WithLogger(quiet()))
	l.SetStations([]Station{{ID: 5, Name: "A"}, {ID: 6, Name: "B"}})

	if st, _ := l.Active(); st.ID != 5 {
		t.Fatalf("active = %+v", st)
	}
	if prefs.Snapshot().ActiveRadioID != 5 {
		t.Fatalf("persisted id = %d", prefs.Snapshot().ActiveRadioID)
	}
}

type blockingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context) (Directory, error) {
	f.calls.Add(1)
	<-f.release

	return Directory{Stations: []Station{{ID: 1}}, Categories: []Category{{ID: "c"}}}, nil
}

func TestListFetchSingleFlight(t *testing.T) {
	t.Parallel()

	f := &blockingFetcher{release: make(chan struct{})}
	l := NewList(f, newPrefs(), WithLogger(quiet()))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Fetch(context.Background(), true)
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for !l.Loading() {
		if time.Now().After(deadline) {
			t.Fatal("fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	close(f.release)
	wg.Wait()

	// callers that arrive after the flight lands start a new one, so only
	// an upper bound holds
	if n := f.calls.Load(); n < 1 || n > 4 {
		t.Fatalf("fetcher calls = %d", n)
	}
	if len(l.Stations()) != 1 {
		t.Fatalf("stations = %+v", l.Stations())
	}
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context) (Directory, error) {
	return Directory{}, errors.New("HTTP 502")
}

func TestListKeepsLastError(t *testing.T) {
	t.Parallel()

	l := NewList(failingFetcher{}, newPrefs(), WithLogger(quiet()))
	l.SetStations([]Station{{ID: 1}})

	if err := l.Fetch(context.Background(), true); err == nil {
		t.Fatal("expected error")
	}
	if l.LastError() != "HTTP 502" || len(l.Stations()) != 1 || l.Loading() {
		t.Fatalf("error = %q, stations = %d", l.LastError(), len(l.Stations()))
	}
}

func TestListNavigation(t *testing.T) {
	t.Parallel()

	prefs := newPrefs()
	l := NewList(nil, prefs, WithLogger(quiet()))
	l.SetStations([]Station{{ID: 1}, {ID: 2}, {ID: 3}})

	var announced []int
	l.Subscribe(func(st Station, _ bool) { announced = append(announced, st.ID) })

	if st, _ := l.ChangeActive(3); st.ID != 3 {
		t.Fatalf("ChangeActive = %+v", st)
	}
	if st, _ := l.Next(); st.ID != 1 {
		t.Fatalf("Next from last = %d, want 1", st.ID)
	}
	if st, _ := l.Prev(); st.ID != 3 {
		t.Fatalf("Prev from first = %d, want 3", st.ID)
	}
	if _, ok := l.ChangeActive(42); ok {
		t.Fatal("unknown id accepted")
	}
	if prefs.Snapshot().ActiveRadioID != 3 {
		t.Fatalf("persisted id = %d", prefs.Snapshot().ActiveRadioID)
	}
	if fmt.Sprint(announced) != "[3 1 3]" {
		t.Fatalf("announced = %v", announced)
	}

	l.Reorder(2, 0)
	if ids := fmt.Sprint(lIDs(l)); ids != "[3 1 2]" {
		t.Fatalf("after reorder = %s", ids)
	}
	if st, _ := l.Active(); st.ID != 3 {
		t.Fatalf("reorder changed active to %d", st.ID)
	}

	l.Reorder(0, 7)
	if ids := fmt.Sprint(lIDs(l)); ids != "[3 1 2]" {
		t.Fatalf("out of range reorder applied: %s", ids)
	}
}

func TestNextWithSingleStation(t *testing.T) {
	t.Parallel()

	l := NewList(nil, newPrefs(), WithLogger(quiet()))
	l.SetStations([]Station{{ID: 8}})

	if st, ok := l.Next(); !ok || st.ID != 8 {
		t.Fatalf("Next = %+v %v", st, ok)
	}

	empty := NewList(nil, newPrefs(), WithLogger(quiet()))
	if _, ok := empty.Next(); ok {
		t.Fatal("Next on empty list")
	}
}

func lIDs(l *List) []int {
	var ids []int
	for _, st := range l.Stations() {
		ids = append(ids, st.ID)
	}

	return ids
}
