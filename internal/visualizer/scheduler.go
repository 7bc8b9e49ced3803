package visualizer

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// FrameScheduler delivers animation frames. Callbacks run once, on a
// later tick, never from inside RequestFrame.
type FrameScheduler interface {
	RequestFrame(fn func(now time.Time)) (id int)
	CancelFrame(id int)
}

// TickerScheduler runs frame callbacks from a ticker goroutine, like a
// display refresh.
type TickerScheduler struct {
	mu      sync.Mutex
	nextID  int
	pending map[int]func(time.Time)

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// NewTickerScheduler ticks at hz frames per second.
func NewTickerScheduler(hz int) *TickerScheduler {
	if hz <= 0 {
		hz = 60
	}

	s := &TickerScheduler{
		pending: make(map[int]func(time.Time)),
		ticker:  time.NewTicker(time.Second / time.Duration(hz)),
		done:    make(chan struct{}),
	}

	go s.run()

	return s
}

func (s *TickerScheduler) run() {
	for {
		select {
		case <-s.done:
			return
		case now := <-s.ticker.C:
			s.mu.Lock()
			due := s.pending
			s.pending = make(map[int]func(time.Time))
			s.mu.Unlock()

			for _, id := range slices.Sorted(maps.Keys(due)) {
				due[id](now)
			}
		}
	}
}

func (s *TickerScheduler) RequestFrame(fn func(time.Time)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.pending[s.nextID] = fn

	return s.nextID
}

func (s *TickerScheduler) CancelFrame(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
}

// Close stops the ticker. Pending callbacks are dropped.
func (s *TickerScheduler) Close() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}
