package playback_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwbudde/algo-player/internal/media"
	"github.com/cwbudde/algo-player/internal/playback"
	"github.com/cwbudde/algo-player/internal/testutil"
)

func songFile() playback.File {
	return playback.File{
		Name:         "song.mp3",
		Data:         make([]byte, 4096),
		LastModified: time.UnixMilli(1700000000000),
		MIME:         "audio/mpeg",
	}
}

func TestDescriptorIDs(t *testing.T) {
	t.Parallel()

	d := playback.FileDescriptor(songFile())
	if d.ID != "file-song.mp3-1700000000000-4096" || d.Type != playback.SourceFile {
		t.Fatalf("file descriptor = %+v", d)
	}

	if got := playback.RadioDescriptorID(7); got != "radio-7" {
		t.Fatalf("RadioDescriptorID = %q", got)
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{
		0:      "0:00",
		5.9:    "0:05",
		65:     "1:05",
		3600.2: "60:00",
		-1:     "0:00",
	}
	for in, want := range cases {
		if got := playback.FormatTime(in); got != want {
			t.Errorf("FormatTime(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadSameIDSkipsReload(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	c := playback.NewController(el)
	d := playback.FileDescriptor(songFile())

	if err := c.Load(context.Background(), d); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Load(context.Background(), d); err != nil {
		t.Fatalf("second Load: %v", err)
	}

	if n := len(el.Loads()); n != 1 {
		t.Fatalf("element loads = %d, want 1", n)
	}

	s := c.State()
	if s.Status != playback.StatusReady || !s.IsReady || s.Duration != 180 {
		t.Fatalf("state = %+v", s)
	}

	d.Autoplay = true
	if err := c.Load(context.Background(), d); err != nil {
		t.Fatalf("autoplay Load: %v", err)
	}
	if n := len(el.Loads()); n != 2 {
		t.Fatalf("autoplay reload count = %d, want 2", n)
	}
	if !c.State().IsPlaying {
		t.Fatal("autoplay load did not start playback")
	}
}

func TestPlayLoadsThenPlays(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	c := playback.NewController(el)

	if err := c.PlaySource(context.Background(), playback.StreamDescriptor(1, "Radio", "http://x/proxy/1")); err != nil {
		t.Fatalf("PlaySource: %v", err)
	}

	s := c.State()
	if !s.IsPlaying || s.Status != playback.StatusPlaying || s.CurrentSrc != "http://x/proxy/1" {
		t.Fatalf("state = %+v", s)
	}

	c.Pause()
	if s := c.State(); s.IsPlaying || s.Status != playback.StatusPaused {
		t.Fatalf("after pause = %+v", s)
	}
}

func TestPlayRejection(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	el.PlayErr = errors.New("user gesture required")
	c := playback.NewController(el)

	err := c.PlaySource(context.Background(), playback.FileDescriptor(songFile()))

	var rej *playback.PlaybackRejection
	if !errors.As(err, &rej) || !errors.Is(err, el.PlayErr) {
		t.Fatalf("err = %v, want PlaybackRejection wrapping the element error", err)
	}

	if s := c.State(); s.IsPlaying || s.Status == playback.StatusPlaying {
		t.Fatalf("rejected play changed state: %+v", s)
	}
	if c.Loading() {
		t.Fatal("loading flag left set")
	}

	if err := playback.NewController(testutil.NewFakeElement()).Play(context.Background()); !errors.Is(err, playback.ErrNoSource) {
		t.Fatalf("Play without source: err = %v", err)
	}
}

func TestLoadErrorMapsMediaError(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	el.Failures = map[string]playback.MediaErrorCode{"http://bad": playback.MediaErrSrcNotSupported}
	c := playback.NewController(el)

	err := c.Load(context.Background(), playback.StreamDescriptor(2, "Bad", "http://bad"))

	var le *playback.LoadError
	var me *playback.MediaError
	if !errors.As(err, &le) || !errors.As(err, &me) || me.Code != playback.MediaErrSrcNotSupported {
		t.Fatalf("err = %v", err)
	}

	if _, ok := c.Current(); ok {
		t.Fatal("failed load left a current source")
	}

	s := c.State()
	if s.Status != playback.StatusEmpty || s.IsReady || s.IsPlaying || s.Error != "Audio source not supported" {
		t.Fatalf("state = %+v, want empty with the load error", s)
	}

	if err := c.Load(context.Background(), playback.Descriptor{ID: "empty"}); !errors.Is(err, playback.ErrNoSource) {
		t.Fatalf("empty descriptor: err = %v", err)
	}
}

func TestDecodeFaultDuringPlayback(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	c := playback.NewController(el)

	if err := c.PlaySource(context.Background(), playback.FileDescriptor(songFile())); err != nil {
		t.Fatal(err)
	}

	el.Fail(playback.MediaErrDecode)

	s := c.State()
	if s.IsPlaying || s.Status != playback.StatusErrored || s.Error != "Audio decoding error" {
		t.Fatalf("state = %+v", s)
	}
}

func TestFallbackMovesToDegraded(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	c := playback.NewController(el)

	d := playback.StreamDescriptor(3, "Station", "http://primary")
	d.FallbackSrc = "http://fallback"

	if err := c.PlaySource(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	el.Fail(playback.MediaErrNetwork)

	loads := el.Loads()
	if len(loads) != 2 || loads[1].URL != "http://fallback" {
		t.Fatalf("loads = %+v", loads)
	}

	s := c.State()
	if s.Status != playback.StatusDegraded || !s.IsPlaying || s.CurrentSrc != "http://fallback" {
		t.Fatalf("state = %+v", s)
	}

	// a second fault is terminal
	el.Fail(playback.MediaErrNetwork)
	if s := c.State(); s.Status != playback.StatusErrored {
		t.Fatalf("state after second fault = %+v", s)
	}
}

func TestStaleLoadIsSuperseded(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	el.AutoResolve = false
	c := playback.NewController(el)

	errc := make(chan error, 1)
	go func() {
		errc <- c.Load(context.Background(), playback.StreamDescriptor(1, "A", "http://a"))
	}()

	waitFor(t, func() bool { return len(el.Loads()) == 1 })

	done := make(chan error, 1)
	go func() {
		done <- c.Load(context.Background(), playback.StreamDescriptor(2, "B", "http://b"))
	}()

	if err := <-errc; !errors.Is(err, playback.ErrSuperseded) {
		t.Fatalf("first load err = %v, want ErrSuperseded", err)
	}

	waitFor(t, func() bool { return len(el.Loads()) == 2 })
	el.Resolve()

	if err := <-done; err != nil {
		t.Fatalf("second load: %v", err)
	}

	if cur, _ := c.Current(); cur.ID != "radio-2" {
		t.Fatalf("current = %q, want radio-2", cur.ID)
	}
}

func TestQueuedMetadataOfOldLoadIsIgnored(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)

	el := media.NewElement(8000)
	t.Cleanup(func() { _ = el.Close() })
	t.Cleanup(func() { close(release) })

	c := playback.NewController(el)

	// hold the dispatcher inside a volumechange so later events queue up
	var armed atomic.Bool
	armed.Store(true)
	blocked, hold := make(chan struct{}), make(chan struct{})

	var mu sync.Mutex
	var seen []playback.EventType
	el.Subscribe(func(ev playback.Event) {
		if ev.Type == playback.EventVolumeChange && armed.CompareAndSwap(true, false) {
			close(blocked)
			<-hold
		}

		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
	})
	count := func(typ playback.EventType) int {
		mu.Lock()
		defer mu.Unlock()

		n := 0
		for _, got := range seen {
			if got == typ {
				n++
			}
		}

		return n
	}

	c.SetVolume(0.5)
	<-blocked

	a := playback.FileDescriptor(playback.File{
		Name: "a.wav",
		Data: testutil.WAVBytes(t, testutil.DC(0.25, 4000), 8000),
		MIME: "audio/wav",
	})
	errA := make(chan error, 1)
	go func() { errA <- c.Load(context.Background(), a) }()

	// a is decoded and its loadedmetadata sits in the queue
	waitFor(t, func() bool { return el.Duration() > 0 })

	errB := make(chan error, 1)
	go func() { errB <- c.Load(context.Background(), playback.StreamDescriptor(7, "B", srv.URL+"/proxy/7")) }()

	if err := <-errA; !errors.Is(err, playback.ErrSuperseded) {
		t.Fatalf("Load(a) err = %v, want ErrSuperseded", err)
	}
	waitFor(t, func() bool {
		p, ok := c.Pending()

		return ok && p.ID == "radio-7" && el.Duration() == 0
	})

	close(hold)
	waitFor(t, func() bool { return count(playback.EventLoadedMetadata) == 1 })

	// a second volumechange is dispatched only after every subscriber saw
	// the stale metadata
	c.SetMuted(false)
	waitFor(t, func() bool { return count(playback.EventVolumeChange) == 2 })

	select {
	case err := <-errB:
		t.Fatalf("Load(b) returned %v on metadata of a", err)
	default:
	}

	if _, ok := c.Current(); ok {
		t.Fatal("stale metadata made b current")
	}
	if s := c.State(); s.IsReady || s.Status != playback.StatusLoading {
		t.Fatalf("state = %+v, want still loading", s)
	}

	c.Stop()
	if err := <-errB; !errors.Is(err, playback.ErrSuperseded) {
		t.Fatalf("Load(b) after Stop err = %v", err)
	}
}

func TestStopClearsCurrent(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	c := playback.NewController(el)
	d := playback.FileDescriptor(songFile())

	if err := c.PlaySource(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	c.Stop()
	if _, ok := c.Current(); ok {
		t.Fatal("Stop kept the current source")
	}
	if s := c.State(); s.Status != playback.StatusEmpty || s.IsPlaying {
		t.Fatalf("state after stop = %+v", s)
	}

	if err := c.PlaySource(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if n := len(el.Loads()); n != 2 {
		t.Fatalf("play after stop loads = %d, want 2", n)
	}
}

func TestSeekClampAndUndo(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	c := playback.NewController(el)

	c.Seek(10)
	if len(el.Seeks()) != 0 {
		t.Fatal("seek without duration reached the element")
	}

	if err := c.Load(context.Background(), playback.FileDescriptor(songFile())); err != nil {
		t.Fatal(err)
	}

	c.Seek(30)
	c.Seek(500)
	if got := el.CurrentTime(); got != 180 {
		t.Fatalf("clamped seek = %v, want 180", got)
	}

	if !c.UndoSeek() || el.CurrentTime() != 30 {
		t.Fatalf("undo went to %v, want 30", el.CurrentTime())
	}
	if c.UndoSeek() {
		t.Fatal("second undo succeeded")
	}

	c.SeekBy(-100)
	if got := el.CurrentTime(); got != 0 {
		t.Fatalf("SeekBy clamp = %v", got)
	}

	c.SeekFraction(0.5)
	if s := c.State(); s.CurrentTime != 90 || s.Progress() != 50 {
		t.Fatalf("fraction seek state = %+v", s)
	}
}

func TestSubscribeAndVolume(t *testing.T) {
	t.Parallel()

	el := testutil.NewFakeElement()
	c := playback.NewController(el)

	var last playback.State
	calls := 0
	cancel := c.Subscribe(func(s playback.State) {
		last = s
		calls++
	})

	c.SetVolume(1.5)
	c.SetMuted(true)
	if !last.Muted || last.Volume != 1 {
		t.Fatalf("state = %+v", last)
	}

	cancel()
	before := calls
	c.SetVolume(0.2)
	if calls != before {
		t.Fatal("cancelled subscriber still called")
	}
	if c.State().Volume != 0.2 {
		t.Fatalf("volume = %v", c.State().Volume)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
