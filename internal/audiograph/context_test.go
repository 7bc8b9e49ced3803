package audiograph

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-player/internal/testutil"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()

	ctx, err := NewContext(48000)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	return ctx
}

func TestNewContextRejectsInvalidRate(t *testing.T) {
	t.Parallel()

	if _, err := NewContext(0); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestConnectRegistry(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t)
	a, b := ctx.NewGain(), ctx.NewGain()

	if err := ctx.Connect(a, b); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := ctx.Connect(a, b); err != nil {
		t.Fatalf("duplicate Connect: %v", err)
	}
	if got := len(ctx.Outputs(a)); got != 1 {
		t.Fatalf("outputs after duplicate connect = %d, want 1", got)
	}

	if err := ctx.Connect(b, a); !errors.Is(err, ErrCycle) {
		t.Fatalf("cycle: err = %v, want ErrCycle", err)
	}
	if err := ctx.Connect(a, a); !errors.Is(err, ErrCycle) {
		t.Fatalf("self loop: err = %v, want ErrCycle", err)
	}
	if err := ctx.Connect(ctx.Destination(), a); !errors.Is(err, ErrDestination) {
		t.Fatalf("destination output: err = %v, want ErrDestination", err)
	}

	other := newTestContext(t)
	if err := ctx.Connect(a, other.NewGain()); !errors.Is(err, ErrForeignNode) {
		t.Fatalf("foreign node: err = %v, want ErrForeignNode", err)
	}

	if !ctx.DisconnectFrom(a, b) {
		t.Fatal("DisconnectFrom live edge returned false")
	}
	if ctx.DisconnectFrom(a, b) {
		t.Fatal("DisconnectFrom twice returned true")
	}
	if ctx.Disconnect(a) {
		t.Fatal("Disconnect without edges returned true")
	}
}

func TestPathsCountsDiamond(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t)
	src, l, r := ctx.NewGain(), ctx.NewGain(), ctx.NewGain()
	dest := ctx.Destination()

	for _, e := range [][2]Node{{src, l}, {src, r}, {l, dest}, {r, dest}} {
		if err := ctx.Connect(e[0], e[1]); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}

	if got := ctx.Paths(src, dest); got != 2 {
		t.Fatalf("Paths = %d, want 2", got)
	}

	ctx.DisconnectFrom(src, r)
	if got := ctx.Paths(src, dest); got != 1 {
		t.Fatalf("Paths after disconnect = %d, want 1", got)
	}
}

func TestRenderSumsDuplicatePaths(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t)
	frames := testutil.StereoFrames(testutil.DC(0.25, 64))
	src := ctx.NewMediaElementSource(testutil.NewFrameStreamer(frames))
	g := ctx.NewGain()
	dest := ctx.Destination()

	if err := ctx.Connect(src, g); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Connect(g, dest); err != nil {
		t.Fatal(err)
	}

	block := make([][2]float64, 16)
	if !ctx.Render(block) {
		t.Fatal("Render on open context returned false")
	}
	if block[0][0] != 0.25 {
		t.Fatalf("single path sample = %v, want 0.25", block[0][0])
	}

	if err := ctx.Connect(src, dest); err != nil {
		t.Fatal(err)
	}
	ctx.Render(block)
	if block[0][0] != 0.5 {
		t.Fatalf("duplicate path sample = %v, want 0.5", block[0][0])
	}
}

func TestRenderSourceEndsWithSilence(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t)
	src := ctx.NewMediaElementSource(testutil.NewFrameStreamer(testutil.StereoFrames(testutil.Ones(10))))
	if err := ctx.Connect(src, ctx.Destination()); err != nil {
		t.Fatal(err)
	}

	block := make([][2]float64, 16)
	n, ok := ctx.Destination().Stream(block)
	if !ok || n != 16 {
		t.Fatalf("Stream = %d,%v", n, ok)
	}
	if block[9][1] != 1 || block[10][1] != 0 {
		t.Fatalf("tail = %v,%v, want 1,0", block[9][1], block[10][1])
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t)
	g := ctx.NewGain()
	_ = ctx.Connect(g, ctx.Destination())

	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := ctx.Connect(g, ctx.Destination()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Connect after close: err = %v, want ErrClosed", err)
	}

	block := [][2]float64{{1, 1}}
	if n, ok := ctx.Destination().Stream(block); ok || n != 0 || block[0][0] != 0 {
		t.Fatalf("Stream after close = %d,%v,%v", n, ok, block[0])
	}
}

func TestBiquadFilterNode(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t)

	flat := ctx.NewBiquadFilter(FilterParams{Type: Peaking, Frequency: 1000, Q: 0.7})
	if !flat.Coefficients().IsIdentity() {
		t.Fatalf("zero-gain peak coefficients = %+v, want identity", flat.Coefficients())
	}

	in := testutil.StereoFrames(testutil.DeterministicNoise(3, 0.5, 256))
	block := append([][2]float64(nil), in...)
	flat.Process(block)
	testutil.RequireSliceNearlyEqual(t, testutil.Left(block), testutil.Left(in), 0)

	f := ctx.NewBiquadFilter(FilterParams{Type: LowShelf, Frequency: 1, Gain: 6})
	if got := f.Params().Frequency; got != minFilterFrequency {
		t.Fatalf("clamped low frequency = %v", got)
	}

	f.SetFrequency(1e6)
	if got := f.Params().Frequency; got != 0.49*48000 {
		t.Fatalf("clamped high frequency = %v", got)
	}

	f.SetFrequency(200)
	before := f.Coefficients()
	f.SetGain(6)
	if f.Coefficients() != before {
		t.Fatal("re-applying the same gain changed coefficients")
	}

	if db := f.ResponseDB(20); db < 5.5 || db > 6.1 {
		t.Fatalf("low shelf response at 20 Hz = %.2f dB", db)
	}
}

func TestAnalyserNodePassesThrough(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t)
	an, err := ctx.NewAnalyser()
	if err != nil {
		t.Fatalf("NewAnalyser: %v", err)
	}

	block := [][2]float64{{1, 0}, {0.5, 0.5}}
	an.Process(block)
	if block[0] != [2]float64{1, 0} || block[1] != [2]float64{0.5, 0.5} {
		t.Fatalf("analyser altered signal: %v", block)
	}

	td := make([]float64, an.FFTSize())
	an.FloatTimeDomainData(td)
	if td[len(td)-2] != 0.5 || td[len(td)-1] != 0.5 {
		t.Fatalf("downmix tail = %v", td[len(td)-2:])
	}
}
