//go:build js && wasm

// Command wasm exposes a player session to the page as the global
// AlgoPlayer object. Audio is pulled by the page's audio worklet through
// render; visualizer frames are read back as RGBA pixels.
package main

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"syscall/js"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/cwbudde/algo-player/internal/app"
	"github.com/cwbudde/algo-player/internal/audiograph"
	"github.com/cwbudde/algo-player/internal/equalizer"
	"github.com/cwbudde/algo-player/internal/hotkeys"
	"github.com/cwbudde/algo-player/internal/playback"
	"github.com/cwbudde/algo-player/internal/settings"
	"github.com/cwbudde/algo-player/internal/visualizer"
)

var (
	session *app.Session
	keys    hotkeys.Table
	funcs   []js.Func

	frameMu sync.Mutex
	frame   []byte
	block   [][2]float64
)

func main() {
	api := js.Global().Get("Object").New()

	api.Set("init", export(func(args []js.Value) any {
		sr, w, h := 48000, 512, 256
		if len(args) > 0 {
			sr = args[0].Int()
		}
		if len(args) > 2 {
			w, h = args[1].Int(), args[2].Int()
		}

		if session != nil {
			session.Close()
		}

		canvas := visualizer.NewCanvas(w, h, func(im image.Image) {
			rgba, ok := im.(*image.RGBA)
			if !ok {
				return
			}
			frameMu.Lock()
			frame = append(frame[:0], rgba.Pix...)
			frameMu.Unlock()
		})

		opts := []app.Option{
			app.WithLogger(slog.Default()),
			app.WithSampleRate(beep.SampleRate(sr)),
			app.WithCanvas(canvas),
		}
		if len(args) > 3 && args[3].Type() == js.TypeString {
			opts = append(opts, app.WithStationsAPI(args[3].String()))
		}

		s, err := app.New(opts...)
		if err != nil {
			return err.Error()
		}
		session, keys = s, s.Hotkeys()

		return js.Null()
	}))

	api.Set("addFile", export(func(args []js.Value) any {
		if session == nil || len(args) < 2 {
			return js.Null()
		}

		data := make([]byte, args[1].Get("length").Int())
		js.CopyBytesToGo(data, args[1])

		f := playback.File{Name: args[0].String(), Data: data, LastModified: time.Now()}
		if len(args) > 2 && args[2].Type() == js.TypeNumber {
			f.LastModified = time.UnixMilli(int64(args[2].Float()))
		}
		if len(args) > 3 && args[3].Type() == js.TypeString {
			f.MIME = args[3].String()
		}
		session.AddFiles(f)

		return session.Library().Len()
	}))

	// Loads wait for the decoder, so they must not run on the JS event loop.
	api.Set("playTrack", async(func(ctx context.Context, args []js.Value) error {
		return session.PlayTrack(ctx, args[0].Int())
	}, 1))
	api.Set("playStation", async(func(ctx context.Context, args []js.Value) error {
		if err := session.RefreshStations(ctx, false); err != nil {
			return err
		}

		return session.PlayStation(ctx, args[0].Int())
	}, 1))
	api.Set("togglePlay", async(func(ctx context.Context, _ []js.Value) error { return session.TogglePlay(ctx) }, 0))
	api.Set("next", async(func(ctx context.Context, _ []js.Value) error { return session.Next(ctx) }, 0))
	api.Set("prev", async(func(ctx context.Context, _ []js.Value) error { return session.Prev(ctx) }, 0))

	api.Set("seek", export(func(args []js.Value) any {
		if session != nil && len(args) > 0 {
			session.Seek(args[0].Float())
		}

		return js.Null()
	}))

	api.Set("key", export(func(args []js.Value) any {
		if session == nil || len(args) < 1 {
			return false
		}

		ev := hotkeys.Event{Key: args[0].String()}
		if len(args) > 1 {
			mods := args[1]
			ev.Ctrl, ev.Shift, ev.Alt = mods.Get("ctrl").Truthy(), mods.Get("shift").Truthy(), mods.Get("alt").Truthy()
		}

		b, ok := keys.Lookup(ev)
		if !ok {
			return false
		}
		go b.Action()

		return b.PreventDefault
	}))

	api.Set("setPreset", export(func(args []js.Value) any {
		if session == nil || len(args) < 1 {
			return false
		}

		return session.Settings().ApplyPreset(args[0].String())
	}))

	api.Set("setEQ", export(func(args []js.Value) any {
		if session == nil || len(args) < 1 {
			return js.Null()
		}

		p := args[0]
		band := func(name string) equalizer.Band {
			b := p.Get(name)
			return equalizer.Band{Frequency: b.Get("frequency").Float(), Gain: b.Get("gain").Float()}
		}
		session.Settings().Update(func(s *settings.Snapshot) {
			s.Filter = equalizer.Settings{Bass: band("bass"), Mid: band("mid"), Treble: band("treble")}.Normalized()
		})

		return js.Null()
	}))

	api.Set("setVisualization", export(func(args []js.Value) any {
		if session == nil || len(args) < 1 {
			return js.Null()
		}

		session.Settings().Update(func(s *settings.Snapshot) { s.Visualization = args[0].String() })

		return js.Null()
	}))

	api.Set("setVisible", export(func(args []js.Value) any {
		if session != nil && len(args) > 0 {
			session.Visualizer().SetVisible(args[0].Bool())
		}

		return js.Null()
	}))

	api.Set("setDark", export(func(args []js.Value) any {
		if session != nil && len(args) > 0 {
			session.Visualizer().SetDark(args[0].Bool())
		}

		return js.Null()
	}))

	api.Set("render", export(func(args []js.Value) any {
		ctx := graphContext()
		if ctx == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}

		n := args[0].Int()
		if cap(block) < n {
			block = make([][2]float64, n)
		}
		buf := block[:n]
		ctx.Render(buf)

		arr := js.Global().Get("Float32Array").New(2 * n)
		for i, f := range buf {
			arr.SetIndex(2*i, f[0])
			arr.SetIndex(2*i+1, f[1])
		}

		return arr
	}))

	api.Set("frame", export(func(args []js.Value) any {
		frameMu.Lock()
		defer frameMu.Unlock()

		arr := js.Global().Get("Uint8ClampedArray").New(len(frame))
		js.CopyBytesToJS(arr, frame)

		return arr
	}))

	api.Set("responseCurve", export(func(args []js.Value) any {
		if session == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}

		input := args[0]
		freqs := make([]float64, input.Length())
		for i := range freqs {
			freqs[i] = input.Index(i).Float()
		}

		resp := session.Equalizer().Settings().ResponseDB(freqs, float64(audioRate()))
		arr := js.Global().Get("Float32Array").New(len(resp))
		for i := range resp {
			arr.SetIndex(i, resp[i])
		}

		return arr
	}))

	api.Set("state", export(func(args []js.Value) any {
		if session == nil {
			return js.Null()
		}

		st := session.Player().State()
		meta := session.MediaSession().Metadata()
		snap := session.Settings().Snapshot()

		return map[string]any{
			"status":        st.Status.String(),
			"currentTime":   st.CurrentTime,
			"duration":      st.Duration,
			"playing":       st.IsPlaying,
			"error":         st.Error,
			"title":         meta.Title,
			"artist":        meta.Artist,
			"preset":        snap.EqualizerPreset,
			"visualization": snap.Visualization,
			"tracks":        session.Library().Len(),
			"activeTrack":   session.Library().ActiveIndex(),
		}
	}))

	js.Global().Set("AlgoPlayer", api)
	select {}
}

func graphContext() *audiograph.Context {
	if session == nil {
		return nil
	}

	return session.Graph().Context()
}

func audioRate() beep.SampleRate {
	if ctx := graphContext(); ctx != nil {
		return ctx.SampleRate()
	}

	return audiograph.DefaultSampleRate
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)

	return f
}

// async runs fn on its own goroutine and returns a Promise settled with
// its result.
func async(fn func(context.Context, []js.Value) error, minArgs int) js.Func {
	return export(func(args []js.Value) any {
		executor := js.FuncOf(func(_ js.Value, p []js.Value) any {
			resolve, reject := p[0], p[1]
			go func() {
				if session == nil || len(args) < minArgs {
					reject.Invoke("player not initialised or arguments missing")

					return
				}
				if err := fn(context.Background(), args); err != nil {
					reject.Invoke(err.Error())

					return
				}
				resolve.Invoke(js.Null())
			}()

			return nil
		})
		defer executor.Release()

		return js.Global().Get("Promise").New(executor)
	})
}
