package audiograph

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cwbudde/algo-player/dsp/analyser"
	"github.com/gopxl/beep/v2"
)

// DefaultSampleRate is used when the Builder is not given a context factory.
const DefaultSampleRate = beep.SampleRate(48000)

// EffectChain is the optional stage between the analyser and the
// destination. Input defaults to Output for single-node chains. Cleanup
// runs when the chain is replaced or the graph is torn down.
type EffectChain struct {
	Input   Node
	Output  Node
	Cleanup func()
}

// EffectBuilder creates an effect chain on ctx. Returning a nil chain (or a
// chain without Output) selects a direct analyser → destination path.
type EffectBuilder func(ctx *Context, an *AnalyserNode) (*EffectChain, error)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithContextFactory replaces the function that creates the audio context.
func WithContextFactory(fn func() (*Context, error)) BuilderOption {
	return func(b *Builder) { b.newContext = fn }
}

// WithAnalyserOptions configures the analyser created for each context.
func WithAnalyserOptions(opts ...analyser.Option) BuilderOption {
	return func(b *Builder) { b.analyserOpts = opts }
}

// WithLogger sets the logger for configuration errors and graph events.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// Builder owns the graph nodes for one player: the context, the analyser,
// the media element source and the effect chain. It is the only component
// that connects or disconnects nodes.
type Builder struct {
	mu sync.Mutex

	newContext   func() (*Context, error)
	analyserOpts []analyser.Option
	logger       *slog.Logger

	ctx      *Context
	analyser *AnalyserNode
	source   *MediaElementSource
	effect   EffectBuilder
	chain    *EffectChain

	configErr error
}

// NewBuilder returns a Builder. No context exists until EnsureGraph.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		newContext: func() (*Context, error) { return NewContext(DefaultSampleRate) },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// EnsureGraph makes sure a context, an analyser and a source bound to
// element exist and are wired. It is idempotent. A source left over from a
// closed context is discarded first. A configuration failure is reported
// once and returned unchanged by every later call.
func (b *Builder) EnsureGraph(element beep.Streamer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.configErr != nil {
		return b.configErr
	}

	if b.ctx == nil || b.ctx.Closed() {
		if err := b.initContextLocked(); err != nil {
			return err
		}
	}

	if b.source != nil && b.source.Context() == b.ctx && b.source.Element() == element {
		return nil
	}

	ctx := b.ctx
	var err error

	ctx.Batch(func() {
		if b.source != nil {
			if b.source.Context() != ctx {
				b.logger.Debug("audiograph: discarding source from stale context")
			}
			b.source.Context().Disconnect(b.source)
			b.source = nil
		}

		src := ctx.NewMediaElementSource(element)
		if err = ctx.Connect(src, b.analyser); err != nil {
			return
		}
		b.source = src
	})

	if err != nil {
		return fmt.Errorf("audiograph: connect source: %w", err)
	}

	return nil
}

func (b *Builder) initContextLocked() error {
	ctx, err := b.newContext()
	if err == nil {
		var an *AnalyserNode
		an, err = ctx.NewAnalyser(b.analyserOpts...)
		if err == nil {
			if b.chain != nil && b.chain.Cleanup != nil {
				b.chain.Cleanup()
			}

			b.ctx, b.analyser, b.chain = ctx, an, nil
			b.applyEffectLocked()

			return nil
		}
		_ = ctx.Close()
	}

	if !errors.Is(err, ErrConfiguration) {
		err = fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	b.configErr = err
	b.logger.Error("audio graph unavailable", "error", err)

	return err
}

// SetEffectChain replaces the stage after the analyser. The old chain is
// disconnected and cleaned up, then the new chain is built and connected,
// all before the next block renders. A builder error falls back to the
// direct path. Without a graph the builder is kept and applied when the
// graph is created.
func (b *Builder) SetEffectChain(fn EffectBuilder) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.effect = fn
	if b.ctx == nil || b.ctx.Closed() {
		return
	}

	b.applyEffectLocked()
}

func (b *Builder) applyEffectLocked() {
	ctx, an, dest := b.ctx, b.analyser, b.ctx.Destination()

	ctx.Batch(func() {
		ctx.Disconnect(an)
		b.releaseChainLocked()

		chain := b.buildChainLocked()
		if chain != nil {
			in := chain.Input
			if in == nil {
				in = chain.Output
			}

			errIn := ctx.Connect(an, in)
			errOut := ctx.Connect(chain.Output, dest)
			if errIn == nil && errOut == nil {
				b.chain = chain

				return
			}

			b.logger.Warn("audiograph: effect chain rejected, using direct path",
				"error", errors.Join(errIn, errOut))
			ctx.Disconnect(an)
			ctx.DisconnectFrom(chain.Output, dest)
			if chain.Cleanup != nil {
				chain.Cleanup()
			}
		}

		_ = ctx.Connect(an, dest)
	})
}

func (b *Builder) buildChainLocked() *EffectChain {
	if b.effect == nil {
		return nil
	}

	chain, err := b.effect(b.ctx, b.analyser)
	if err != nil {
		b.logger.Warn("audiograph: effect builder failed", "error", err)

		return nil
	}

	if chain == nil || chain.Output == nil {
		if chain != nil && chain.Cleanup != nil {
			chain.Cleanup()
		}

		return nil
	}

	return chain
}

// releaseChainLocked disconnects the current chain's output and runs its
// cleanup. Caller holds mu inside a Batch.
func (b *Builder) releaseChainLocked() {
	if b.chain == nil {
		return
	}

	b.ctx.DisconnectFrom(b.chain.Output, b.ctx.Destination())
	if b.chain.Cleanup != nil {
		b.chain.Cleanup()
	}
	b.chain = nil
}

// Teardown disconnects every node, runs the pending cleanup and closes the
// context. It is safe to call repeatedly and before any graph exists.
func (b *Builder) Teardown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return
	}

	ctx := b.ctx
	ctx.Batch(func() {
		if b.source != nil {
			ctx.Disconnect(b.source)
		}
		b.releaseChainLocked()
		ctx.Disconnect(b.analyser)
	})
	_ = ctx.Close()

	b.ctx, b.analyser, b.source, b.chain = nil, nil, nil, nil
}

// Context returns the live context or nil.
func (b *Builder) Context() *Context {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ctx
}

// Analyser returns the live analyser node or nil.
func (b *Builder) Analyser() *AnalyserNode {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.analyser
}

// Source returns the live media element source or nil.
func (b *Builder) Source() *MediaElementSource {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.source
}

// ConfigurationError returns the cached configuration failure, if any.
func (b *Builder) ConfigurationError() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.configErr
}
