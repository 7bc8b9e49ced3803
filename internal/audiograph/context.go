// Package audiograph models a small pull-based audio processing graph: a
// Context owning a connection registry and a destination, node types that
// mirror the browser audio API, and a Builder that owns the
// source → analyser → effect → destination wiring for one media element.
package audiograph

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gopxl/beep/v2"
)

var (
	// ErrConfiguration reports that the audio graph cannot be built on this
	// runtime. It is cached by the Builder and never retried.
	ErrConfiguration = errors.New("audiograph: audio processing unavailable")
	ErrClosed        = errors.New("audiograph: context closed")
	ErrCycle         = errors.New("audiograph: connection would create a cycle")
	ErrForeignNode   = errors.New("audiograph: node belongs to another context")
	ErrDestination   = errors.New("audiograph: destination has no outputs")
)

// Node processes one block of stereo frames in place. The block holds the
// sum of all connected inputs (silence for sources) when Process is called.
type Node interface {
	Process(block [][2]float64)
}

type contextual interface {
	owner() *Context
}

// Context owns the nodes' connection registry and renders the graph into
// its destination.
type Context struct {
	sampleRate beep.SampleRate

	// renderMu serializes Render and Batch.
	renderMu sync.Mutex

	regMu   sync.Mutex
	outputs map[Node][]Node
	closed  bool
	version uint64

	dest *Destination

	// render scratch, guarded by renderMu
	orderVersion uint64
	order        []Node
	inputs       map[Node][]Node
	buffers      map[Node][][2]float64
}

// NewContext creates a context rendering at sampleRate.
func NewContext(sampleRate beep.SampleRate) (*Context, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrConfiguration, sampleRate)
	}

	c := &Context{
		sampleRate: sampleRate,
		outputs:    make(map[Node][]Node),
		buffers:    make(map[Node][][2]float64),
		// force the first Render to compute an order
		orderVersion: ^uint64(0),
	}
	c.dest = &Destination{ctx: c}

	return c, nil
}

// SampleRate returns the context's rendering rate.
func (c *Context) SampleRate() beep.SampleRate { return c.sampleRate }

// Destination returns the final node of the graph.
func (c *Context) Destination() *Destination { return c.dest }

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	return c.closed
}

// Close drops every connection. Closing twice is a no-op.
func (c *Context) Close() error {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	clear(c.outputs)
	c.version++

	return nil
}

// Connect adds the edge from → to. Connecting an existing edge again is a
// no-op.
func (c *Context) Connect(from, to Node) error {
	if err := c.checkOwner(from); err != nil {
		return err
	}
	if err := c.checkOwner(to); err != nil {
		return err
	}

	if from == Node(c.dest) {
		return ErrDestination
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if slices.Contains(c.outputs[from], to) {
		return nil
	}

	if from == to || c.reachableLocked(to, from) {
		return ErrCycle
	}

	c.outputs[from] = append(c.outputs[from], to)
	c.version++

	return nil
}

// Disconnect removes every outgoing edge of from and reports whether any
// existed.
func (c *Context) Disconnect(from Node) bool {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if len(c.outputs[from]) == 0 {
		return false
	}

	delete(c.outputs, from)
	c.version++

	return true
}

// DisconnectFrom removes the edge from → to and reports whether it existed.
func (c *Context) DisconnectFrom(from, to Node) bool {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	outs := c.outputs[from]

	i := slices.Index(outs, to)
	if i < 0 {
		return false
	}

	outs = slices.Delete(outs, i, i+1)
	if len(outs) == 0 {
		delete(c.outputs, from)
	} else {
		c.outputs[from] = outs
	}
	c.version++

	return true
}

// Connected reports whether the edge from → to exists.
func (c *Context) Connected(from, to Node) bool {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	return slices.Contains(c.outputs[from], to)
}

// Outputs returns a copy of from's downstream nodes in connection order.
func (c *Context) Outputs(from Node) []Node {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	return slices.Clone(c.outputs[from])
}

// Paths counts the distinct signal paths from → to.
func (c *Context) Paths(from, to Node) int {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	memo := make(map[Node]int)

	var count func(n Node) int
	count = func(n Node) int {
		if n == to {
			return 1
		}
		if v, ok := memo[n]; ok {
			return v
		}

		total := 0
		for _, next := range c.outputs[n] {
			total += count(next)
		}
		memo[n] = total

		return total
	}

	return count(from)
}

// Batch runs fn while no block is rendered, so a multi-step rewiring is
// never observed half done.
func (c *Context) Batch(fn func()) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	fn()
}

func (c *Context) checkOwner(n Node) error {
	if n == nil {
		return errors.New("audiograph: nil node")
	}

	if cn, ok := n.(contextual); ok && cn.owner() != c {
		return ErrForeignNode
	}

	return nil
}

// reachableLocked reports whether target is reachable from start.
func (c *Context) reachableLocked(start, target Node) bool {
	seen := map[Node]bool{}
	stack := []Node{start}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == target {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, c.outputs[n]...)
	}

	return false
}
