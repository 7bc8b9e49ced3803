package audiograph

import (
	"github.com/gopxl/beep/v2"
)

// Destination is the graph's sink. It implements beep.Streamer so the
// rendered graph can be handed to the speaker directly.
type Destination struct {
	ctx *Context
}

var _ beep.Streamer = (*Destination)(nil)

func (d *Destination) owner() *Context { return d.ctx }

// Process is never called; the destination only collects its inputs.
func (d *Destination) Process([][2]float64) {}

// Stream renders one block of the graph. It reports false once the context
// is closed.
func (d *Destination) Stream(samples [][2]float64) (int, bool) {
	if !d.ctx.Render(samples) {
		return 0, false
	}

	return len(samples), true
}

func (d *Destination) Err() error { return nil }

// Render pulls one block through the graph into block. Every node runs once
// per block in topological order with its inputs summed, so a node reached
// by two paths is heard twice. It returns false (and silence) once the
// context is closed.
func (c *Context) Render(block [][2]float64) bool {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.regMu.Lock()
	if c.closed {
		c.regMu.Unlock()
		clear(block)

		return false
	}

	if c.orderVersion != c.version {
		c.compileLocked()
	}
	c.regMu.Unlock()

	n := len(block)
	for _, node := range c.order {
		buf := c.buffer(node, n)
		clear(buf)

		for _, in := range c.inputs[node] {
			src := c.buffers[in][:n]
			for i := range buf {
				buf[i][0] += src[i][0]
				buf[i][1] += src[i][1]
			}
		}

		if node != Node(c.dest) {
			node.Process(buf)
		}
	}

	if out, ok := c.buffers[c.dest]; ok {
		copy(block, out[:n])
	} else {
		clear(block)
	}

	return true
}

func (c *Context) buffer(node Node, n int) [][2]float64 {
	buf := c.buffers[node]
	if cap(buf) < n {
		buf = make([][2]float64, n)
		c.buffers[node] = buf
	}

	return buf[:n]
}

// compileLocked recomputes the processing order with Kahn's algorithm.
// Caller holds regMu.
func (c *Context) compileLocked() {
	indegree := map[Node]int{Node(c.dest): 0}
	inputs := make(map[Node][]Node, len(c.outputs))

	for from, outs := range c.outputs {
		if _, ok := indegree[from]; !ok {
			indegree[from] = 0
		}

		for _, to := range outs {
			indegree[to]++
			inputs[to] = append(inputs[to], from)
		}
	}

	queue := make([]Node, 0, len(indegree))
	for n, d := range indegree {
		if d == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]Node, 0, len(indegree))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		order = append(order, n)
		for _, to := range c.outputs[n] {
			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	buffers := make(map[Node][][2]float64, len(order))
	for _, n := range order {
		if buf, ok := c.buffers[n]; ok {
			buffers[n] = buf
		}
	}

	c.order = order
	c.inputs = inputs
	c.buffers = buffers
	c.orderVersion = c.version
}
