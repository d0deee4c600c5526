// Package coretest provides an in-memory SignalConnection for tests.
package coretest

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Mesh/internal/core"
)

// Conn records every frame it accepts.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed int
	full   bool
}

func NewConn() *Conn { return &Conn{} }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
}

// SetFull makes TrySend report backpressure.
func (c *Conn) SetFull(full bool) {
	c.mu.Lock()
	c.full = full
	c.mu.Unlock()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed > 0
}

// Drain returns the recorded frames decoded and forgets them.
func (c *Conn) Drain(t testing.TB) []core.Envelope {
	t.Helper()
	c.mu.Lock()
	frames := c.frames
	c.frames = nil
	c.mu.Unlock()

	out := make([]core.Envelope, 0, len(frames))
	for _, f := range frames {
		var env core.Envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("undecodable frame %s: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

// OfType keeps the envelopes of type typ.
func OfType(envs []core.Envelope, typ core.MessageType) []core.Envelope {
	var out []core.Envelope
	for _, e := range envs {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
