// Package render draws culled visible sets through swappable backends: a
// batched GPU-style backend and an immediate-mode software rasterizer the
// pipeline falls back to when the primary is unavailable or lost.
package render

import (
	"log/slog"
	"sync"
)

// State is the backend lifecycle state. The legal cycle is
// Active → Lost → Restored → Active; draws while Lost are silent no-ops.
type State int

const (
	StateActive State = iota
	StateLost
	StateRestored
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateLost:
		return "lost"
	case StateRestored:
		return "restored"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

// Context is the explicitly owned render-context handle. One context belongs
// to one pipeline; there is no ambient global render state.
type Context struct {
	mu    sync.Mutex
	state State
	log   *slog.Logger
	ready bool
}

// NewContext creates an uninitialized context.
func NewContext(log *slog.Logger) *Context {
	if log == nil {
		log = slog.Default()
	}
	return &Context{log: log}
}

// Init marks the context usable. Idempotent.
func (c *Context) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
	c.state = StateActive
	return nil
}

// Dispose releases the context. Further draws are no-ops.
func (c *Context) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	c.state = StateDisposed
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisposed {
		return
	}
	c.state = s
}
