package round

import (
	"log/slog"
	"sync"
	"time"
)

// Context holds the current round number and when it started.
// Round 0 is the warmup before the first round_start event.
type Context struct {
	mu        sync.RWMutex
	number    uint
	startedAt time.Time
}

// NewContext creates a Context in warmup, started at now.
func NewContext(now time.Time) *Context {
	return &Context{startedAt: now}
}

// Advance starts the next round and returns its number.
func (c *Context) Advance(now time.Time) uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.number++
	c.startedAt = now
	return c.number
}

// Current returns the round number and its start time.
func (c *Context) Current() (uint, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.number, c.startedAt
}

// Number returns the current round number.
func (c *Context) Number() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.number
}

// LogAttrs feeds logging.ContextHandler so every record carries the round.
func (c *Context) LogAttrs() []slog.Attr {
	return []slog.Attr{slog.Uint64("round", uint64(c.Number()))}
}
