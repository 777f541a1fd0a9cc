// internal/storage/memory/memory.go
package memory

import (
	"slices"
	"sync"

	"github.com/ThirdPersonSW2/extension/pkg/core"
)

// Backend keeps finished sessions in memory. Oldest records are dropped
// once Limit is reached; a zero Limit keeps everything.
type Backend struct {
	mu       sync.RWMutex
	limit    int
	sessions []core.SessionRecord
	dropped  int
}

// New creates a new memory backend
func New(limit int) *Backend {
	return &Backend{limit: limit}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// RecordSession appends rec.
func (b *Backend) RecordSession(rec core.SessionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec.Loadout = slices.Clone(rec.Loadout)
	b.sessions = append(b.sessions, rec)
	if b.limit > 0 && len(b.sessions) > b.limit {
		n := len(b.sessions) - b.limit
		b.sessions = slices.Delete(b.sessions, 0, n)
		b.dropped += n
	}
	return nil
}

// Sessions returns a copy of the recorded sessions, oldest first.
func (b *Backend) Sessions() ([]core.SessionRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.sessions), nil
}

// ByPlayer returns the sessions of one connection, oldest first.
func (b *Backend) ByPlayer(key core.PlayerKey) []core.SessionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []core.SessionRecord
	for _, s := range b.sessions {
		if s.Player == key {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of stored sessions.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// Dropped returns how many sessions were evicted by the limit.
func (b *Backend) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
