package cache

import (
	"cmp"
	"slices"
	"sync"
)

// Pool maps keys to values for the lifetime of a plugin instance.
// Writes come from the host thread; the lock lets metric callbacks on
// exporter goroutines read sizes safely.
type Pool[K cmp.Ordered, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// NewPool creates an empty Pool.
func NewPool[K cmp.Ordered, V any]() *Pool[K, V] {
	return &Pool[K, V]{
		items: make(map[K]V),
	}
}

// Get retrieves a value by key
func (p *Pool[K, V]) Get(key K) (V, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.items[key]
	return v, ok
}

// Has reports whether key is present
func (p *Pool[K, V]) Has(key K) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.items[key]
	return ok
}

// Set stores a value by key
func (p *Pool[K, V]) Set(key K, v V) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[key] = v
}

// Take removes key and returns what was stored under it.
func (p *Pool[K, V]) Take(key K) (V, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.items[key]
	if ok {
		delete(p.items, key)
	}
	return v, ok
}

// Delete removes a key
func (p *Pool[K, V]) Delete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, key)
}

// Keys returns a sorted snapshot of the keys. Callers may mutate the pool
// while ranging over the result.
func (p *Pool[K, V]) Keys() []K {
	p.mu.RLock()
	keys := make([]K, 0, len(p.items))
	for k := range p.items {
		keys = append(keys, k)
	}
	p.mu.RUnlock()

	slices.Sort(keys)
	return keys
}

// Len returns the number of entries
func (p *Pool[K, V]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// Reset clears all entries
func (p *Pool[K, V]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = make(map[K]V)
}
