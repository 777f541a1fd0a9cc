package round

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContext_StartsInWarmup(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ctx := NewContext(start)

	n, at := ctx.Current()
	assert.Equal(t, uint(0), n)
	assert.Equal(t, start, at)
}

func TestContext_Advance(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ctx := NewContext(start)

	next := start.Add(2 * time.Minute)
	assert.Equal(t, uint(1), ctx.Advance(next))
	assert.Equal(t, uint(2), ctx.Advance(next.Add(time.Minute)))

	n, at := ctx.Current()
	assert.Equal(t, uint(2), n)
	assert.Equal(t, next.Add(time.Minute), at)
}

func TestContext_LogAttrs(t *testing.T) {
	ctx := NewContext(time.Now())
	ctx.Advance(time.Now())

	attrs := ctx.LogAttrs()
	if assert.Len(t, attrs, 1) {
		assert.Equal(t, "round", attrs[0].Key)
		assert.Equal(t, uint64(1), attrs[0].Value.Uint64())
	}
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext(time.Now())
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx.Advance(time.Now())
		}()
		go func() {
			defer wg.Done()
			ctx.Current()
			ctx.LogAttrs()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint(50), ctx.Number())
}
