package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThirdPersonSW2/extension/pkg/core"
)

func record(slot core.Slot, conn uint64, reason core.EndReason) core.SessionRecord {
	start := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	return core.SessionRecord{
		Player:    core.PlayerKey{Slot: slot, Connection: conn},
		Mode:      core.Snapped,
		StartedAt: start,
		EndedAt:   start.Add(time.Minute),
		Reason:    reason,
	}
}

func TestBackend_RecordAndList(t *testing.T) {
	b := New(0)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordSession(record(1, 1, core.EndToggle)))
	require.NoError(t, b.RecordSession(record(2, 2, core.EndDeath)))

	sessions, err := b.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, core.EndToggle, sessions[0].Reason)
	assert.Equal(t, core.EndDeath, sessions[1].Reason)
}

func TestBackend_SessionsIsACopy(t *testing.T) {
	b := New(0)
	_ = b.RecordSession(record(1, 1, core.EndToggle))

	sessions, _ := b.Sessions()
	sessions[0].Reason = core.EndUnload

	again, _ := b.Sessions()
	assert.Equal(t, core.EndToggle, again[0].Reason)
}

func TestBackend_CopiesLoadout(t *testing.T) {
	b := New(0)
	rec := record(1, 1, core.EndToggle)
	rec.Loadout = []core.LoadoutItem{{Name: "weapon_awp", Count: 1}}
	_ = b.RecordSession(rec)

	rec.Loadout[0].Name = "weapon_knife"

	sessions, _ := b.Sessions()
	assert.Equal(t, "weapon_awp", sessions[0].Loadout[0].Name)
}

func TestBackend_Limit(t *testing.T) {
	b := New(2)
	for i := 0; i < 5; i++ {
		_ = b.RecordSession(record(core.Slot(i), uint64(i), core.EndToggle))
	}

	sessions, _ := b.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, core.Slot(3), sessions[0].Player.Slot)
	assert.Equal(t, core.Slot(4), sessions[1].Player.Slot)
	assert.Equal(t, 3, b.Dropped())
}

func TestBackend_ByPlayer(t *testing.T) {
	b := New(0)
	_ = b.RecordSession(record(1, 1, core.EndToggle))
	_ = b.RecordSession(record(1, 2, core.EndToggle)) // slot reused
	_ = b.RecordSession(record(1, 1, core.EndDeath))

	got := b.ByPlayer(core.PlayerKey{Slot: 1, Connection: 1})
	require.Len(t, got, 2)
	assert.Equal(t, core.EndDeath, got[1].Reason)
}

func TestBackend_Concurrent(t *testing.T) {
	b := New(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = b.RecordSession(record(core.Slot(i%10), uint64(i), core.EndToggle))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = b.Sessions()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, b.Len())
}
