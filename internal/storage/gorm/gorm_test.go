package gormstorage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ThirdPersonSW2/extension/internal/database"
	"github.com/ThirdPersonSW2/extension/internal/model"
	"github.com/ThirdPersonSW2/extension/pkg/core"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func session(slot core.Slot, reason core.EndReason) core.SessionRecord {
	start := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	return core.SessionRecord{
		Player:    core.PlayerKey{Slot: slot, Connection: uint64(slot) + 100},
		SteamID:   76561198000000000 + uint64(slot),
		Mode:      core.Smoothed,
		Round:     3,
		StartedAt: start,
		EndedAt:   start.Add(90 * time.Second),
		Reason:    reason,
		Loadout:   []core.LoadoutItem{{Name: "weapon_ak47", Count: 1}, {Name: "weapon_flashbang", Count: 2}},
	}
}

func TestBackend_InitRequiresDB(t *testing.T) {
	assert.Error(t, New(Dependencies{}).Init())
}

func TestBackend_CloseWithoutInit(t *testing.T) {
	assert.NoError(t, New(Dependencies{}).Close())
}

func TestBackend_FlushAndReadBack(t *testing.T) {
	b := New(Dependencies{DB: setupDB(t), Logger: zerolog.Nop(), FlushInterval: time.Hour})

	require.NoError(t, b.RecordSession(session(1, core.EndToggle)))
	require.NoError(t, b.RecordSession(session(2, core.EndDeath)))
	assert.Equal(t, 2, b.Pending())

	require.NoError(t, b.Flush())
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, uint64(2), b.Written())

	got, err := b.Sessions()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, core.PlayerKey{Slot: 1, Connection: 101}, got[0].Player)
	assert.Equal(t, core.Smoothed, got[0].Mode)
	assert.Equal(t, uint(3), got[0].Round)
	assert.Equal(t, 90*time.Second, got[0].Duration())
	assert.Equal(t, core.EndDeath, got[1].Reason)
	assert.Equal(t, []core.LoadoutItem{{Name: "weapon_ak47", Count: 1}, {Name: "weapon_flashbang", Count: 2}}, got[1].Loadout)
}

func TestBackend_CloseFlushesPending(t *testing.T) {
	db := setupDB(t)
	closed := false
	b := New(Dependencies{
		DB:            db,
		Logger:        zerolog.Nop(),
		FlushInterval: time.Hour,
		OnClose:       func() error { closed = true; return nil },
	})
	require.NoError(t, b.Init())

	for i := 0; i < 5; i++ {
		require.NoError(t, b.RecordSession(session(core.Slot(i), core.EndRoundStart)))
	}
	require.NoError(t, b.Close())
	assert.True(t, closed)

	var count int64
	require.NoError(t, db.Model(&model.CameraSession{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestBackend_FullBatchWrittenEarly(t *testing.T) {
	db := setupDB(t)
	b := New(Dependencies{DB: db, Logger: zerolog.Nop(), FlushInterval: time.Hour, BatchSize: 3})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })

	for i := 0; i < 3; i++ {
		require.NoError(t, b.RecordSession(session(core.Slot(i), core.EndToggle)))
	}

	assert.Eventually(t, func() bool {
		return b.Written() == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBackend_TickerFlush(t *testing.T) {
	b := New(Dependencies{DB: setupDB(t), Logger: zerolog.Nop(), FlushInterval: 20 * time.Millisecond})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })

	require.NoError(t, b.RecordSession(session(4, core.EndDisconnect)))

	assert.Eventually(t, func() bool {
		return b.Written() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBackend_FailedBatchIsRequeued(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	// no migration: inserts fail until the table exists

	b := New(Dependencies{DB: db, Logger: zerolog.Nop()})
	require.NoError(t, b.RecordSession(session(1, core.EndToggle)))

	assert.Error(t, b.Flush())
	assert.Equal(t, 1, b.Pending())
	assert.Equal(t, uint64(1), b.failed.Load())

	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	require.NoError(t, b.Flush())
	assert.Equal(t, uint64(1), b.Written())
}
