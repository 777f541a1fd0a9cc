package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThirdPersonSW2/extension/internal/config"
	"github.com/ThirdPersonSW2/extension/internal/model"
)

func TestConnect_SqliteInMemory(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Connect(config.StorageConfig{Type: "sqlite"}))
	t.Cleanup(func() { m.Close() })

	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.CameraSession{}))
	assert.False(t, m.Fallback)
}

func TestOpenSqlite_InMemoryDatabasesAreIsolated(t *testing.T) {
	a, err := OpenSqlite("")
	require.NoError(t, err)
	b, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, a.AutoMigrate(model.DatabaseModels...))
	require.NoError(t, a.Create(&model.CameraSession{Mode: "snapped"}).Error)

	assert.False(t, b.Migrator().HasTable(&model.CameraSession{}))
}

func TestOpenSqlite_FileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	db, err := OpenSqlite(path)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	require.NoError(t, db.Create(&model.CameraSession{Mode: "smoothed", Reason: "toggle"}).Error)

	var count int64
	require.NoError(t, db.Model(&model.CameraSession{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.FileExists(t, path)
}

func TestConnect_PostgresUnreachableFallsBackToSqlite(t *testing.T) {
	m := NewManager(zerolog.Nop())
	err := m.Connect(config.StorageConfig{
		Type: "postgres",
		Postgres: config.PostgresConfig{
			Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	assert.True(t, m.Fallback)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestConnect_RejectsNonSQLType(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Connect(config.StorageConfig{Type: "memory"}))
}

func TestSetup_RequiresConnection(t *testing.T) {
	assert.Error(t, NewManager(zerolog.Nop()).Setup())
}
