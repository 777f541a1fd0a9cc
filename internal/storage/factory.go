// internal/storage/factory.go
package storage

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ThirdPersonSW2/extension/internal/config"
	"github.com/ThirdPersonSW2/extension/internal/database"
	"github.com/ThirdPersonSW2/extension/internal/influx"
	gormstorage "github.com/ThirdPersonSW2/extension/internal/storage/gorm"
	"github.com/ThirdPersonSW2/extension/internal/storage/memory"
)

// NewBackend creates a session journal backend based on configuration.
// The returned backend still needs Init.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.New(0), nil
	case "sqlite", "postgres":
		mgr := database.NewManager(log)
		if err := mgr.Connect(cfg); err != nil {
			return nil, err
		}
		if err := mgr.Setup(); err != nil {
			return nil, errors.Join(err, mgr.Close())
		}
		return gormstorage.New(gormstorage.Dependencies{
			DB:            mgr.DB,
			Logger:        log,
			FlushInterval: cfg.FlushInterval,
			OnClose:       mgr.Close,
		}), nil
	case "influx":
		return influx.NewManager(cfg.Influx, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
