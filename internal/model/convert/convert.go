// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/ThirdPersonSW2/extension/internal/model"
	"github.com/ThirdPersonSW2/extension/pkg/core"
)

// loadoutToJSON converts a loadout to datatypes.JSON for DB storage.
func loadoutToJSON(items []core.LoadoutItem) datatypes.JSON {
	if len(items) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(items)
	return datatypes.JSON(data)
}

// SessionToGorm converts a core.SessionRecord to a GORM model.CameraSession.
func SessionToGorm(r core.SessionRecord) model.CameraSession {
	return model.CameraSession{
		Slot:       int(r.Player.Slot),
		Connection: r.Player.Connection,
		SteamID:    r.SteamID,
		Mode:       r.Mode.String(),
		Round:      r.Round,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		DurationMs: r.Duration().Milliseconds(),
		Reason:     string(r.Reason),
		Loadout:    loadoutToJSON(r.Loadout),
	}
}

// SessionToCore converts a GORM model.CameraSession back to a core.SessionRecord.
func SessionToCore(m model.CameraSession) (core.SessionRecord, error) {
	mode, err := core.ParseMode(m.Mode)
	if err != nil {
		return core.SessionRecord{}, fmt.Errorf("session %d: %w", m.ID, err)
	}

	var items []core.LoadoutItem
	if len(m.Loadout) > 0 {
		if err := json.Unmarshal(m.Loadout, &items); err != nil {
			return core.SessionRecord{}, fmt.Errorf("session %d loadout: %w", m.ID, err)
		}
	}
	if len(items) == 0 {
		items = nil
	}

	return core.SessionRecord{
		Player:    core.PlayerKey{Slot: core.Slot(m.Slot), Connection: m.Connection},
		SteamID:   m.SteamID,
		Mode:      mode,
		Round:     m.Round,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Reason:    core.EndReason(m.Reason),
		Loadout:   items,
	}, nil
}
