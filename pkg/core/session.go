// pkg/core/session.go
package core

import "time"

// EndReason describes why a camera session ended.
type EndReason string

const (
	EndToggle     EndReason = "toggle"
	EndDeath      EndReason = "death"
	EndRoundStart EndReason = "round_start"
	EndDisconnect EndReason = "disconnect"
	// EndInvalid covers a player, pawn or camera entity that stopped being
	// valid, and a slot that now belongs to another connection.
	EndInvalid EndReason = "invalid"
	EndUnload  EndReason = "unload"
)

// SessionRecord is the journal entry written when a camera session ends.
type SessionRecord struct {
	Player    PlayerKey
	SteamID   uint64
	Mode      Mode
	Round     uint
	StartedAt time.Time
	EndedAt   time.Time
	Reason    EndReason
	Loadout   []LoadoutItem
}

// Duration returns how long the session lasted.
func (r SessionRecord) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
