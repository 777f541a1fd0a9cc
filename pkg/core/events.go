// pkg/core/events.go
package core

// Event names delivered by the host.
const (
	EventTick             = "tick"
	EventRoundStart       = "round_start"
	EventPlayerDeath      = "player_death"
	EventPlayerDisconnect = "player_disconnect"
	EventPlayerHurt       = "player_hurt"
)

// TickEvent is sent once per simulation frame.
type TickEvent struct {
	Frame uint64
}

// RoundStartEvent is sent when a new round begins.
type RoundStartEvent struct{}

// DeathEvent carries the slot of the player who died.
type DeathEvent struct {
	Victim   Slot
	Attacker Slot
}

// DisconnectEvent is sent after a player leaves, before the slot is reused.
type DisconnectEvent struct {
	Player PlayerKey
}

// HurtEvent is delivered before damage applies. Handlers receive a pointer
// and may change the damage amounts; the host applies whatever remains.
type HurtEvent struct {
	Victim       Slot
	Attacker     Slot
	DamageHealth int
	DamageArmor  int
}

// CommandEvent is a chat or console command issued by a player.
// Caller is NoSlot for the server console.
type CommandEvent struct {
	Caller  Slot
	Command string
	Args    []string
}
