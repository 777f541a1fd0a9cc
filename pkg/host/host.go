// Package host describes the capabilities the game server's scripting host
// offers to the extension. Every call happens on the host's main thread.
package host

import (
	"errors"

	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
)

// ErrUnavailable is returned when a host subsystem is missing or not ready
// for the given player, e.g. a pawn without an item service.
var ErrUnavailable = errors.New("host subsystem unavailable")

// Pawn is the body a player currently controls.
type Pawn interface {
	Origin() geo.Vector
	ViewAngle() geo.QAngle
}

// Player is a connected client.
type Player interface {
	Slot() core.Slot
	Key() core.PlayerKey
	SteamID() uint64
	Name() string
	Valid() bool
	// Pawn returns the controlled body, or false when the player has none
	// or it is not valid.
	Pawn() (Pawn, bool)
	// Print sends a chat message to this player only.
	Print(msg string)
}

// Players resolves connected players.
type Players interface {
	PlayerBySlot(slot core.Slot) (Player, bool)
	AllPlayers() []Player
}

// Entity is a world object created by the extension.
type Entity interface {
	Valid() bool
	Origin() geo.Vector
	Teleport(pos geo.Vector, angle geo.QAngle) error
	Despawn() error
}

// Entities creates world objects and binds player views to them.
type Entities interface {
	// CreateEntity creates and spawns an entity by designer name.
	CreateEntity(designerName string) (Entity, error)
	SetViewEntity(p Player, e Entity) error
	// ClearViewEntity returns the player's view to its own pawn. It must be
	// safe to call when no override is set.
	ClearViewEntity(p Player) error
}

// Mask selects which collision layers a trace tests against.
type Mask uint32

const (
	MaskSolid Mask = 1 << iota
	MaskPlayer
)

// TraceFilter limits a trace. Ignore excludes that player's pawn.
type TraceFilter struct {
	Mask   Mask
	Ignore core.Slot
}

// Trace is the result of a collision query. Fraction is the share of the
// segment travelled before the first hit, 1 when nothing was hit.
type Trace struct {
	EndPos   geo.Vector
	Fraction float32
}

// DidHit reports whether the trace stopped before its end point.
func (t Trace) DidHit() bool {
	return t.Fraction < 1
}

// Tracer casts collision queries against the world.
type Tracer interface {
	TraceShape(start, end geo.Vector, filter TraceFilter) (Trace, error)
}

// Inventory manages a player's items.
type Inventory interface {
	// Weapons lists held item names, one entry per item instance.
	Weapons(p Player) ([]string, error)
	RemoveItems(p Player) error
	GiveItem(p Player, name string) error
	SetPreventPickup(p Player, prevent bool) error
}

// Permissions checks admin flags.
type Permissions interface {
	HasPermission(steamID uint64, flag string) bool
}

// Commands binds chat and console commands. Invocations arrive as
// core.CommandEvent under the registered name.
type Commands interface {
	RegisterCommand(name string) error
}

// Host bundles every capability the extension uses.
type Host interface {
	Players
	Entities
	Tracer
	Inventory
	Permissions
	Commands
}
