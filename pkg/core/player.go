// pkg/core/player.go
package core

import (
	"fmt"
	"log/slog"

	"github.com/ThirdPersonSW2/extension/pkg/geo"
)

// Slot is the index of a connected player in the host's player table.
// Slots are reused when a player disconnects and another one joins.
type Slot int

// NoSlot marks an absent player, e.g. world damage without an attacker.
const NoSlot Slot = -1

// Valid reports whether s can refer to a player.
func (s Slot) Valid() bool {
	return s >= 0
}

// PlayerKey identifies one connection occupying a slot.
// Connection is assigned by the host and never reused while the process lives.
type PlayerKey struct {
	Slot       Slot
	Connection uint64
}

func (k PlayerKey) String() string {
	return fmt.Sprintf("%d#%d", k.Slot, k.Connection)
}

// LogValue logs the key in its String form.
func (k PlayerKey) LogValue() slog.Value {
	return slog.StringValue(k.String())
}

// Mode selects how the camera follows the player.
type Mode int

const (
	// Snapped moves the camera straight to the computed pose every tick.
	Snapped Mode = iota
	// Smoothed eases the camera toward the computed pose.
	Smoothed
)

func (m Mode) String() string {
	switch m {
	case Snapped:
		return "snapped"
	case Smoothed:
		return "smoothed"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) LogValue() slog.Value {
	return slog.StringValue(m.String())
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "snapped":
		return Snapped, nil
	case "smoothed":
		return Smoothed, nil
	default:
		return Snapped, fmt.Errorf("unknown camera mode %q", s)
	}
}

// Pose is a camera position with the angle it looks along.
type Pose struct {
	Position geo.Vector
	Angle    geo.QAngle
}

// LoadoutItem is one distinct weapon kind and how many of it a player held.
type LoadoutItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
