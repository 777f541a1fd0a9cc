package sandbox

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jakecoffman/cp"

	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

// Starting values for a freshly spawned pawn.
const (
	SpawnHealth = 100
	SpawnArmor  = 100
)

// Pawn is a live body in the world.
type Pawn struct {
	body  *cp.Body
	shape *cp.Shape
	z     float32
	angle geo.QAngle

	Health int
	Armor  int
}

func (p *Pawn) Origin() geo.Vector {
	pos := p.body.Position()
	return geo.Vector{float32(pos.X), float32(pos.Y), p.z}
}

func (p *Pawn) ViewAngle() geo.QAngle { return p.angle }

// Player is a connected client.
type Player struct {
	key       core.PlayerKey
	steamID   uint64
	name      string
	connected bool
	pawn      *Pawn

	items         []string
	preventPickup bool
	messages      []string
}

func (p *Player) Slot() core.Slot     { return p.key.Slot }
func (p *Player) Key() core.PlayerKey { return p.key }
func (p *Player) SteamID() uint64     { return p.steamID }
func (p *Player) Name() string        { return p.name }
func (p *Player) Valid() bool         { return p.connected }

func (p *Player) Pawn() (host.Pawn, bool) {
	if p.pawn == nil {
		return nil, false
	}
	return p.pawn, true
}

func (p *Player) Print(msg string) {
	p.messages = append(p.messages, msg)
}

// Body returns the live pawn, or nil when dead.
func (p *Player) Body() *Pawn {
	return p.pawn
}

// Messages returns everything printed to the player.
func (p *Player) Messages() []string {
	return slices.Clone(p.messages)
}

// LastMessage returns the most recent chat message or "".
func (p *Player) LastMessage() string {
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1]
}

// PreventPickup reports whether the player may not pick up items.
func (p *Player) PreventPickup() bool {
	return p.preventPickup
}

// Connect seats a new client in the lowest free slot and spawns its pawn.
func (w *World) Connect(name string, steamID uint64, pos geo.Vector, yaw float32) *Player {
	slot := core.Slot(0)
	for {
		if _, taken := w.players[slot]; !taken {
			break
		}
		slot++
	}

	w.nextConn++
	p := &Player{
		key:       core.PlayerKey{Slot: slot, Connection: w.nextConn},
		steamID:   steamID,
		name:      name,
		connected: true,
	}
	w.players[slot] = p
	w.spawn(p, pos, yaw)

	w.log.Debug("player connected", "slot", slot, "connection", p.key.Connection, "name", name)
	return p
}

// Disconnect removes the client in slot and raises player_disconnect.
func (w *World) Disconnect(slot core.Slot) error {
	p, ok := w.players[slot]
	if !ok {
		return fmt.Errorf("no player in slot %d", slot)
	}
	w.despawnPawn(p)
	p.connected = false
	delete(w.players, slot)

	_, err := w.emit(core.EventPlayerDisconnect, core.DisconnectEvent{Player: p.key})
	return err
}

// Respawn gives a dead or living player a fresh pawn at pos.
func (w *World) Respawn(slot core.Slot, pos geo.Vector, yaw float32) error {
	p, ok := w.players[slot]
	if !ok {
		return fmt.Errorf("no player in slot %d", slot)
	}
	w.despawnPawn(p)
	w.spawn(p, pos, yaw)
	return nil
}

// Move teleports slot's pawn and turns it to yaw.
func (w *World) Move(slot core.Slot, pos geo.Vector, yaw float32) error {
	p, ok := w.players[slot]
	if !ok || p.pawn == nil {
		return fmt.Errorf("slot %d has no pawn", slot)
	}
	p.pawn.body.SetPosition(toCP(pos))
	p.pawn.z = pos[2]
	p.pawn.angle.Yaw = yaw
	// the tree caches the old bounds until the shape is inserted again
	w.space.RemoveShape(p.pawn.shape)
	w.space.AddShape(p.pawn.shape)
	return nil
}

func (w *World) spawn(p *Player, pos geo.Vector, yaw float32) {
	body := w.space.AddBody(cp.NewKinematicBody())
	body.SetPosition(toCP(pos))

	shape := w.space.AddShape(cp.NewCircle(body, PawnRadius, cp.Vector{}))
	shape.SetFilter(cp.NewShapeFilter(uint(p.key.Slot+1), categoryPawn, cp.ALL_CATEGORIES))

	p.pawn = &Pawn{
		body:   body,
		shape:  shape,
		z:      pos[2],
		angle:  geo.QAngle{Yaw: yaw},
		Health: SpawnHealth,
		Armor:  SpawnArmor,
	}
}

func (w *World) despawnPawn(p *Player) {
	if p.pawn == nil {
		return
	}
	w.space.RemoveShape(p.pawn.shape)
	w.space.RemoveBody(p.pawn.body)
	p.pawn = nil
}

// Player returns the concrete player in slot.
func (w *World) Player(slot core.Slot) (*Player, bool) {
	p, ok := w.players[slot]
	return p, ok
}

func (w *World) PlayerBySlot(slot core.Slot) (host.Player, bool) {
	p, ok := w.players[slot]
	if !ok {
		return nil, false
	}
	return p, true
}

func (w *World) AllPlayers() []host.Player {
	slots := make([]core.Slot, 0, len(w.players))
	for s := range w.players {
		slots = append(slots, s)
	}
	slices.Sort(slots)

	out := make([]host.Player, 0, len(slots))
	for _, s := range slots {
		out = append(out, w.players[s])
	}
	return out
}

// errNoPawn is wrapped for inventory calls on dead players.
var errNoPawn = fmt.Errorf("player has no pawn: %w", host.ErrUnavailable)

func (w *World) inventory(hp host.Player) (*Player, error) {
	if hp == nil {
		return nil, errors.New("nil player")
	}
	p, ok := w.players[hp.Slot()]
	if !ok || p.key != hp.Key() {
		return nil, fmt.Errorf("player %s is not connected", hp.Key())
	}
	if p.pawn == nil {
		return nil, errNoPawn
	}
	return p, nil
}

// Give adds items to slot's inventory, bypassing the pickup lock.
func (w *World) Give(slot core.Slot, items ...string) error {
	p, ok := w.players[slot]
	if !ok {
		return fmt.Errorf("no player in slot %d", slot)
	}
	p.items = append(p.items, items...)
	return nil
}

// Items returns what slot holds.
func (w *World) Items(slot core.Slot) []string {
	p, ok := w.players[slot]
	if !ok {
		return nil
	}
	return slices.Clone(p.items)
}

func (w *World) Weapons(hp host.Player) ([]string, error) {
	p, err := w.inventory(hp)
	if err != nil {
		return nil, err
	}
	return slices.Clone(p.items), nil
}

func (w *World) RemoveItems(hp host.Player) error {
	p, err := w.inventory(hp)
	if err != nil {
		return err
	}
	p.items = nil
	return nil
}

func (w *World) GiveItem(hp host.Player, name string) error {
	p, err := w.inventory(hp)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("empty item name")
	}
	p.items = append(p.items, name)
	return nil
}

func (w *World) SetPreventPickup(hp host.Player, prevent bool) error {
	p, err := w.inventory(hp)
	if err != nil {
		return err
	}
	p.preventPickup = prevent
	return nil
}
