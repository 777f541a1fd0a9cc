// Package hosttest provides a scriptable host.Host for unit tests.
package hosttest

import (
	"slices"

	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

// Pawn is a fixed body.
type Pawn struct {
	Pos   geo.Vector
	Angle geo.QAngle
}

func (p *Pawn) Origin() geo.Vector    { return p.Pos }
func (p *Pawn) ViewAngle() geo.QAngle { return p.Angle }

// Player is a fake connected player. A nil Body means no pawn.
type Player struct {
	PlayerKey  core.PlayerKey
	Steam      uint64
	PlayerName string
	Invalid    bool
	Body       *Pawn
	Messages   []string
}

// NewPlayer returns a valid player standing at pos looking along yaw.
func NewPlayer(slot core.Slot, connection uint64, pos geo.Vector, yaw float32) *Player {
	return &Player{
		PlayerKey:  core.PlayerKey{Slot: slot, Connection: connection},
		Steam:      76561198000000000 + connection,
		PlayerName: "player",
		Body:       &Pawn{Pos: pos, Angle: geo.QAngle{Yaw: yaw}},
	}
}

func (p *Player) Slot() core.Slot     { return p.PlayerKey.Slot }
func (p *Player) Key() core.PlayerKey { return p.PlayerKey }
func (p *Player) SteamID() uint64     { return p.Steam }
func (p *Player) Name() string        { return p.PlayerName }
func (p *Player) Valid() bool         { return !p.Invalid }
func (p *Player) Print(msg string)    { p.Messages = append(p.Messages, msg) }

func (p *Player) Pawn() (host.Pawn, bool) {
	if p.Body == nil {
		return nil, false
	}
	return p.Body, true
}

// LastMessage returns the most recent chat message or "".
func (p *Player) LastMessage() string {
	if len(p.Messages) == 0 {
		return ""
	}
	return p.Messages[len(p.Messages)-1]
}

// Entity records what was done to it.
type Entity struct {
	DesignerName string
	Pos          geo.Vector
	Angle        geo.QAngle
	Teleports    int
	Despawned    bool
	Invalid      bool
	TeleportErr  error
}

func (e *Entity) Valid() bool        { return !e.Despawned && !e.Invalid }
func (e *Entity) Origin() geo.Vector { return e.Pos }

func (e *Entity) Teleport(pos geo.Vector, angle geo.QAngle) error {
	if e.TeleportErr != nil {
		return e.TeleportErr
	}
	e.Pos = pos
	e.Angle = angle
	e.Teleports++
	return nil
}

func (e *Entity) Despawn() error {
	e.Despawned = true
	return nil
}

// TraceFunc answers collision queries.
type TraceFunc func(start, end geo.Vector, filter host.TraceFilter) (host.Trace, error)

// Host implements host.Host over plain maps. Error fields inject failures.
type Host struct {
	players map[core.Slot]*Player

	Created    []*Entity
	Views      map[core.Slot]*Entity
	ClearCalls int
	CreateErr  error
	SetViewErr error
	ClearErr   error

	TraceFunc TraceFunc
	Traces    int

	Items          map[core.Slot][]string
	PreventPickup  map[core.Slot]bool
	InventoryErr   error
	GiveErr        map[string]error
	RemoveErr      error
	GrantedInOrder []string

	Flags      map[uint64][]string
	Registered []string
}

var _ host.Host = (*Host)(nil)

// New returns an empty host whose traces never hit.
func New() *Host {
	return &Host{
		players:       make(map[core.Slot]*Player),
		Views:         make(map[core.Slot]*Entity),
		Items:         make(map[core.Slot][]string),
		PreventPickup: make(map[core.Slot]bool),
		GiveErr:       make(map[string]error),
		Flags:         make(map[uint64][]string),
	}
}

// AddPlayer puts p into its slot, replacing whoever was there.
func (h *Host) AddPlayer(p *Player) *Player {
	h.players[p.Slot()] = p
	return p
}

// RemovePlayer empties a slot.
func (h *Host) RemovePlayer(slot core.Slot) {
	delete(h.players, slot)
}

func (h *Host) PlayerBySlot(slot core.Slot) (host.Player, bool) {
	p, ok := h.players[slot]
	if !ok {
		return nil, false
	}
	return p, true
}

func (h *Host) AllPlayers() []host.Player {
	slots := make([]core.Slot, 0, len(h.players))
	for s := range h.players {
		slots = append(slots, s)
	}
	slices.Sort(slots)

	out := make([]host.Player, 0, len(slots))
	for _, s := range slots {
		out = append(out, h.players[s])
	}
	return out
}

func (h *Host) CreateEntity(designerName string) (host.Entity, error) {
	if h.CreateErr != nil {
		return nil, h.CreateErr
	}
	e := &Entity{DesignerName: designerName}
	h.Created = append(h.Created, e)
	return e, nil
}

func (h *Host) SetViewEntity(p host.Player, e host.Entity) error {
	if h.SetViewErr != nil {
		return h.SetViewErr
	}
	ent, _ := e.(*Entity)
	h.Views[p.Slot()] = ent
	return nil
}

func (h *Host) ClearViewEntity(p host.Player) error {
	h.ClearCalls++
	if h.ClearErr != nil {
		return h.ClearErr
	}
	delete(h.Views, p.Slot())
	return nil
}

// HasView reports whether slot's view is bound to a camera entity.
func (h *Host) HasView(slot core.Slot) bool {
	_, ok := h.Views[slot]
	return ok
}

// Live returns created entities that were not despawned.
func (h *Host) Live() []*Entity {
	var out []*Entity
	for _, e := range h.Created {
		if !e.Despawned {
			out = append(out, e)
		}
	}
	return out
}

func (h *Host) TraceShape(start, end geo.Vector, filter host.TraceFilter) (host.Trace, error) {
	h.Traces++
	if h.TraceFunc != nil {
		return h.TraceFunc(start, end, filter)
	}
	return host.Trace{EndPos: end, Fraction: 1}, nil
}

func (h *Host) Weapons(p host.Player) ([]string, error) {
	if h.InventoryErr != nil {
		return nil, h.InventoryErr
	}
	return slices.Clone(h.Items[p.Slot()]), nil
}

func (h *Host) RemoveItems(p host.Player) error {
	if h.InventoryErr != nil {
		return h.InventoryErr
	}
	if h.RemoveErr != nil {
		return h.RemoveErr
	}
	delete(h.Items, p.Slot())
	return nil
}

func (h *Host) GiveItem(p host.Player, name string) error {
	if h.InventoryErr != nil {
		return h.InventoryErr
	}
	if err := h.GiveErr[name]; err != nil {
		return err
	}
	h.Items[p.Slot()] = append(h.Items[p.Slot()], name)
	h.GrantedInOrder = append(h.GrantedInOrder, name)
	return nil
}

func (h *Host) SetPreventPickup(p host.Player, prevent bool) error {
	if h.InventoryErr != nil {
		return h.InventoryErr
	}
	h.PreventPickup[p.Slot()] = prevent
	return nil
}

func (h *Host) HasPermission(steamID uint64, flag string) bool {
	return slices.Contains(h.Flags[steamID], flag)
}

func (h *Host) RegisterCommand(name string) error {
	h.Registered = append(h.Registered, name)
	return nil
}
