package sandbox

import (
	"errors"
	"fmt"

	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

var errDespawned = errors.New("entity despawned")

// Entity is a point object with no collision.
type Entity struct {
	world        *World
	DesignerName string
	pos          geo.Vector
	angle        geo.QAngle
	valid        bool
	Teleports    int
}

func (e *Entity) Valid() bool        { return e.valid }
func (e *Entity) Origin() geo.Vector { return e.pos }

// Angle returns the last teleport angle.
func (e *Entity) Angle() geo.QAngle { return e.angle }

func (e *Entity) Teleport(pos geo.Vector, angle geo.QAngle) error {
	if !e.valid {
		return errDespawned
	}
	e.pos = pos
	e.angle = angle
	e.Teleports++
	return nil
}

func (e *Entity) Despawn() error {
	if !e.valid {
		return errDespawned
	}
	e.valid = false
	for slot, v := range e.world.views {
		if v == e {
			delete(e.world.views, slot)
		}
	}
	return nil
}

func (w *World) CreateEntity(designerName string) (host.Entity, error) {
	if designerName == "" {
		return nil, errors.New("empty designer name")
	}
	e := &Entity{world: w, DesignerName: designerName, valid: true}
	w.entities = append(w.entities, e)
	return e, nil
}

func (w *World) SetViewEntity(p host.Player, e host.Entity) error {
	ent, ok := e.(*Entity)
	if !ok || ent.world != w {
		return fmt.Errorf("entity %T does not belong to this world", e)
	}
	if !ent.valid {
		return errDespawned
	}
	if _, ok := w.players[p.Slot()]; !ok {
		return fmt.Errorf("no player in slot %d", p.Slot())
	}
	w.views[p.Slot()] = ent
	return nil
}

func (w *World) ClearViewEntity(p host.Player) error {
	delete(w.views, p.Slot())
	return nil
}

// View returns the entity slot is looking through, if any.
func (w *World) View(slot core.Slot) (*Entity, bool) {
	e, ok := w.views[slot]
	return e, ok
}

// LiveEntities returns entities that were not despawned.
func (w *World) LiveEntities() []*Entity {
	var out []*Entity
	for _, e := range w.entities {
		if e.valid {
			out = append(out, e)
		}
	}
	return out
}
