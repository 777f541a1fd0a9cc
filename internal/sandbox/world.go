// Package sandbox is an in-process game server used by the demo command
// and integration tests. Collision runs on a top-down chipmunk space:
// walls are static boxes, pawns are kinematic circles and heights are
// ignored by traces. A World is not safe for concurrent use; like a real
// host, every call happens on one thread.
package sandbox

import (
	"log/slog"
	"slices"

	"github.com/jakecoffman/cp"

	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

// PawnRadius is the collision radius of every pawn.
const PawnRadius = 16

// Collision categories. Each host.Mask bit selects one.
const (
	categoryWorld uint = 1 << iota
	categoryPawn
)

// Sink receives the events the world raises.
type Sink interface {
	Dispatch(name string, payload any) (any, error)
}

// World implements host.Host.
type World struct {
	space *cp.Space
	log   *slog.Logger
	sink  Sink

	players  map[core.Slot]*Player
	nextConn uint64
	frame    uint64

	entities []*Entity
	views    map[core.Slot]*Entity

	flags    map[uint64][]string
	commands []string
}

var _ host.Host = (*World)(nil)

// NewWorld returns an empty world. A nil logger uses slog.Default.
func NewWorld(logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	return &World{
		space:   cp.NewSpace(),
		log:     logger.With("component", "sandbox"),
		players: make(map[core.Slot]*Player),
		views:   make(map[core.Slot]*Entity),
		flags:   make(map[uint64][]string),
	}
}

// SetSink sets where events go. Without a sink events are dropped.
func (w *World) SetSink(s Sink) {
	w.sink = s
}

// AddWall adds an axis-aligned wall spanning min to max on the ground plane.
func (w *World) AddWall(min, max geo.Vector) {
	bb := cp.BB{
		L: float64(min[0]),
		B: float64(min[1]),
		R: float64(max[0]),
		T: float64(max[1]),
	}
	shape := w.space.AddShape(cp.NewBox2(w.space.StaticBody, bb, 0))
	shape.SetFilter(cp.NewShapeFilter(cp.NO_GROUP, categoryWorld, cp.ALL_CATEGORIES))
}

// TraceShape casts a ray on the ground plane. EndPos keeps the height of
// the segment at the hit fraction.
func (w *World) TraceShape(start, end geo.Vector, filter host.TraceFilter) (host.Trace, error) {
	if geo.Near(start, end, 1e-6) {
		return host.Trace{EndPos: end, Fraction: 1}, nil
	}

	info := w.space.SegmentQueryFirst(toCP(start), toCP(end), 0, queryFilter(filter))
	if info.Shape == nil {
		return host.Trace{EndPos: end, Fraction: 1}, nil
	}

	alpha := float32(info.Alpha)
	return host.Trace{
		EndPos:   geo.Lerp(start, end, alpha),
		Fraction: alpha,
	}, nil
}

func queryFilter(f host.TraceFilter) cp.ShapeFilter {
	var mask uint
	if f.Mask&host.MaskSolid != 0 {
		mask |= categoryWorld
	}
	if f.Mask&host.MaskPlayer != 0 {
		mask |= categoryPawn
	}
	// pawn groups are slot+1, so NoSlot maps to NO_GROUP
	return cp.NewShapeFilter(uint(f.Ignore+1), cp.ALL_CATEGORIES, mask)
}

// HasPermission reports whether steamID was granted flag.
func (w *World) HasPermission(steamID uint64, flag string) bool {
	return slices.Contains(w.flags[steamID], flag)
}

// Grant gives steamID an admin flag.
func (w *World) Grant(steamID uint64, flag string) {
	if !w.HasPermission(steamID, flag) {
		w.flags[steamID] = append(w.flags[steamID], flag)
	}
}

// RegisterCommand makes name available to Command.
func (w *World) RegisterCommand(name string) error {
	if !slices.Contains(w.commands, name) {
		w.commands = append(w.commands, name)
	}
	return nil
}

// Commands returns the registered command names.
func (w *World) Commands() []string {
	return slices.Clone(w.commands)
}

func toCP(v geo.Vector) cp.Vector {
	return cp.Vector{X: float64(v[0]), Y: float64(v[1])}
}
