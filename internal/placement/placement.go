// Package placement computes where a third-person camera sits relative to
// its player, pulling it in front of walls and other players.
package placement

import (
	"log/slog"

	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

const (
	// TraceHeight lifts the collision probe start above the player's feet.
	TraceHeight float32 = 64
	// WallMargin is kept between the camera and whatever the probe hit.
	WallMargin float32 = 10
	// MinDistance is the closest the camera gets to the eye position.
	MinDistance float32 = 10
)

// Options are fixed for the lifetime of a Placer.
type Options struct {
	Distance    float32
	Height      float32
	BlockCamera bool
}

// Placer computes camera poses.
type Placer struct {
	tracer host.Tracer
	opts   Options
	logger *slog.Logger
}

// New creates a Placer. A nil logger uses slog.Default.
func New(tracer host.Tracer, opts Options, logger *slog.Logger) *Placer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Placer{
		tracer: tracer,
		opts:   opts,
		logger: logger.With("component", "placement"),
	}
}

// Options returns the configured distance, height and blocking flag.
func (p *Placer) Options() Options {
	return p.opts
}

// Compute returns the camera pose behind player, or false when the player
// or its pawn is not valid. Callers skip the update on false.
func (p *Placer) Compute(player host.Player) (core.Pose, bool) {
	pawn, ok := validPawn(player)
	if !ok {
		return core.Pose{}, false
	}

	origin := pawn.Origin()
	angle := pawn.ViewAngle()

	eye := origin.Add(geo.Vector{0, 0, p.opts.Height})
	backward := geo.DirectionFromYaw(angle.Yaw).Mul(-1)
	target := eye.Add(backward.Mul(p.opts.Distance))

	pos := target
	if p.opts.BlockCamera {
		pos = p.pullIn(player.Slot(), origin, eye, backward, target)
	}

	return core.Pose{Position: pos, Angle: angle}, true
}

// InitialPosition is where a freshly spawned camera entity is placed:
// distance units behind the player, raised by height. No collision probe.
func (p *Placer) InitialPosition(player host.Player) (geo.Vector, bool) {
	pawn, ok := validPawn(player)
	if !ok {
		return geo.Vector{}, false
	}
	forward := geo.DirectionFromYaw(pawn.ViewAngle().Yaw)
	return pawn.Origin().
		Add(forward.Mul(-p.opts.Distance)).
		Add(geo.Vector{0, 0, p.opts.Height}), true
}

func (p *Placer) pullIn(slot core.Slot, origin, eye, backward, target geo.Vector) geo.Vector {
	start := origin.Add(geo.Vector{0, 0, TraceHeight})
	tr, err := p.tracer.TraceShape(start, target, host.TraceFilter{
		Mask:   host.MaskSolid | host.MaskPlayer,
		Ignore: slot,
	})
	if err != nil {
		p.logger.Debug("camera trace failed", "slot", slot, "error", err)
		return target
	}
	if !tr.DidHit() {
		return target
	}

	wall := geo.Length(tr.EndPos.Sub(eye))
	d := geo.ClampDistance(wall-WallMargin, MinDistance, p.opts.Distance)
	return eye.Add(backward.Mul(d))
}

func validPawn(player host.Player) (host.Pawn, bool) {
	if player == nil || !player.Valid() {
		return nil, false
	}
	pawn, ok := player.Pawn()
	if !ok || pawn == nil {
		return nil, false
	}
	return pawn, true
}
