package placement

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/ThirdPersonSW2/extension/internal/config"
	"github.com/ThirdPersonSW2/extension/pkg/geo"
)

// DefaultFactor is the share of the remaining distance covered per tick.
const DefaultFactor float32 = 0.3

// Smoother moves a camera from its current position toward a target.
type Smoother interface {
	Step(current, target geo.Vector) geo.Vector
}

// FixedFactor covers the same share of the gap every tick, so the apparent
// speed depends on the server tick rate.
type FixedFactor struct {
	Factor float32
}

func (s FixedFactor) Step(current, target geo.Vector) geo.Vector {
	return geo.Lerp(current, target, s.Factor)
}

// TickNormalized rescales Factor, tuned at ReferenceRate ticks per second,
// so the camera converges at the same wall-clock speed at TickRate.
type TickNormalized struct {
	Factor        float32
	ReferenceRate float32
	TickRate      float32
}

// Alpha is the per-tick interpolation factor at TickRate.
func (s TickNormalized) Alpha() float32 {
	if s.ReferenceRate <= 0 || s.TickRate <= 0 {
		return s.Factor
	}
	return 1 - math32.Pow(1-s.Factor, s.ReferenceRate/s.TickRate)
}

func (s TickNormalized) Step(current, target geo.Vector) geo.Vector {
	return geo.Lerp(current, target, s.Alpha())
}

// NewSmoother builds the smoother named by mode (config.SmoothingFixed or
// config.SmoothingTick). An empty mode means fixed.
func NewSmoother(mode string, factor, referenceRate, tickRate float32) (Smoother, error) {
	if factor <= 0 || factor > 1 {
		return nil, fmt.Errorf("smoothing factor %v outside (0, 1]", factor)
	}
	switch mode {
	case "", config.SmoothingFixed:
		return FixedFactor{Factor: factor}, nil
	case config.SmoothingTick:
		if referenceRate <= 0 || tickRate <= 0 {
			return nil, fmt.Errorf("tick rates must be positive, got reference %v and tick %v", referenceRate, tickRate)
		}
		return TickNormalized{Factor: factor, ReferenceRate: referenceRate, TickRate: tickRate}, nil
	default:
		return nil, fmt.Errorf("unknown smoothing mode: %s", mode)
	}
}
