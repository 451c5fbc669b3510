package systems

import "github.com/pelagos/reef/steering"

// Shared environmental forces applied on top of behavior steering.

// DepthForce pulls an agent toward its species-typical vertical band.
// The pull ramps linearly over a fifth of the tank height and saturates
// at weight.
func DepthForce(y float32, b Bounds, prefFrac, weight float32) steering.Vec2 {
	target := prefFrac * b.Height
	ramp := b.Height * 0.2
	if ramp <= 0 {
		return steering.Vec2{}
	}
	e := clampFloat((target-y)/ramp, -1, 1)
	return steering.Vec2{Y: e * weight}
}

// DepthForceToward is DepthForce with an explicit target depth fraction,
// used by migrating krill whose target comes from the migration cycle.
func DepthForceToward(y float32, b Bounds, targetFrac, weight float32) steering.Vec2 {
	return DepthForce(y, b, targetFrac, weight)
}

// EdgeForce pushes an agent back into the tank when it strays inside the
// edge margin. The push grows linearly toward the wall.
func EdgeForce(x, y float32, b Bounds, margin, force float32) steering.Vec2 {
	if margin <= 0 {
		return steering.Vec2{}
	}
	var f steering.Vec2
	if x < margin {
		f.X += force * (1 - x/margin)
	} else if x > b.Width-margin {
		f.X -= force * (1 - (b.Width-x)/margin)
	}
	if y < margin {
		f.Y += force * (1 - y/margin)
	} else if y > b.Height-margin {
		f.Y -= force * (1 - (b.Height-y)/margin)
	}
	return f
}

// ForceScratch holds per-caller reusable buffers for the force pass, so
// neighbor queries allocate nothing in steady state. Each worker owns one.
type ForceScratch struct {
	Neighbors []Neighbor
	Flock     []steering.Neighbor
}

// NewForceScratch creates a scratch with preallocated buffers.
func NewForceScratch() *ForceScratch {
	return &ForceScratch{
		Neighbors: make([]Neighbor, 0, 64),
		Flock:     make([]steering.Neighbor, 0, 64),
	}
}
