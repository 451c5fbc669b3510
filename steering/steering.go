// Package steering provides the pure force math used by all agent
// controllers: seek, flee, arrival, and the classic flocking triad
// (separation, alignment, cohesion).
//
// All functions are side-effect free and return a zero vector for
// degenerate inputs (empty neighbor sets, zero-length directions).
// Distance comparisons use squared distance; square roots are taken only
// when a direction must be normalized.
package steering

import "math"

// Vec2 is a 2D vector. The simulation uses float32 throughout.
type Vec2 struct {
	X, Y float32
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Len returns the vector magnitude.
func (v Vec2) Len() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// LenSq returns the squared magnitude.
func (v Vec2) LenSq() float32 { return v.X*v.X + v.Y*v.Y }

// Normalized returns v scaled to unit length, or the zero vector if v is
// (numerically) zero.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l < 1e-6 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Limit clamps the magnitude of v to max.
func (v Vec2) Limit(max float32) Vec2 {
	if max <= 0 {
		return Vec2{}
	}
	lsq := v.LenSq()
	if lsq <= max*max {
		return v
	}
	l := float32(math.Sqrt(float64(lsq)))
	return Vec2{v.X / l * max, v.Y / l * max}
}

// WithLen returns v rescaled to the given length, or zero if v is zero.
func (v Vec2) WithLen(l float32) Vec2 {
	return v.Normalized().Scale(l)
}

// DistSq returns the squared distance between two points.
func DistSq(a, b Vec2) float32 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// Seek returns a force steering an agent at pos with velocity vel toward
// target: desired velocity at maxSpeed minus current velocity, clamped to
// maxForce.
func Seek(pos, vel, target Vec2, maxSpeed, maxForce float32) Vec2 {
	desired := target.Sub(pos)
	if desired.LenSq() < 1e-12 {
		return Vec2{}
	}
	desired = desired.WithLen(maxSpeed)
	return desired.Sub(vel).Limit(maxForce)
}

// Flee returns the inverse of Seek: a force steering away from threat.
func Flee(pos, vel, threat Vec2, maxSpeed, maxForce float32) Vec2 {
	desired := pos.Sub(threat)
	if desired.LenSq() < 1e-12 {
		return Vec2{}
	}
	desired = desired.WithLen(maxSpeed)
	return desired.Sub(vel).Limit(maxForce)
}

// Arrive is Seek with speed ramped down inside slowRadius, so agents settle
// onto targets instead of orbiting them.
func Arrive(pos, vel, target Vec2, maxSpeed, maxForce, slowRadius float32) Vec2 {
	offset := target.Sub(pos)
	dist := offset.Len()
	if dist < 1e-6 {
		return Vec2{}
	}
	speed := maxSpeed
	if slowRadius > 0 && dist < slowRadius {
		speed = maxSpeed * dist / slowRadius
	}
	desired := offset.WithLen(speed)
	return desired.Sub(vel).Limit(maxForce)
}

// Neighbor is the minimal view of a nearby agent needed by the flocking
// rules.
type Neighbor struct {
	Pos Vec2
	Vel Vec2
}

// Separation returns a force pushing away from neighbors closer than
// radius, weighted by inverse distance: the push strengthens as a
// neighbor closes in, capped at maxSpeed. Zero when no neighbor is
// inside the radius.
func Separation(pos, vel Vec2, neighbors []Neighbor, radius, maxSpeed, maxForce float32) Vec2 {
	var sum Vec2
	count := 0
	rsq := radius * radius
	for _, n := range neighbors {
		dsq := DistSq(pos, n.Pos)
		if dsq >= rsq || dsq < 1e-12 {
			continue
		}
		d := float32(math.Sqrt(float64(dsq)))
		away := pos.Sub(n.Pos).WithLen(1 / d)
		sum = sum.Add(away)
		count++
	}
	if count == 0 {
		return Vec2{}
	}
	sum = sum.Scale(1 / float32(count))
	if sum.LenSq() < 1e-12 {
		return Vec2{}
	}
	desired := sum.Scale(maxSpeed).Limit(maxSpeed)
	return desired.Sub(vel).Limit(maxForce)
}

// Alignment returns a force matching the average neighbor velocity.
func Alignment(vel Vec2, neighbors []Neighbor, maxSpeed, maxForce float32) Vec2 {
	var sum Vec2
	for _, n := range neighbors {
		sum = sum.Add(n.Vel)
	}
	if len(neighbors) == 0 || sum.LenSq() < 1e-12 {
		return Vec2{}
	}
	desired := sum.Scale(1 / float32(len(neighbors))).WithLen(maxSpeed)
	return desired.Sub(vel).Limit(maxForce)
}

// Cohesion returns a seek force toward the neighbor centroid.
func Cohesion(pos, vel Vec2, neighbors []Neighbor, maxSpeed, maxForce float32) Vec2 {
	if len(neighbors) == 0 {
		return Vec2{}
	}
	var sum Vec2
	for _, n := range neighbors {
		sum = sum.Add(n.Pos)
	}
	centroid := sum.Scale(1 / float32(len(neighbors)))
	return Seek(pos, vel, centroid, maxSpeed, maxForce)
}
