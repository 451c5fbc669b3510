// Package components defines ECS components for the simulation.
package components

// Position represents an entity's world position. The origin is the top
// left corner of the tank; Y grows downward, so larger Y means deeper.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity in world units per tick.
type Velocity struct {
	X, Y float32
}

// Steering accumulates the steering force computed for the current tick.
// It is cleared at the start of each tick and consumed by the physics
// pass, which clamps it to Motion.MaxForce before integration.
type Steering struct {
	X, Y float32
}

// Motion holds the movement limits of an agent.
type Motion struct {
	MaxSpeed float32 // maximum velocity magnitude per tick
	MaxForce float32 // maximum steering force magnitude per tick
	Size     float32 // body radius, used for capture/eat distances
}
