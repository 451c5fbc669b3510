package systems

import "github.com/pelagos/reef/components"

// Behavior state machine framework. Every agent kind shares the same
// transition mechanics: a minimum dwell time between changes to prevent
// oscillation, no event when the target state equals the current state,
// and a short history ring kept for debugging.

// ChangeState transitions b to next if the agent has dwelt in its current
// state for at least minDwell ticks. Returns true if a transition fired.
// Transitioning to the current state is a no-op and returns false.
func ChangeState(b *components.Behavior, next components.State, tick int64, minDwell int32) bool {
	if b.State == next {
		return false
	}
	if b.Timer < minDwell {
		return false
	}
	b.Record(b.State, next, tick)
	b.State = next
	b.Timer = 0
	return true
}

// ForceState transitions b to next ignoring the dwell guard. Used for
// priority overrides such as threat-triggered fleeing, which must never
// be delayed by the anti-oscillation timer.
func ForceState(b *components.Behavior, next components.State, tick int64) bool {
	if b.State == next {
		return false
	}
	b.Record(b.State, next, tick)
	b.State = next
	b.Timer = 0
	return true
}

// TickState advances the state timer. Called once per tick per agent
// before transitions are evaluated.
func TickState(b *components.Behavior) {
	if b.Timer < 1<<30 {
		b.Timer++
	}
}
