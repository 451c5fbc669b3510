package systems

// Per-agent deterministic randomness. Each agent carries a uint64 state
// seeded at spawn; advancing it is a splitmix64 step. This keeps jitter
// reproducible for a fixed world seed, independent of wall-clock time and
// of how many other agents drew random numbers this tick.

// NextRand advances the per-agent RNG state and returns a float32 in
// [0, 1).
func NextRand(state *uint64) float32 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return float32(z>>40) / float32(1<<24)
}

// JitterAt derives a fixed value in [0, 1) from the agent's seed and a
// salt without advancing the state. Used for per-agent constants such as
// the migration phase offset.
func JitterAt(state uint64, salt uint64) float32 {
	z := state ^ (salt * 0x9e3779b97f4a7c15)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return float32(z>>40) / float32(1<<24)
}
