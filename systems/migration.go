package systems

import "github.com/pelagos/reef/config"

// MigrationPhase is the current half of the vertical migration cycle.
type MigrationPhase uint8

const (
	PhaseRise   MigrationPhase = iota // swarm heads for the shallow band
	PhaseReturn                       // swarm returns to the deep band
)

// MigrationCycle drives the population-level vertical migration: a fixed
// period alternating a rise-to-shallow phase and a return-to-deep phase.
// Individual krill add a per-agent depth jitter derived from their fixed
// seed so the swarm never stacks on one point.
type MigrationCycle struct {
	cfg  config.MigrationConfig
	tick int64
}

// NewMigrationCycle creates a migration cycle.
func NewMigrationCycle(cfg config.MigrationConfig) *MigrationCycle {
	return &MigrationCycle{cfg: cfg}
}

// Update synchronizes the cycle with the simulation tick.
func (m *MigrationCycle) Update(tick int64) {
	m.tick = tick
}

// Phase returns the current phase.
func (m *MigrationCycle) Phase() MigrationPhase {
	if m.tick%m.cfg.PeriodTicks < m.cfg.PeriodTicks/2 {
		return PhaseRise
	}
	return PhaseReturn
}

// TargetDepthFrac returns the depth fraction a krill with the given fixed
// jitter (in [0, 1)) should hold for the current phase.
func (m *MigrationCycle) TargetDepthFrac(jitter float32) float32 {
	base := m.cfg.DeepFrac
	if m.Phase() == PhaseRise {
		base = m.cfg.ShallowFrac
	}
	offset := (jitter*2 - 1) * m.cfg.JitterFrac
	return clamp01(base + offset)
}

// ForceWeight returns the strength of the migration force. While
// migrating, this intentionally overrides the idle depth preference.
func (m *MigrationCycle) ForceWeight() float32 {
	return m.cfg.ForceWeight
}
