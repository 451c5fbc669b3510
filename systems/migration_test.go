package systems

import (
	"testing"

	"github.com/pelagos/reef/config"
)

func defaultMigration(t *testing.T) (*MigrationCycle, config.MigrationConfig) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading default config: %v", err)
	}
	return NewMigrationCycle(cfg.Migration), cfg.Migration
}

func TestMigrationCycle_PhaseAlternates(t *testing.T) {
	m, cfg := defaultMigration(t)

	m.Update(0)
	if m.Phase() != PhaseRise {
		t.Error("the cycle starts rising")
	}
	m.Update(cfg.PeriodTicks/2 - 1)
	if m.Phase() != PhaseRise {
		t.Error("still rising just before the half period")
	}
	m.Update(cfg.PeriodTicks / 2)
	if m.Phase() != PhaseReturn {
		t.Error("the return leg starts at the half period")
	}
	m.Update(cfg.PeriodTicks)
	if m.Phase() != PhaseRise {
		t.Error("the cycle wraps after a full period")
	}
}

func TestMigrationCycle_TargetDepthFollowsPhase(t *testing.T) {
	m, cfg := defaultMigration(t)

	m.Update(0)
	rise := m.TargetDepthFrac(0.5) // zero jitter offset
	if rise != cfg.ShallowFrac {
		t.Errorf("rise target should be the shallow band, got %g", rise)
	}

	m.Update(cfg.PeriodTicks / 2)
	ret := m.TargetDepthFrac(0.5)
	if ret != cfg.DeepFrac {
		t.Errorf("return target should be the deep band, got %g", ret)
	}
}

func TestMigrationCycle_JitterSpreadsWithinBand(t *testing.T) {
	m, cfg := defaultMigration(t)
	m.Update(0)

	lo := m.TargetDepthFrac(0)
	hi := m.TargetDepthFrac(1)
	if lo != cfg.ShallowFrac-cfg.JitterFrac {
		t.Errorf("minimum jitter maps to the band floor, got %g", lo)
	}
	if hi != cfg.ShallowFrac+cfg.JitterFrac {
		t.Errorf("maximum jitter maps to the band ceiling, got %g", hi)
	}
}

func TestMigrationCycle_TargetDepthClamped(t *testing.T) {
	cfg := config.MigrationConfig{
		PeriodTicks: 100,
		ShallowFrac: 0.02,
		DeepFrac:    0.98,
		JitterFrac:  0.1,
		ForceWeight: 1,
	}
	m := NewMigrationCycle(cfg)

	m.Update(0)
	if got := m.TargetDepthFrac(0); got < 0 {
		t.Errorf("target depth must stay in [0, 1], got %g", got)
	}
	m.Update(cfg.PeriodTicks / 2)
	if got := m.TargetDepthFrac(1); got > 1 {
		t.Errorf("target depth must stay in [0, 1], got %g", got)
	}
}

func TestCurrentField_ZeroStrengthIsStill(t *testing.T) {
	f := NewCurrentField(config.CurrentsConfig{Strength: 0, Scale: 0.002, TimeScale: 0.01}, 7)
	if got := f.ForceAt(800, 500); got.X != 0 || got.Y != 0 {
		t.Errorf("zero strength should yield no drift, got (%g, %g)", got.X, got.Y)
	}
}

func TestCurrentField_DeterministicForSeed(t *testing.T) {
	cfg := config.CurrentsConfig{Strength: 0.004, Scale: 0.002, TimeScale: 0.01}
	a := NewCurrentField(cfg, 42)
	b := NewCurrentField(cfg, 42)
	a.Update()
	b.Update()

	fa := a.ForceAt(800, 500)
	fb := b.ForceAt(800, 500)
	if fa != fb {
		t.Errorf("same seed and tick should produce identical drift, got (%g, %g) vs (%g, %g)",
			fa.X, fa.Y, fb.X, fb.Y)
	}
}

func TestCurrentField_StrengthBoundsMagnitude(t *testing.T) {
	cfg := config.CurrentsConfig{Strength: 0.004, Scale: 0.002, TimeScale: 0.01}
	f := NewCurrentField(cfg, 3)

	for i := 0; i < 50; i++ {
		f.Update()
		v := f.ForceAt(float32(i)*31, float32(i)*17)
		if v.Len() > cfg.Strength*1.0001 {
			t.Fatalf("drift magnitude %g exceeds strength %g", v.Len(), cfg.Strength)
		}
	}
}
