package telemetry

import (
	"testing"

	"github.com/pelagos/reef/components"
)

func TestCollector_ShouldFlushAtWindowBoundary(t *testing.T) {
	c := NewCollector(600)

	if c.ShouldFlush(599) {
		t.Error("the window is not complete at tick 599")
	}
	if !c.ShouldFlush(600) {
		t.Error("the window completes at tick 600")
	}

	c.Flush(600, Populations{}, nil, nil)
	if c.ShouldFlush(1199) {
		t.Error("the next window starts after a flush")
	}
	if !c.ShouldFlush(1200) {
		t.Error("the second window completes at tick 1200")
	}
}

func TestCollector_FlushAggregatesEvents(t *testing.T) {
	c := NewCollector(600)

	c.RecordDeath(components.KindFish)
	c.RecordDeath(components.KindKrill)
	c.RecordDeath(components.KindPaleKrill)
	c.RecordDeath(components.KindMomKrill)
	c.RecordDeath(components.KindTuna)
	c.RecordDeath(components.KindSquid)
	c.RecordBirth()
	c.RecordBirth()
	c.RecordMaturation()
	c.RecordStageChange()
	c.RecordParticleRemoved()
	c.RecordWasteSpawn(components.OriginAmbient)
	c.RecordWasteSpawn(components.OriginRegular)
	c.RecordWasteSpawn(components.OriginRegular)
	c.RecordWasteSpawn(components.OriginSquid)

	pops := Populations{Fish: 100, Krill: 300, Tuna: 8, Squid: 2, Claims: 3}
	stats := c.Flush(600, pops, nil, nil)

	if stats.WindowStartTick != 0 || stats.WindowEndTick != 600 {
		t.Errorf("window bounds [%d, %d] wrong", stats.WindowStartTick, stats.WindowEndTick)
	}
	if stats.FishDeaths != 1 || stats.TunaDeaths != 1 || stats.SquidDeaths != 1 {
		t.Error("per-kind death counts wrong")
	}
	if stats.KrillDeaths != 3 {
		t.Errorf("all krill variants count as krill deaths, got %d", stats.KrillDeaths)
	}
	if stats.KrillBirths != 2 || stats.Maturations != 1 || stats.StageChanges != 1 || stats.ParticlesRemoved != 1 {
		t.Error("lifecycle event counts wrong")
	}
	if stats.WasteAmbient != 1 || stats.WasteRegular != 2 || stats.WasteTuna != 0 || stats.WasteSquid != 1 {
		t.Error("waste spawn counts by origin wrong")
	}
	if stats.FishCount != 100 || stats.ActiveClaims != 3 {
		t.Error("population snapshot wrong")
	}
}

func TestCollector_FlushResetsCounters(t *testing.T) {
	c := NewCollector(600)
	c.RecordDeath(components.KindFish)
	c.RecordBirth()
	c.RecordWasteSpawn(components.OriginTuna)
	c.Flush(600, Populations{}, nil, nil)

	stats := c.Flush(1200, Populations{}, nil, nil)
	if stats.FishDeaths != 0 || stats.KrillBirths != 0 || stats.WasteTuna != 0 {
		t.Error("counters must reset between windows")
	}
	if stats.WindowStartTick != 600 {
		t.Errorf("the second window starts at the first flush tick, got %d", stats.WindowStartTick)
	}
}

func TestCollector_EnergySamplesFeedStats(t *testing.T) {
	c := NewCollector(600)

	stats := c.Flush(600, Populations{}, []float64{50, 50, 50}, []float64{10, 20, 30})
	if stats.FishEnergyMean != 50 {
		t.Errorf("fish energy mean should be 50, got %g", stats.FishEnergyMean)
	}
	if stats.KrillEnergyMean != 20 {
		t.Errorf("krill energy mean should be 20, got %g", stats.KrillEnergyMean)
	}
}

func TestNewCollector_ClampsWindow(t *testing.T) {
	c := NewCollector(0)
	if c.WindowTicks() < 1 {
		t.Errorf("window length must be at least 1, got %d", c.WindowTicks())
	}
}
