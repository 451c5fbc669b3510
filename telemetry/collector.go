// Package telemetry provides ecosystem health tracking: windowed event
// counters, tick timing, and CSV/SQLite export.
package telemetry

import "github.com/pelagos/reef/components"

// Populations holds the per-kind entity counts at a window boundary.
type Populations struct {
	Fish      int
	Krill     int
	PaleKrill int
	MomKrill  int
	Tuna      int
	Squid     int
	Food      int
	Waste     int
	Claims    int // active predation claims
}

// Collector accumulates events within fixed tick windows and produces
// WindowStats.
type Collector struct {
	windowTicks     int64
	windowStartTick int64

	// Event counters for the current window
	fishDeaths  int
	krillDeaths int
	tunaDeaths  int
	squidDeaths int
	births      int
	maturations int
	stageUps    int
	particles   int

	wasteSpawns [4]int // indexed by WasteOrigin
}

// NewCollector creates a collector with the given window length in ticks.
func NewCollector(windowTicks int64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// RecordDeath records the removal of an agent.
func (c *Collector) RecordDeath(kind components.Kind) {
	switch {
	case kind == components.KindFish:
		c.fishDeaths++
	case kind.IsKrill():
		c.krillDeaths++
	case kind == components.KindTuna:
		c.tunaDeaths++
	case kind == components.KindSquid:
		c.squidDeaths++
	}
}

// RecordBirth records a new krill entering the population.
func (c *Collector) RecordBirth() { c.births++ }

// RecordMaturation records a pale krill maturing into a krill.
func (c *Collector) RecordMaturation() { c.maturations++ }

// RecordStageChange records a fish growth-stage advance.
func (c *Collector) RecordStageChange() { c.stageUps++ }

// RecordParticleRemoved records a food or waste particle leaving the
// world, whether eaten, expired, or converted.
func (c *Collector) RecordParticleRemoved() { c.particles++ }

// RecordWasteSpawn records a new waste particle by origin.
func (c *Collector) RecordWasteSpawn(origin components.WasteOrigin) {
	if int(origin) < len(c.wasteSpawns) {
		c.wasteSpawns[origin]++
	}
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// Energy samples are taken by the caller at window end.
func (c *Collector) Flush(currentTick int64, pops Populations, fishEnergies, krillEnergies []float64) WindowStats {
	fishMean, fishP10, fishP50, fishP90 := ComputeEnergyStats(fishEnergies)
	krillMean, krillP10, krillP50, krillP90 := ComputeEnergyStats(krillEnergies)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		FishCount:      pops.Fish,
		KrillCount:     pops.Krill,
		PaleKrillCount: pops.PaleKrill,
		MomKrillCount:  pops.MomKrill,
		TunaCount:      pops.Tuna,
		SquidCount:     pops.Squid,
		FoodCount:      pops.Food,
		WasteCount:     pops.Waste,
		ActiveClaims:   pops.Claims,

		FishDeaths:       c.fishDeaths,
		KrillDeaths:      c.krillDeaths,
		TunaDeaths:       c.tunaDeaths,
		SquidDeaths:      c.squidDeaths,
		KrillBirths:      c.births,
		Maturations:      c.maturations,
		StageChanges:     c.stageUps,
		ParticlesRemoved: c.particles,

		WasteAmbient: c.wasteSpawns[components.OriginAmbient],
		WasteRegular: c.wasteSpawns[components.OriginRegular],
		WasteTuna:    c.wasteSpawns[components.OriginTuna],
		WasteSquid:   c.wasteSpawns[components.OriginSquid],

		FishEnergyMean: fishMean,
		FishEnergyP10:  fishP10,
		FishEnergyP50:  fishP50,
		FishEnergyP90:  fishP90,

		KrillEnergyMean: krillMean,
		KrillEnergyP10:  krillP10,
		KrillEnergyP50:  krillP50,
		KrillEnergyP90:  krillP90,
	}

	c.windowStartTick = currentTick
	c.fishDeaths = 0
	c.krillDeaths = 0
	c.tunaDeaths = 0
	c.squidDeaths = 0
	c.births = 0
	c.maturations = 0
	c.stageUps = 0
	c.particles = 0
	c.wasteSpawns = [4]int{}

	return stats
}

// WindowTicks returns the window length in ticks.
func (c *Collector) WindowTicks() int64 {
	return c.windowTicks
}
