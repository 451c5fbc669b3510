// Package sim assembles the world: it owns the ECS, the spatial index,
// the per-kind behavior systems, and the tick pipeline that runs them in
// a fixed order.
package sim

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/config"
	"github.com/pelagos/reef/steering"
	"github.com/pelagos/reef/systems"
	"github.com/pelagos/reef/telemetry"
)

// forceItem is one entry of the per-tick force pass: the entity, its
// kind, and its position snapshot taken at grid-build time.
type forceItem struct {
	E    ecs.Entity
	Kind components.Kind
}

// Sim holds the complete simulation state.
type Sim struct {
	world *ecs.World
	cfg   *config.Config
	rng   *rand.Rand
	seed  int64

	fishMapper  *ecs.Map8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Fish]
	krillMapper *ecs.Map8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Krill]
	tunaMapper  *ecs.Map8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Tuna]
	squidMapper *ecs.Map8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Squid]
	foodMapper  *ecs.Map2[components.Position, components.Food]
	wasteMapper *ecs.Map2[components.Position, components.Waste]

	posFilter   *ecs.Filter1[components.Position]
	moverFilter *ecs.Filter4[components.Position, components.Velocity, components.Steering, components.Motion]

	posMap     *ecs.Map1[components.Position]
	velMap     *ecs.Map1[components.Velocity]
	steerMap   *ecs.Map1[components.Steering]
	motionMap  *ecs.Map1[components.Motion]
	energyMap  *ecs.Map1[components.Energy]
	speciesMap *ecs.Map1[components.Species]
	fishMap    *ecs.Map1[components.Fish]
	krillMap   *ecs.Map1[components.Krill]
	tunaMap    *ecs.Map1[components.Tuna]
	squidMap   *ecs.Map1[components.Squid]
	foodMap    *ecs.Map1[components.Food]
	wasteMap   *ecs.Map1[components.Waste]

	grid      *systems.SpatialGrid
	claims    *systems.ClaimTable
	queue     *systems.MutationQueue
	migration *systems.MigrationCycle
	currents  *systems.CurrentField

	fish     *systems.FishSystem
	krill    *systems.KrillSystem
	tuna     *systems.TunaSystem
	squid    *systems.SquidSystem
	nutrient *systems.NutrientSystem

	ctx systems.Context

	// Force-pass working set, rebuilt every tick alongside the grid.
	movers   []forceItem
	scratch  *systems.ForceScratch
	parallel *parallelState

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector

	tick   int64
	counts Counts

	lastWindow  telemetry.WindowStats
	windowFresh bool
}

// Counts holds the current population per kind.
type Counts struct {
	Fish      int
	Krill     int
	PaleKrill int
	MomKrill  int
	Tuna      int
	Squid     int
	Food      int
	Waste     int
}

// Agents returns the total number of living agents.
func (c Counts) Agents() int {
	return c.Fish + c.Krill + c.PaleKrill + c.MomKrill + c.Tuna + c.Squid
}

// KrillAll returns the total across all krill variants.
func (c Counts) KrillAll() int {
	return c.Krill + c.PaleKrill + c.MomKrill
}

// Options configures a simulation run.
type Options struct {
	Seed     int64
	Parallel bool // offload the force pass to a worker pool
}

// New creates a simulation from a validated config and spawns the
// initial population.
func New(cfg *config.Config, opts Options) *Sim {
	world := ecs.NewWorld()

	s := &Sim{
		world: world,
		cfg:   cfg,
		seed:  opts.Seed,
		rng:   rand.New(rand.NewSource(opts.Seed)),

		fishMapper:  ecs.NewMap8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Fish](world),
		krillMapper: ecs.NewMap8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Krill](world),
		tunaMapper:  ecs.NewMap8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Tuna](world),
		squidMapper: ecs.NewMap8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Squid](world),
		foodMapper:  ecs.NewMap2[components.Position, components.Food](world),
		wasteMapper: ecs.NewMap2[components.Position, components.Waste](world),

		posFilter:   ecs.NewFilter1[components.Position](world),
		moverFilter: ecs.NewFilter4[components.Position, components.Velocity, components.Steering, components.Motion](world),

		posMap:     ecs.NewMap1[components.Position](world),
		velMap:     ecs.NewMap1[components.Velocity](world),
		steerMap:   ecs.NewMap1[components.Steering](world),
		motionMap:  ecs.NewMap1[components.Motion](world),
		energyMap:  ecs.NewMap1[components.Energy](world),
		speciesMap: ecs.NewMap1[components.Species](world),
		fishMap:    ecs.NewMap1[components.Fish](world),
		krillMap:   ecs.NewMap1[components.Krill](world),
		tunaMap:    ecs.NewMap1[components.Tuna](world),
		squidMap:   ecs.NewMap1[components.Squid](world),
		foodMap:    ecs.NewMap1[components.Food](world),
		wasteMap:   ecs.NewMap1[components.Waste](world),

		claims:  systems.NewClaimTable(),
		queue:   systems.NewMutationQueue(),
		movers:  make([]forceItem, 0, 512),
		scratch: systems.NewForceScratch(),
	}

	s.grid = systems.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.Physics.GridCellSize)
	s.migration = systems.NewMigrationCycle(cfg.Migration)
	s.currents = systems.NewCurrentField(cfg.Currents, opts.Seed)

	s.fish = systems.NewFishSystem(world, cfg.Fish)
	s.krill = systems.NewKrillSystem(world, cfg.Krill)
	s.tuna = systems.NewTunaSystem(world, cfg.Tuna)
	s.squid = systems.NewSquidSystem(world, cfg.Squid)
	s.nutrient = systems.NewNutrientSystem(world, cfg.Waste, cfg.Food)

	s.ctx = systems.Context{
		Cfg:       cfg,
		Bounds:    systems.Bounds{Width: cfg.World.Width, Height: cfg.World.Height},
		Grid:      s.grid,
		Claims:    s.claims,
		Queue:     s.queue,
		Migration: s.migration,
		Currents:  s.currents,
		Rng:       s.rng,
	}

	s.collector = telemetry.NewCollector(cfg.Telemetry.WindowTicks)
	s.perf = telemetry.NewPerfCollector(256)

	if opts.Parallel {
		s.parallel = newParallelState()
	}

	s.spawnInitialPopulation()
	return s
}

// Close releases background resources. Safe to call more than once.
func (s *Sim) Close() {
	if s.parallel != nil {
		s.parallel.stopWorkers()
	}
}

// Tick returns the current tick number.
func (s *Sim) Tick() int64 { return s.tick }

// Population returns the current per-kind counts.
func (s *Sim) Population() Counts { return s.counts }

// Claims exposes the claim table, used by telemetry and tests.
func (s *Sim) Claims() *systems.ClaimTable { return s.claims }

// Perf returns the performance collector.
func (s *Sim) Perf() *telemetry.PerfCollector { return s.perf }

// Collector returns the telemetry collector.
func (s *Sim) Collector() *telemetry.Collector { return s.collector }

// Step advances the simulation by one tick.
func (s *Sim) Step() {
	s.perf.StartTick()
	s.tick++
	s.ctx.Tick = s.tick
	s.queue.Reset()

	s.perf.StartPhase(telemetry.PhaseEnvironment)
	s.migration.Update(s.tick)
	s.currents.Update()

	s.perf.StartPhase(telemetry.PhaseSpatialGrid)
	s.rebuildGrid()

	s.perf.StartPhase(telemetry.PhaseDecide)
	s.fish.Decide(&s.ctx)
	s.krill.Decide(&s.ctx)
	s.tuna.Decide(&s.ctx)
	s.squid.Decide(&s.ctx)

	s.perf.StartPhase(telemetry.PhaseForces)
	s.runForcePass()

	s.perf.StartPhase(telemetry.PhasePhysics)
	s.integrate()

	s.perf.StartPhase(telemetry.PhaseNutrients)
	s.nutrient.Update(&s.ctx)

	s.perf.StartPhase(telemetry.PhaseLifecycle)
	s.fish.CheckEvolution(&s.ctx)
	s.krill.CheckMaturation(&s.ctx)
	s.krill.CheckReproduction(&s.ctx)
	s.feedTank()

	s.perf.StartPhase(telemetry.PhaseApply)
	s.applyMutations()

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.recordTick()

	s.perf.EndTick()
}

// rebuildGrid re-inserts every positioned entity into the spatial index
// and collects the agent list for the force pass.
func (s *Sim) rebuildGrid() {
	s.grid.Clear()
	s.movers = s.movers[:0]

	query := s.posFilter.Query()
	for query.Next() {
		entity := query.Entity()
		pos := query.Get()
		s.grid.Insert(entity, pos.X, pos.Y)

		if sp := s.speciesMap.Get(entity); sp != nil {
			s.movers = append(s.movers, forceItem{E: entity, Kind: sp.Kind})
		}
	}
}

// agentForce dispatches the per-kind steering computation. It is safe to
// call concurrently for distinct entities: the kind systems only read
// shared state in their force passes.
func (s *Sim) agentForce(item forceItem, scratch *systems.ForceScratch) steering.Vec2 {
	var force steering.Vec2
	switch item.Kind {
	case components.KindFish:
		force = s.fish.Force(&s.ctx, item.E, scratch)
	case components.KindTuna:
		force = s.tuna.Force(&s.ctx, item.E, scratch)
	case components.KindSquid:
		force = s.squid.Force(&s.ctx, item.E, scratch)
	default:
		force = s.krill.Force(&s.ctx, item.E, scratch)
	}

	if pos := s.posMap.Get(item.E); pos != nil {
		force = force.Add(systems.EdgeForce(pos.X, pos.Y, s.ctx.Bounds, s.cfg.Physics.EdgeMargin, s.cfg.Physics.EdgeForce))
		force = force.Add(s.currents.ForceAt(pos.X, pos.Y))
	}
	return force
}

// runForcePass computes steering for every agent, either sequentially or
// on the worker pool. Both paths produce identical results.
func (s *Sim) runForcePass() {
	n := len(s.movers)
	if n == 0 {
		return
	}

	if s.parallel != nil && n >= parallelThreshold {
		s.parallel.run(s, n)
		return
	}

	for i := range s.movers {
		s.applyForce(i, s.scratch)
	}
}

// applyForce computes and stores the steering force for mover i.
func (s *Sim) applyForce(i int, scratch *systems.ForceScratch) {
	item := s.movers[i]
	force := s.agentForce(item, scratch)
	if st := s.steerMap.Get(item.E); st != nil {
		st.X = force.X
		st.Y = force.Y
	}
}

// integrate applies steering to velocity and velocity to position for
// every mover, clamping to per-agent limits and tank bounds.
func (s *Sim) integrate() {
	bounds := s.ctx.Bounds
	drag := s.cfg.Physics.Drag

	query := s.moverFilter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, vel, st, motion := query.Get()

		force := steering.Vec2{X: st.X, Y: st.Y}.Limit(motion.MaxForce)
		st.X, st.Y = 0, 0

		v := steering.Vec2{X: vel.X, Y: vel.Y}.Add(force)

		// Jetting squid shed less speed to friction.
		d := drag
		if sq := s.squidMap.Get(entity); sq != nil {
			d *= systems.JetDragScale(sq)
		}
		v = v.Scale(1 - d)

		v = v.Limit(motion.MaxSpeed)
		vel.X, vel.Y = v.X, v.Y

		pos.X += v.X
		pos.Y += v.Y
		if pos.X < 0 {
			pos.X = 0
		} else if pos.X > bounds.Width {
			pos.X = bounds.Width
		}
		if pos.Y < 0 {
			pos.Y = 0
		} else if pos.Y > bounds.Height {
			pos.Y = bounds.Height
		}
	}
}

// feedTank drops fish food at the surface on the configured interval.
func (s *Sim) feedTank() {
	interval := s.cfg.Food.SpawnIntervalTicks
	if interval <= 0 || s.tick%int64(interval) != 0 {
		return
	}
	for i := 0; i < s.cfg.Food.SpawnCount; i++ {
		x := s.rng.Float32() * s.cfg.World.Width
		y := s.rng.Float32() * s.cfg.World.Height * 0.02
		s.spawnFood(x, y)
	}
}

// recordTick feeds the telemetry collector and flushes a window when due.
func (s *Sim) recordTick() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	fishEnergies := s.kindEnergies(components.KindFish)
	krillEnergies := s.krillEnergies()
	s.lastWindow = s.collector.Flush(s.tick, telemetry.Populations{
		Fish:      s.counts.Fish,
		Krill:     s.counts.Krill,
		PaleKrill: s.counts.PaleKrill,
		MomKrill:  s.counts.MomKrill,
		Tuna:      s.counts.Tuna,
		Squid:     s.counts.Squid,
		Food:      s.counts.Food,
		Waste:     s.counts.Waste,
		Claims:    s.claims.Len(),
	}, fishEnergies, krillEnergies)
	s.windowFresh = true
}

// kindEnergies samples current energy values for one agent kind.
func (s *Sim) kindEnergies(kind components.Kind) []float64 {
	out := make([]float64, 0, 128)
	for _, item := range s.movers {
		if item.Kind != kind {
			continue
		}
		if en := s.energyMap.Get(item.E); en != nil {
			out = append(out, float64(en.Value))
		}
	}
	return out
}

// krillEnergies samples energy across all krill variants.
func (s *Sim) krillEnergies() []float64 {
	out := make([]float64, 0, 256)
	for _, item := range s.movers {
		if !item.Kind.IsKrill() {
			continue
		}
		if en := s.energyMap.Get(item.E); en != nil {
			out = append(out, float64(en.Value))
		}
	}
	return out
}

// WindowStatsDue returns the window stats flushed by the most recent
// Step, if one was due. The window is reported at most once.
func (s *Sim) WindowStatsDue() (telemetry.WindowStats, bool) {
	if !s.windowFresh {
		return telemetry.WindowStats{}, false
	}
	s.windowFresh = false
	return s.lastWindow, true
}
