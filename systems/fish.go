package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/config"
	"github.com/pelagos/reef/steering"
)

// FishSystem drives the schooling fish: standard boids flocking plus a
// FORAGING -> HUNTING -> FEEDING loop. Fish eat krill, fish food, and
// aged waste; never fresh waste.
type FishSystem struct {
	cfg config.FishConfig

	filter ecs.Filter5[components.Position, components.Velocity, components.Energy, components.Behavior, components.Fish]

	posMap     *ecs.Map1[components.Position]
	velMap     *ecs.Map1[components.Velocity]
	behMap     *ecs.Map1[components.Behavior]
	fishMap    *ecs.Map1[components.Fish]
	speciesMap *ecs.Map1[components.Species]
	foodMap    *ecs.Map1[components.Food]
	wasteMap   *ecs.Map1[components.Waste]

	scratch []Neighbor
}

// NewFishSystem creates the fish system.
func NewFishSystem(w *ecs.World, cfg config.FishConfig) *FishSystem {
	return &FishSystem{
		cfg:        cfg,
		filter:     *ecs.NewFilter5[components.Position, components.Velocity, components.Energy, components.Behavior, components.Fish](w),
		posMap:     ecs.NewMap1[components.Position](w),
		velMap:     ecs.NewMap1[components.Velocity](w),
		behMap:     ecs.NewMap1[components.Behavior](w),
		fishMap:    ecs.NewMap1[components.Fish](w),
		speciesMap: ecs.NewMap1[components.Species](w),
		foodMap:    ecs.NewMap1[components.Food](w),
		wasteMap:   ecs.NewMap1[components.Waste](w),
		scratch:    make([]Neighbor, 0, 64),
	}
}

// edibleValue returns the energy gain and counter weight for an edible
// entity, or ok=false if the fish cannot eat it.
func (s *FishSystem) edibleValue(e ecs.Entity) (gain, weight float32, ok bool) {
	if sp := s.speciesMap.Get(e); sp != nil {
		if sp.Kind.IsKrill() {
			return s.cfg.GainKrill, s.cfg.WeightKrill, true
		}
		return 0, 0, false
	}
	if s.foodMap.HasAll(e) {
		return s.cfg.GainFood, s.cfg.WeightFood, true
	}
	if w := s.wasteMap.Get(e); w != nil && w.Edible() {
		// Waste energy depends on what produced it, not on the eater.
		return w.FeedValue, s.cfg.WeightWaste, true
	}
	return 0, 0, false
}

// Decide evaluates the fish state machines: detection, eating, and the
// feeding cooldown. Steering is computed later in the force pass.
func (s *FishSystem) Decide(ctx *Context) {
	dwell := ctx.Cfg.Behavior.MinDwellTicks

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, _, energy, beh, fish := query.Get()

		TickState(beh)
		fish.Age++
		energy.Gain(-s.cfg.EnergyDecay)

		// Feeding cooldown: eating disabled, movement continues.
		if beh.State == components.StateFeeding {
			fish.FeedTimer--
			if fish.FeedTimer <= 0 {
				ForceState(beh, components.StateForaging, ctx.Tick)
				fish.HasTarget = false
			}
			continue
		}

		// Nearest edible item within the detection radius. Ties resolve
		// by grid iteration order, which is deterministic for a fixed
		// population and seed.
		s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, s.cfg.DetectRadius, entity, s.posMap)
		var best ecs.Entity
		var bestGain, bestWeight float32
		bestDistSq := float32(-1)
		for _, n := range s.scratch {
			if ctx.Queue.Consumed(n.E) {
				continue
			}
			gain, weight, ok := s.edibleValue(n.E)
			if !ok {
				continue
			}
			if bestDistSq < 0 || n.DistSq < bestDistSq {
				best = n.E
				bestDistSq = n.DistSq
				bestGain = gain
				bestWeight = weight
			}
		}

		if bestDistSq < 0 {
			ChangeState(beh, components.StateForaging, ctx.Tick, dwell)
			fish.HasTarget = false
			continue
		}

		eatRange := s.cfg.EatRadius + s.cfg.Size
		if bestDistSq <= eatRange*eatRange {
			if ctx.Queue.Consume(best) {
				s.eat(ctx, entity, pos, energy, fish, bestGain, bestWeight)
				ForceState(beh, components.StateFeeding, ctx.Tick)
				fish.FeedTimer = s.cfg.FeedCooldownTicks
				fish.HasTarget = false
			}
			continue
		}

		bp := s.posMap.Get(best)
		if bp == nil {
			continue
		}
		ChangeState(beh, components.StateHunting, ctx.Tick, dwell)
		fish.HasTarget = true
		fish.TargetX = bp.X
		fish.TargetY = bp.Y
	}
}

// eat applies the energy gain and the waste counter. Crossing the
// randomized threshold spawns one regular waste particle at the fish's
// position and resets the counter with a fresh threshold.
func (s *FishSystem) eat(ctx *Context, e ecs.Entity, pos *components.Position, energy *components.Energy, fish *components.Fish, gain, weight float32) {
	energy.Gain(gain)
	fish.FoodCounter += weight
	if fish.FoodCounter >= fish.WasteThreshold {
		ctx.Queue.SpawnWaste(pos.X, pos.Y, uint8(components.OriginRegular))
		fish.FoodCounter = 0
		fish.WasteThreshold = RollWasteThreshold(&fish.Rand, s.cfg.WasteThresholdMin, s.cfg.WasteThresholdMax)
	}
}

// RollWasteThreshold draws a new waste threshold from the configured
// inclusive range using the agent's own RNG.
func RollWasteThreshold(state *uint64, min, max float32) float32 {
	if max <= min {
		return min
	}
	return min + NextRand(state)*(max-min)
}

// Force computes the steering force for one fish given its current
// state. Pure with respect to simulation state: it reads components and
// the frozen spatial grid only, so the parallel offload can call it
// concurrently and produce forces identical to the sequential pass.
func (s *FishSystem) Force(ctx *Context, e ecs.Entity, scratch *ForceScratch) steering.Vec2 {
	pos := s.posMap.Get(e)
	vel := s.velMap.Get(e)
	beh := s.behMap.Get(e)
	fish := s.fishMap.Get(e)
	if pos == nil || vel == nil || beh == nil || fish == nil {
		return steering.Vec2{}
	}

	p := steering.Vec2{X: pos.X, Y: pos.Y}
	v := steering.Vec2{X: vel.X, Y: vel.Y}

	// Same-species flockmates within perception radius.
	scratch.Neighbors = ctx.Grid.QueryRadiusInto(scratch.Neighbors[:0], pos.X, pos.Y, s.cfg.PerceptionRadius, e, s.posMap)
	scratch.Flock = scratch.Flock[:0]
	for _, n := range scratch.Neighbors {
		sp := s.speciesMap.Get(n.E)
		if sp == nil || sp.Kind != components.KindFish {
			continue
		}
		nv := s.velMap.Get(n.E)
		if nv == nil {
			continue
		}
		scratch.Flock = append(scratch.Flock, steering.Neighbor{
			Pos: steering.Vec2{X: pos.X + n.DX, Y: pos.Y + n.DY},
			Vel: steering.Vec2{X: nv.X, Y: nv.Y},
		})
	}

	sep := steering.Separation(p, v, scratch.Flock, s.cfg.SeparationRadius, s.cfg.MaxSpeed, s.cfg.MaxForce)
	ali := steering.Alignment(v, scratch.Flock, s.cfg.MaxSpeed, s.cfg.MaxForce)
	coh := steering.Cohesion(p, v, scratch.Flock, s.cfg.MaxSpeed, s.cfg.MaxForce)

	force := sep.Scale(s.cfg.SeparationWeight).
		Add(ali.Scale(s.cfg.AlignmentWeight)).
		Add(coh.Scale(s.cfg.CohesionWeight))

	if beh.State == components.StateHunting && fish.HasTarget {
		target := steering.Vec2{X: fish.TargetX, Y: fish.TargetY}
		force = force.Add(steering.Seek(p, v, target, s.cfg.MaxSpeed, s.cfg.MaxForce).Scale(s.cfg.SeekWeight))
	}

	force = force.Add(DepthForce(pos.Y, ctx.Bounds, s.cfg.DepthPref, s.cfg.DepthWeight))
	return force
}

// CheckEvolution polls fry/juvenile growth and queues stage transform
// requests. The system signals intent only; the population manager
// performs the remove+insert.
func (s *FishSystem) CheckEvolution(ctx *Context) {
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		_, _, _, _, fish := query.Get()

		switch fish.Stage {
		case components.StageFry:
			if fish.Age >= s.cfg.FryTicks {
				ctx.Queue.RequestTransform(entity, TransformFishStage)
			}
		case components.StageJuvenile:
			if fish.Age >= s.cfg.JuvenileTicks {
				ctx.Queue.RequestTransform(entity, TransformFishStage)
			}
		}
	}
}
