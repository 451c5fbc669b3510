package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/config"
	"github.com/pelagos/reef/steering"
)

// KrillSystem drives all krill variants (pale, adult, mom) through the
// FORAGING / SEEKING / EATING / FLEEING / RESTING / SWARMING / MIGRATING
// machine. Per-tick priority, highest first: predator threat, in-range
// eating, low-energy rest, hunger-driven seeking, swarm-driven
// swarming/migrating, default foraging.
type KrillSystem struct {
	cfg config.KrillConfig

	filter ecs.Filter5[components.Position, components.Velocity, components.Energy, components.Behavior, components.Krill]

	posMap     *ecs.Map1[components.Position]
	velMap     *ecs.Map1[components.Velocity]
	behMap     *ecs.Map1[components.Behavior]
	krillMap   *ecs.Map1[components.Krill]
	speciesMap *ecs.Map1[components.Species]
	fishMap    *ecs.Map1[components.Fish]
	foodMap    *ecs.Map1[components.Food]
	wasteMap   *ecs.Map1[components.Waste]

	scratch []Neighbor
}

// NewKrillSystem creates the krill system.
func NewKrillSystem(w *ecs.World, cfg config.KrillConfig) *KrillSystem {
	return &KrillSystem{
		cfg:        cfg,
		filter:     *ecs.NewFilter5[components.Position, components.Velocity, components.Energy, components.Behavior, components.Krill](w),
		posMap:     ecs.NewMap1[components.Position](w),
		velMap:     ecs.NewMap1[components.Velocity](w),
		behMap:     ecs.NewMap1[components.Behavior](w),
		krillMap:   ecs.NewMap1[components.Krill](w),
		speciesMap: ecs.NewMap1[components.Species](w),
		fishMap:    ecs.NewMap1[components.Fish](w),
		foodMap:    ecs.NewMap1[components.Food](w),
		wasteMap:   ecs.NewMap1[components.Waste](w),
		scratch:    make([]Neighbor, 0, 64),
	}
}

// threatBase returns the base threat constant for a predator kind, or 0
// for non-predators. Apex predators rank highest, juvenile-and-up fish
// next, tuna lowest.
func (s *KrillSystem) threatBase(e ecs.Entity) float32 {
	sp := s.speciesMap.Get(e)
	if sp == nil {
		return 0
	}
	switch sp.Kind {
	case components.KindSquid:
		return s.cfg.ThreatSquid
	case components.KindTuna:
		return s.cfg.ThreatTuna
	case components.KindFish:
		if f := s.fishMap.Get(e); f != nil && f.Stage != components.StageFry {
			return s.cfg.ThreatFish
		}
	}
	return 0
}

// Decide evaluates the krill state machines.
func (s *KrillSystem) Decide(ctx *Context) {
	dwell := ctx.Cfg.Behavior.MinDwellTicks

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, _, energy, beh, kr := query.Get()

		TickState(beh)
		kr.Age++
		kr.Hunger = clamp01(kr.Hunger + s.cfg.HungerRate)

		decay := s.cfg.EnergyDecay
		if beh.State == components.StateResting {
			decay *= s.cfg.RestDecayScale
		}
		energy.Gain(-decay)

		if sp := s.speciesMap.Get(entity); sp != nil && sp.Kind == components.KindMomKrill && kr.Gestation > 0 {
			kr.Gestation--
		}

		// Rest cooldown counts back up to zero while not resting.
		if beh.State != components.StateResting && kr.RestTimer < 0 {
			kr.RestTimer++
		}

		// 1. Predator threat: base constant by kind, scaled linearly by
		// inverse proximity. Fleeing overrides everything, dwell included.
		s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, s.cfg.ThreatRadius, entity, s.posMap)
		var maxThreat float32
		var threatX, threatY, threatSum float32
		for _, n := range s.scratch {
			base := s.threatBase(n.E)
			if base == 0 {
				continue
			}
			d := float32(math.Sqrt(float64(n.DistSq)))
			t := base * (1 - d/s.cfg.ThreatRadius)
			if t <= 0 {
				continue
			}
			if t > maxThreat {
				maxThreat = t
			}
			threatX += (pos.X + n.DX) * t
			threatY += (pos.Y + n.DY) * t
			threatSum += t
		}
		if maxThreat > s.cfg.FleeThreshold {
			ForceState(beh, components.StateFleeing, ctx.Tick)
			kr.HasFlee = true
			kr.FleeX = threatX / threatSum
			kr.FleeY = threatY / threatSum
			continue
		}
		kr.HasFlee = false

		// 2. In-range eating.
		if s.tryEat(ctx, entity, pos, energy, kr, beh) {
			continue
		}

		// 3. Low-energy rest. Mid-migration the pause substitute is
		// SWARMING, so swarm cohesion is not broken by scattered rests.
		if energy.Value < s.cfg.RestEnergyThreshold && kr.RestTimer == 0 {
			if beh.State == components.StateMigrating {
				ChangeState(beh, components.StateSwarming, ctx.Tick, dwell)
				continue
			}
			if ChangeState(beh, components.StateResting, ctx.Tick, dwell) {
				kr.RestTimer = s.cfg.RestTicks
				continue
			}
		}
		if beh.State == components.StateResting {
			kr.RestTimer--
			if kr.RestTimer <= 0 {
				ForceState(beh, components.StateForaging, ctx.Tick)
				// Cooldown before the next rest can trigger.
				kr.RestTimer = -s.cfg.RestTicks * 3
			}
			continue
		}

		// 4. Hunger-driven seeking.
		if kr.Hunger > s.cfg.HungerSeekThreshold && s.findSeekTarget(ctx, entity, pos, kr) {
			ChangeState(beh, components.StateSeeking, ctx.Tick, dwell)
			continue
		}
		kr.HasSeek = false

		// 5. Swarm quorum drives SWARMING or MIGRATING. Falling below
		// quorum mid-migration does not abort a migration in progress.
		s.computeSwarm(ctx, entity, pos, kr)
		if int(kr.SwarmN) >= s.cfg.SwarmQuorum || beh.State == components.StateMigrating {
			jitter := JitterAt(kr.Rand, 0xA1)
			targetFrac := ctx.Migration.TargetDepthFrac(jitter)
			kr.MigDepth = targetFrac
			targetY := targetFrac * ctx.Bounds.Height
			if absDiff(pos.Y, targetY) > ctx.Bounds.Height*0.08 {
				ChangeState(beh, components.StateMigrating, ctx.Tick, dwell)
			} else {
				ChangeState(beh, components.StateSwarming, ctx.Tick, dwell)
			}
			continue
		}

		// 6. Default foraging with a slow per-agent wander.
		ChangeState(beh, components.StateForaging, ctx.Tick, dwell)
		if beh.State == components.StateForaging && kr.Age%60 == 0 {
			a := float64(NextRand(&kr.Rand)) * 2 * math.Pi
			kr.WanderX = float32(math.Cos(a))
			kr.WanderY = float32(math.Sin(a))
		}
	}
}

// tryEat consumes the nearest edible item in eat range. Krill eat food
// particles and aged waste.
func (s *KrillSystem) tryEat(ctx *Context, entity ecs.Entity, pos *components.Position, energy *components.Energy, kr *components.Krill, beh *components.Behavior) bool {
	eatRange := s.cfg.EatRadius + s.cfg.Size
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, eatRange, entity, s.posMap)
	for _, n := range s.scratch {
		if ctx.Queue.Consumed(n.E) {
			continue
		}
		var gain float32
		if s.foodMap.HasAll(n.E) {
			gain = s.cfg.GainFood
		} else if w := s.wasteMap.Get(n.E); w != nil && w.Edible() {
			gain = w.FeedValue
		} else {
			continue
		}
		if !ctx.Queue.Consume(n.E) {
			continue
		}
		energy.Gain(gain)
		kr.Hunger = clamp01(kr.Hunger - gain/s.cfg.EnergyMax)
		ForceState(beh, components.StateEating, ctx.Tick)
		return true
	}
	return false
}

// findSeekTarget stores the nearest edible within the seek radius.
func (s *KrillSystem) findSeekTarget(ctx *Context, entity ecs.Entity, pos *components.Position, kr *components.Krill) bool {
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, s.cfg.SeekRadius, entity, s.posMap)
	bestDistSq := float32(-1)
	var bx, by float32
	for _, n := range s.scratch {
		if ctx.Queue.Consumed(n.E) {
			continue
		}
		edible := s.foodMap.HasAll(n.E)
		if !edible {
			if w := s.wasteMap.Get(n.E); w != nil && w.Edible() {
				edible = true
			}
		}
		if !edible {
			continue
		}
		if bestDistSq < 0 || n.DistSq < bestDistSq {
			bestDistSq = n.DistSq
			bx = pos.X + n.DX
			by = pos.Y + n.DY
		}
	}
	if bestDistSq < 0 {
		return false
	}
	kr.HasSeek = true
	kr.SeekX = bx
	kr.SeekY = by
	return true
}

// computeSwarm recomputes the per-tick swarm snapshot: same-species
// neighbors within the swarm radius, their centroid, and the count of
// those not fleeing. Derived state only, never persisted across ticks.
func (s *KrillSystem) computeSwarm(ctx *Context, entity ecs.Entity, pos *components.Position, kr *components.Krill) {
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, s.cfg.SwarmRadius, entity, s.posMap)
	var cx, cy float32
	count := int32(0)
	for _, n := range s.scratch {
		sp := s.speciesMap.Get(n.E)
		if sp == nil || !sp.Kind.IsKrill() {
			continue
		}
		if nb := s.behMap.Get(n.E); nb != nil && nb.State == components.StateFleeing {
			continue
		}
		cx += pos.X + n.DX
		cy += pos.Y + n.DY
		count++
	}
	kr.SwarmN = count
	if count > 0 {
		kr.SwarmX = cx / float32(count)
		kr.SwarmY = cy / float32(count)
	} else {
		kr.SwarmX = pos.X
		kr.SwarmY = pos.Y
	}
}

// Force computes the steering force for one krill given its current
// state. Read-only; safe for the parallel offload.
func (s *KrillSystem) Force(ctx *Context, e ecs.Entity, scratch *ForceScratch) steering.Vec2 {
	pos := s.posMap.Get(e)
	vel := s.velMap.Get(e)
	beh := s.behMap.Get(e)
	kr := s.krillMap.Get(e)
	if pos == nil || vel == nil || beh == nil || kr == nil {
		return steering.Vec2{}
	}

	p := steering.Vec2{X: pos.X, Y: pos.Y}
	v := steering.Vec2{X: vel.X, Y: vel.Y}

	scratch.Neighbors = ctx.Grid.QueryRadiusInto(scratch.Neighbors[:0], pos.X, pos.Y, s.cfg.SwarmRadius, e, s.posMap)
	scratch.Flock = scratch.Flock[:0]
	for _, n := range scratch.Neighbors {
		sp := s.speciesMap.Get(n.E)
		if sp == nil || !sp.Kind.IsKrill() {
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

	sep := steering.Separation(p, v, scratch.Flock, s.cfg.SeparationRadius, s.cfg.MaxSpeed, s.cfg.MaxForce).
		Scale(s.cfg.SeparationWeight)

	var force steering.Vec2
	switch beh.State {
	case components.StateFleeing:
		if kr.HasFlee {
			threat := steering.Vec2{X: kr.FleeX, Y: kr.FleeY}
			force = steering.Flee(p, v, threat, s.cfg.MaxSpeed, s.cfg.MaxForce).Scale(s.cfg.FleeWeight)
		}
		force = force.Add(sep)

	case components.StateResting:
		// Brake and drift down gently.
		force = v.Scale(-1).Limit(s.cfg.MaxForce * 0.5)
		force.Y += s.cfg.MaxForce * 0.1

	case components.StateSeeking, components.StateEating:
		if kr.HasSeek {
			target := steering.Vec2{X: kr.SeekX, Y: kr.SeekY}
			force = steering.Arrive(p, v, target, s.cfg.MaxSpeed, s.cfg.MaxForce, s.cfg.EatRadius*4).
				Scale(s.cfg.SeekWeight)
		}
		force = force.Add(sep)

	case components.StateSwarming:
		centroid := steering.Vec2{X: kr.SwarmX, Y: kr.SwarmY}
		force = steering.Seek(p, v, centroid, s.cfg.MaxSpeed, s.cfg.MaxForce).Scale(s.cfg.SwarmWeight).
			Add(steering.Alignment(v, scratch.Flock, s.cfg.MaxSpeed, s.cfg.MaxForce).Scale(s.cfg.AlignmentWeight)).
			Add(sep)
		force = force.Add(DepthForce(pos.Y, ctx.Bounds, s.cfg.DepthPref, s.cfg.DepthWeight))

	case components.StateMigrating:
		// Migration force replaces the idle depth preference entirely.
		force = DepthForceToward(pos.Y, ctx.Bounds, kr.MigDepth, s.cfg.MaxForce).
			Scale(ctx.Migration.ForceWeight())
		centroid := steering.Vec2{X: kr.SwarmX, Y: kr.SwarmY}
		force = force.
			Add(steering.Seek(p, v, centroid, s.cfg.MaxSpeed, s.cfg.MaxForce).Scale(s.cfg.SwarmWeight * 0.5)).
			Add(sep)

	default: // FORAGING
		wander := steering.Vec2{X: kr.WanderX, Y: kr.WanderY}.Scale(s.cfg.MaxForce * 0.4)
		force = wander.
			Add(sep).
			Add(DepthForce(pos.Y, ctx.Bounds, s.cfg.DepthPref, s.cfg.DepthWeight))
	}

	return force
}

// CheckMaturation queues pale-krill maturation transforms. Poll method:
// the population manager consumes the requests once per tick.
func (s *KrillSystem) CheckMaturation(ctx *Context) {
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		_, _, _, _, kr := query.Get()

		sp := s.speciesMap.Get(entity)
		if sp == nil || sp.Kind != components.KindPaleKrill {
			continue
		}
		if kr.Age >= s.cfg.MaturationTicks {
			ctx.Queue.RequestTransform(entity, TransformPaleToKrill)
		}
	}
}

// CheckReproduction queues krill->mom promotions and mom brood releases.
func (s *KrillSystem) CheckReproduction(ctx *Context) {
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		_, _, energy, _, kr := query.Get()

		sp := s.speciesMap.Get(entity)
		if sp == nil {
			continue
		}
		switch sp.Kind {
		case components.KindKrill:
			if energy.Value >= s.cfg.ReproEnergy && kr.Age >= s.cfg.ReproAgeTicks {
				ctx.Queue.RequestTransform(entity, TransformKrillToMom)
			}
		case components.KindMomKrill:
			if kr.Gestation <= 0 {
				ctx.Queue.RequestTransform(entity, TransformMomSpawn)
			}
		}
	}
}

// absDiff returns |a - b|.
func absDiff(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}
