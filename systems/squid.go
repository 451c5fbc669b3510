package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/config"
	"github.com/pelagos/reef/steering"
)

// SquidSystem drives the giant squid apex predators. Squids patrol the
// deep band on gentle fin drive, hunt tuna with cooldown-gated jet
// bursts, claim prey so two squids never chase the same tuna, and back
// off from each other via a deterministic positional tie-break.
type SquidSystem struct {
	cfg config.SquidConfig

	filter ecs.Filter5[components.Position, components.Velocity, components.Energy, components.Behavior, components.Squid]

	posMap     *ecs.Map1[components.Position]
	velMap     *ecs.Map1[components.Velocity]
	behMap     *ecs.Map1[components.Behavior]
	squidMap   *ecs.Map1[components.Squid]
	speciesMap *ecs.Map1[components.Species]

	scratch []Neighbor
}

// NewSquidSystem creates the squid system.
func NewSquidSystem(w *ecs.World, cfg config.SquidConfig) *SquidSystem {
	return &SquidSystem{
		cfg:        cfg,
		filter:     *ecs.NewFilter5[components.Position, components.Velocity, components.Energy, components.Behavior, components.Squid](w),
		posMap:     ecs.NewMap1[components.Position](w),
		velMap:     ecs.NewMap1[components.Velocity](w),
		behMap:     ecs.NewMap1[components.Behavior](w),
		squidMap:   ecs.NewMap1[components.Squid](w),
		speciesMap: ecs.NewMap1[components.Species](w),
		scratch:    make([]Neighbor, 0, 32),
	}
}

// positionKey combines a squid's coordinates into the scalar used for the
// territorial tie-break. Comparing keys is antisymmetric, so of two
// squids detecting each other exactly one retreats; swapping their
// positions reverses which one.
func positionKey(x, y, worldWidth float32) float64 {
	return float64(y)*float64(worldWidth) + float64(x)
}

// Decide evaluates the squid state machines.
func (s *SquidSystem) Decide(ctx *Context) {
	dwell := ctx.Cfg.Behavior.MinDwellTicks

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, _, energy, beh, sq := query.Get()

		TickState(beh)
		energy.Gain(-s.cfg.EnergyDecay)
		if sq.JetTicks > 0 {
			sq.JetTicks--
		}
		if sq.JetCooldown > 0 {
			sq.JetCooldown--
		}
		if sq.WasteTimer > 0 {
			sq.WasteTimer--
		}

		// Carrying prey: retreat to the deep band, consume, excrete.
		if sq.Grabbed {
			sq.ConsumeTimer--
			if sq.ConsumeTimer <= 0 {
				ctx.Queue.SpawnWaste(pos.X, pos.Y, uint8(components.OriginSquid))
				sq.WasteTimer = s.cfg.WasteCooldownTicks
				sq.Grabbed = false
				ForceState(beh, components.StatePatrolling, ctx.Tick)
			} else {
				ForceState(beh, components.StateRetreating, ctx.Tick)
				s.setRetreatGoal(ctx, pos, sq)
			}
			continue
		}

		// Territorial avoidance between squids.
		if rival, rivalPos, ok := s.nearestRival(ctx, entity, pos); ok {
			if s.shouldYield(ctx, entity, pos, rival, rivalPos) {
				ForceState(beh, components.StateRetreating, ctx.Tick)
				sq.RetreatTimer = s.cfg.RetreatTicks
				ctx.Claims.ReleaseHunter(entity)
				sq.HasGoal = true
				// Away from the rival, toward the deep band.
				sq.GoalX = pos.X + (pos.X - rivalPos.X)
				sq.GoalY = s.cfg.DepthPref * ctx.Bounds.Height
				continue
			}
		}
		if sq.RetreatTimer > 0 {
			sq.RetreatTimer--
			if sq.RetreatTimer > 0 {
				continue
			}
			ForceState(beh, components.StatePatrolling, ctx.Tick)
		}

		// Prey selection is skipped entirely for a fixed cooldown after
		// the squid last excreted waste.
		if sq.WasteTimer > 0 {
			s.patrol(ctx, beh, pos, sq, dwell)
			continue
		}

		target, hasTarget := ctx.Claims.TargetOf(entity)
		if hasTarget && (ctx.Queue.Consumed(target) || s.posMap.Get(target) == nil) {
			// Stale claim: the prey is gone. Clear it and fall back to
			// patrol rather than propagating a fault.
			ctx.Claims.ReleaseHunter(entity)
			hasTarget = false
		}
		if !hasTarget {
			target, hasTarget = s.pickPrey(ctx, entity, pos)
		}
		if !hasTarget {
			s.patrol(ctx, beh, pos, sq, dwell)
			continue
		}

		tp := s.posMap.Get(target)
		if tp == nil {
			ctx.Claims.ReleaseHunter(entity)
			s.patrol(ctx, beh, pos, sq, dwell)
			continue
		}

		dist := distance(pos.X, pos.Y, tp.X, tp.Y)

		// Hunting commitment fades the depth preference as the squid
		// closes in, so it can follow prey into shallow water.
		sq.DepthFade = clamp01((dist - s.cfg.NearFadeDist) / (s.cfg.FarFadeDist - s.cfg.NearFadeDist))

		grabRange := s.cfg.GrabRadius + s.cfg.Size*0.5
		switch {
		case dist <= grabRange:
			if ctx.Queue.Consume(target) {
				ctx.Claims.ReleaseHunter(entity)
				energy.Gain(s.cfg.GainTuna)
				sq.Grabbed = true
				sq.ConsumeTimer = s.cfg.ConsumeTicks
				ForceState(beh, components.StateRetreating, ctx.Tick)
				s.setRetreatGoal(ctx, pos, sq)
			}

		case dist <= s.cfg.AttackRadius:
			ChangeState(beh, components.StateAttacking, ctx.Tick, dwell)
			sq.HasGoal = true
			sq.GoalX = tp.X
			sq.GoalY = tp.Y
			// Tentacle micro-adjustments only at very close range.
			if dist <= s.cfg.TentacleRadius {
				sq.GoalX += (NextRand(&sq.Rand) - 0.5) * s.cfg.TentacleJitter * s.cfg.TentacleRadius
				sq.GoalY += (NextRand(&sq.Rand) - 0.5) * s.cfg.TentacleJitter * s.cfg.TentacleRadius
			}

		default:
			ChangeState(beh, components.StateHunting, ctx.Tick, dwell)
			sq.HasGoal = true
			sq.GoalX = tp.X
			sq.GoalY = tp.Y
			// Jet bursts fire only at range, gated by their cooldown.
			if sq.JetCooldown == 0 && sq.JetTicks == 0 && dist > s.cfg.JetRange {
				sq.JetTicks = s.cfg.JetTicks
				sq.JetCooldown = s.cfg.JetCooldownTicks
			}
		}
	}
}

// nearestRival returns the closest other squid within the rival radius.
func (s *SquidSystem) nearestRival(ctx *Context, entity ecs.Entity, pos *components.Position) (ecs.Entity, components.Position, bool) {
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, s.cfg.RivalRadius, entity, s.posMap)
	bestDistSq := float32(-1)
	var best ecs.Entity
	var bestPos components.Position
	for _, n := range s.scratch {
		sp := s.speciesMap.Get(n.E)
		if sp == nil || sp.Kind != components.KindSquid {
			continue
		}
		if bestDistSq < 0 || n.DistSq < bestDistSq {
			bestDistSq = n.DistSq
			best = n.E
			bestPos = components.Position{X: pos.X + n.DX, Y: pos.Y + n.DY}
		}
	}
	return best, bestPos, bestDistSq >= 0
}

// shouldYield decides which of two mutually detecting squids retreats.
// The one with the larger positional key yields; identical keys fall back
// to entity ID so the outcome is still exactly one retreat.
func (s *SquidSystem) shouldYield(ctx *Context, self ecs.Entity, selfPos *components.Position, rival ecs.Entity, rivalPos components.Position) bool {
	selfKey := positionKey(selfPos.X, selfPos.Y, ctx.Bounds.Width)
	rivalKey := positionKey(rivalPos.X, rivalPos.Y, ctx.Bounds.Width)
	if selfKey != rivalKey {
		return selfKey > rivalKey
	}
	return self.ID() > rival.ID()
}

// setRetreatGoal aims the squid at its deep band, drifting away from the
// tank center so retreats disperse.
func (s *SquidSystem) setRetreatGoal(ctx *Context, pos *components.Position, sq *components.Squid) {
	sq.HasGoal = true
	sq.GoalX = pos.X
	sq.GoalY = s.cfg.DepthPref * ctx.Bounds.Height
}

// pickPrey selects and claims the nearest unclaimed tuna in detection
// range. Targets already claimed by another squid are skipped, so at most
// one hunter ever commits to a given prey.
func (s *SquidSystem) pickPrey(ctx *Context, entity ecs.Entity, pos *components.Position) (ecs.Entity, bool) {
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, s.cfg.DetectRadius, entity, s.posMap)
	bestDistSq := float32(-1)
	var best ecs.Entity
	for _, n := range s.scratch {
		sp := s.speciesMap.Get(n.E)
		if sp == nil || sp.Kind != components.KindTuna {
			continue
		}
		if ctx.Queue.Consumed(n.E) || ctx.Claims.Claimed(n.E, entity) {
			continue
		}
		if bestDistSq < 0 || n.DistSq < bestDistSq {
			bestDistSq = n.DistSq
			best = n.E
		}
	}
	if bestDistSq < 0 {
		return ecs.Entity{}, false
	}
	if !ctx.Claims.Claim(best, entity) {
		return ecs.Entity{}, false
	}
	return best, true
}

// patrol drifts the squid slowly through its deep band.
func (s *SquidSystem) patrol(ctx *Context, beh *components.Behavior, pos *components.Position, sq *components.Squid, dwell int32) {
	ChangeState(beh, components.StatePatrolling, ctx.Tick, dwell)
	sq.DepthFade = 1
	arrived := sq.HasGoal && distanceSq(pos.X, pos.Y, sq.GoalX, sq.GoalY) < s.cfg.Size*s.cfg.Size
	if !sq.HasGoal || arrived {
		sq.HasGoal = true
		sq.GoalX = NextRand(&sq.Rand) * ctx.Bounds.Width
		band := clamp01(s.cfg.DepthPref + (NextRand(&sq.Rand)-0.5)*0.2)
		sq.GoalY = band * ctx.Bounds.Height
	}
}

// Force computes the steering force for one squid. Jet bursts deliver a
// high force along the pursuit direction; otherwise the fin drive applies
// a gentle continuous force.
func (s *SquidSystem) Force(ctx *Context, e ecs.Entity, _ *ForceScratch) steering.Vec2 {
	pos := s.posMap.Get(e)
	vel := s.velMap.Get(e)
	beh := s.behMap.Get(e)
	sq := s.squidMap.Get(e)
	if pos == nil || vel == nil || beh == nil || sq == nil {
		return steering.Vec2{}
	}

	p := steering.Vec2{X: pos.X, Y: pos.Y}
	v := steering.Vec2{X: vel.X, Y: vel.Y}

	var force steering.Vec2
	switch beh.State {
	case components.StateHunting, components.StateAttacking:
		if sq.HasGoal {
			goal := steering.Vec2{X: sq.GoalX, Y: sq.GoalY}
			drive := s.cfg.FinForce
			if sq.JetTicks > 0 {
				drive = s.cfg.JetForce
			}
			if beh.State == components.StateAttacking {
				drive = s.cfg.JetForce // tentacle lunges use full force
			}
			dir := goal.Sub(p)
			if dir.LenSq() > 1e-12 {
				desired := dir.WithLen(s.cfg.MaxSpeed)
				force = desired.Sub(v).Limit(drive)
			}
		}
		// Depth preference fades out on a committed approach.
		force = force.Add(DepthForce(pos.Y, ctx.Bounds, s.cfg.DepthPref, s.cfg.DepthWeight).Scale(sq.DepthFade))

	case components.StateRetreating:
		if sq.HasGoal {
			goal := steering.Vec2{X: sq.GoalX, Y: sq.GoalY}
			force = steering.Arrive(p, v, goal, s.cfg.MaxSpeed*0.5, s.cfg.FinForce, s.cfg.Size*4)
		}
		force = force.Add(DepthForce(pos.Y, ctx.Bounds, s.cfg.DepthPref, s.cfg.DepthWeight))

	default: // PATROLLING
		if sq.HasGoal {
			goal := steering.Vec2{X: sq.GoalX, Y: sq.GoalY}
			force = steering.Arrive(p, v, goal, s.cfg.MaxSpeed*0.35, s.cfg.FinForce, s.cfg.Size*4)
		}
		force = force.Add(DepthForce(pos.Y, ctx.Bounds, s.cfg.DepthPref, s.cfg.DepthWeight))
	}

	return force
}

// JetDragScale returns the physics drag multiplier for a squid: drag is
// reduced while a jet burst is active.
func JetDragScale(sq *components.Squid) float32 {
	if sq != nil && sq.JetTicks > 0 {
		return 0.4
	}
	return 1
}
