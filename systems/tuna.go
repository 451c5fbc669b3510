package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/config"
	"github.com/pelagos/reef/steering"
)

// TunaSystem drives the tuna predators: waypoint patrol, predicted
// intercept pursuit of schooling fish, short-range attack, and a flee
// override whenever a giant squid comes close. A pairwise repulsion among
// tuna is always active, independent of the state machine.
type TunaSystem struct {
	cfg config.TunaConfig

	filter ecs.Filter5[components.Position, components.Velocity, components.Energy, components.Behavior, components.Tuna]

	posMap     *ecs.Map1[components.Position]
	velMap     *ecs.Map1[components.Velocity]
	behMap     *ecs.Map1[components.Behavior]
	tunaMap    *ecs.Map1[components.Tuna]
	speciesMap *ecs.Map1[components.Species]

	scratch []Neighbor
}

// NewTunaSystem creates the tuna system.
func NewTunaSystem(w *ecs.World, cfg config.TunaConfig) *TunaSystem {
	return &TunaSystem{
		cfg:        cfg,
		filter:     *ecs.NewFilter5[components.Position, components.Velocity, components.Energy, components.Behavior, components.Tuna](w),
		posMap:     ecs.NewMap1[components.Position](w),
		velMap:     ecs.NewMap1[components.Velocity](w),
		behMap:     ecs.NewMap1[components.Behavior](w),
		tunaMap:    ecs.NewMap1[components.Tuna](w),
		speciesMap: ecs.NewMap1[components.Species](w),
		scratch:    make([]Neighbor, 0, 64),
	}
}

// InterceptPoint extrapolates the prey position along its velocity by
// distance/huntSpeed ticks, clamped to the configured prediction horizon.
func InterceptPoint(preyPos, preyVel steering.Vec2, dist, huntSpeed, maxPredictionTicks float32) steering.Vec2 {
	if huntSpeed <= 0 {
		return preyPos
	}
	lead := dist / huntSpeed
	if lead > maxPredictionTicks {
		lead = maxPredictionTicks
	}
	return preyPos.Add(preyVel.Scale(lead))
}

// Decide evaluates the tuna state machines.
func (s *TunaSystem) Decide(ctx *Context) {
	dwell := ctx.Cfg.Behavior.MinDwellTicks

	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pos, _, energy, beh, tn := query.Get()

		TickState(beh)
		energy.Gain(-s.cfg.EnergyDecay)
		if tn.DigestTimer > 0 {
			tn.DigestTimer--
		}
		if tn.FleeTimer > 0 {
			tn.FleeTimer--
		}

		// Flee override: an apex predator within the flee radius
		// interrupts any state, with a cooldown before normal behavior
		// resumes.
		if squid, ok := s.nearestSquid(ctx, entity, pos); ok {
			ForceState(beh, components.StateFleeing, ctx.Tick)
			tn.FleeTimer = s.cfg.FleeCooldownTicks
			tn.HasPursuit = true
			tn.PursuitX = squid.X // flee direction source, not a target
			tn.PursuitY = squid.Y
			ctx.Claims.ReleaseHunter(entity)
			continue
		}
		if beh.State == components.StateFleeing {
			if tn.FleeTimer > 0 {
				continue
			}
			ForceState(beh, components.StatePatrolling, ctx.Tick)
			tn.HasPursuit = false
		}

		// Digesting tuna patrol instead of hunting.
		if tn.DigestTimer > 0 {
			s.patrol(ctx, entity, pos, beh, tn, dwell)
			continue
		}

		// Current claimed target, if still valid.
		target, hasTarget := ctx.Claims.TargetOf(entity)
		if hasTarget && (ctx.Queue.Consumed(target) || s.posMap.Get(target) == nil) {
			ctx.Claims.ReleaseHunter(entity)
			hasTarget = false
		}
		if !hasTarget {
			target, hasTarget = s.pickPrey(ctx, entity, pos)
		}
		if !hasTarget {
			s.patrol(ctx, entity, pos, beh, tn, dwell)
			continue
		}

		tp := s.posMap.Get(target)
		tv := s.velMap.Get(target)
		if tp == nil || tv == nil {
			ctx.Claims.ReleaseHunter(entity)
			s.patrol(ctx, entity, pos, beh, tn, dwell)
			continue
		}

		dist := distance(pos.X, pos.Y, tp.X, tp.Y)
		captureRange := s.cfg.CaptureRadius + s.cfg.Size

		switch {
		case dist <= captureRange:
			if ctx.Queue.Consume(target) {
				ctx.Claims.ReleaseHunter(entity)
				energy.Gain(s.cfg.GainFish)
				tn.DigestTimer = s.cfg.DigestTicks
				tn.HasPursuit = false
				// Digestion ends in a waste particle; queued now at the
				// capture position, aged by the nutrient cycle.
				ctx.Queue.SpawnWaste(pos.X, pos.Y, uint8(components.OriginTuna))
				ForceState(beh, components.StatePatrolling, ctx.Tick)
			}

		case dist <= s.cfg.AttackRadius:
			ChangeState(beh, components.StateAttacking, ctx.Tick, dwell)
			tn.AttackTimer++
			if tn.AttackTimer > s.cfg.AttackTimeoutTicks {
				// Attack fizzled; fall back to hunting.
				tn.AttackTimer = 0
				ForceState(beh, components.StateHunting, ctx.Tick)
			}
			tn.HasPursuit = true
			tn.PursuitX = tp.X
			tn.PursuitY = tp.Y

		default:
			ChangeState(beh, components.StateHunting, ctx.Tick, dwell)
			tn.AttackTimer = 0
			predicted := InterceptPoint(
				steering.Vec2{X: tp.X, Y: tp.Y},
				steering.Vec2{X: tv.X, Y: tv.Y},
				dist, s.cfg.HuntSpeed, s.cfg.MaxPredictionTicks,
			)
			tn.HasPursuit = true
			tn.PursuitX = predicted.X
			tn.PursuitY = predicted.Y
		}
	}
}

// nearestSquid returns the position of a squid inside the flee radius.
func (s *TunaSystem) nearestSquid(ctx *Context, entity ecs.Entity, pos *components.Position) (components.Position, bool) {
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, s.cfg.FleeRadius, entity, s.posMap)
	bestDistSq := float32(-1)
	var best components.Position
	for _, n := range s.scratch {
		sp := s.speciesMap.Get(n.E)
		if sp == nil || sp.Kind != components.KindSquid {
			continue
		}
		if bestDistSq < 0 || n.DistSq < bestDistSq {
			bestDistSq = n.DistSq
			best = components.Position{X: pos.X + n.DX, Y: pos.Y + n.DY}
		}
	}
	return best, bestDistSq >= 0
}

// pickPrey selects and claims the nearest unclaimed schooling fish in
// detection range.
func (s *TunaSystem) pickPrey(ctx *Context, entity ecs.Entity, pos *components.Position) (ecs.Entity, bool) {
	s.scratch = ctx.Grid.QueryRadiusInto(s.scratch[:0], pos.X, pos.Y, s.cfg.DetectRadius, entity, s.posMap)
	bestDistSq := float32(-1)
	var best ecs.Entity
	for _, n := range s.scratch {
		sp := s.speciesMap.Get(n.E)
		if sp == nil || sp.Kind != components.KindFish {
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

// patrol keeps or refreshes the wander waypoint.
func (s *TunaSystem) patrol(ctx *Context, _ ecs.Entity, pos *components.Position, beh *components.Behavior, tn *components.Tuna, dwell int32) {
	ChangeState(beh, components.StatePatrolling, ctx.Tick, dwell)
	tn.HasPursuit = false
	tn.WaypointTTL--
	arrived := distanceSq(pos.X, pos.Y, tn.WaypointX, tn.WaypointY) < s.cfg.Size*s.cfg.Size*4
	if tn.WaypointTTL <= 0 || arrived {
		tn.WaypointTTL = s.cfg.WaypointTicks
		tn.WaypointX = NextRand(&tn.Rand) * ctx.Bounds.Width
		depthBand := clamp01(s.cfg.DepthPref + (NextRand(&tn.Rand)-0.5)*0.3)
		tn.WaypointY = depthBand * ctx.Bounds.Height
	}
}

// Force computes the steering force for one tuna. Patrol steering is
// smoothed through a short moving average stored on the component; the
// average is updated here, which is safe because each entity is processed
// by exactly one worker.
func (s *TunaSystem) Force(ctx *Context, e ecs.Entity, scratch *ForceScratch) steering.Vec2 {
	pos := s.posMap.Get(e)
	vel := s.velMap.Get(e)
	beh := s.behMap.Get(e)
	tn := s.tunaMap.Get(e)
	if pos == nil || vel == nil || beh == nil || tn == nil {
		return steering.Vec2{}
	}

	p := steering.Vec2{X: pos.X, Y: pos.Y}
	v := steering.Vec2{X: vel.X, Y: vel.Y}

	var force steering.Vec2
	switch beh.State {
	case components.StateFleeing:
		threat := steering.Vec2{X: tn.PursuitX, Y: tn.PursuitY}
		force = steering.Flee(p, v, threat, s.cfg.MaxSpeed, s.cfg.MaxForce).Scale(s.cfg.FleeWeight)

	case components.StateHunting:
		if tn.HasPursuit {
			target := steering.Vec2{X: tn.PursuitX, Y: tn.PursuitY}
			force = steering.Seek(p, v, target, s.cfg.HuntSpeed, s.cfg.MaxForce)
		}

	case components.StateAttacking:
		if tn.HasPursuit {
			target := steering.Vec2{X: tn.PursuitX, Y: tn.PursuitY}
			force = steering.Seek(p, v, target, s.cfg.MaxSpeed, s.cfg.MaxForce*s.cfg.AttackForceBoost)
		}

	default: // PATROLLING
		waypoint := steering.Vec2{X: tn.WaypointX, Y: tn.WaypointY}
		raw := steering.Arrive(p, v, waypoint, s.cfg.MaxSpeed*0.6, s.cfg.MaxForce, s.cfg.Size*6).
			Add(DepthForce(pos.Y, ctx.Bounds, s.cfg.DepthPref, s.cfg.DepthWeight))
		// Moving average of recent patrol forces kills visible jitter.
		a := s.cfg.SmoothingAlpha
		tn.AvgFX += (raw.X - tn.AvgFX) * a
		tn.AvgFY += (raw.Y - tn.AvgFY) * a
		force = steering.Vec2{X: tn.AvgFX, Y: tn.AvgFY}
	}

	// Pairwise repulsion among tuna: always active, state-independent.
	force = force.Add(s.repulsion(ctx, e, pos, scratch))
	return force
}

// repulsion returns the short-range push away from other tuna.
func (s *TunaSystem) repulsion(ctx *Context, e ecs.Entity, pos *components.Position, scratch *ForceScratch) steering.Vec2 {
	scratch.Neighbors = ctx.Grid.QueryRadiusInto(scratch.Neighbors[:0], pos.X, pos.Y, s.cfg.RepulsionRadius, e, s.posMap)
	var sum steering.Vec2
	for _, n := range scratch.Neighbors {
		sp := s.speciesMap.Get(n.E)
		if sp == nil || sp.Kind != components.KindTuna {
			continue
		}
		d := float32(math.Sqrt(float64(n.DistSq)))
		if d < 1e-3 {
			continue
		}
		falloff := 1 - d/s.cfg.RepulsionRadius
		sum.X -= n.DX / d * falloff
		sum.Y -= n.DY / d * falloff
	}
	return sum.Scale(s.cfg.MaxForce * s.cfg.RepulsionWeight)
}
