package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/systems"
)

// spawnInitialPopulation creates the starting entities from the
// configured counts.
func (s *Sim) spawnInitialPopulation() {
	cfg := s.cfg
	w, h := cfg.World.Width, cfg.World.Height

	for i := 0; i < cfg.Fish.Count; i++ {
		x := s.rng.Float32() * w
		y := (cfg.Fish.DepthPref + (s.rng.Float32()-0.5)*0.3) * h
		s.spawnFish(x, y, components.StageAdult)
	}
	for i := 0; i < cfg.Krill.Count; i++ {
		x := s.rng.Float32() * w
		y := (cfg.Krill.DepthPref + (s.rng.Float32()-0.5)*0.2) * h
		s.spawnKrill(x, y, 0, 0, components.KindKrill)
	}
	for i := 0; i < cfg.Krill.PaleCount; i++ {
		x := s.rng.Float32() * w
		y := (cfg.Krill.DepthPref + (s.rng.Float32()-0.5)*0.2) * h
		s.spawnKrill(x, y, 0, 0, components.KindPaleKrill)
	}
	for i := 0; i < cfg.Tuna.Count; i++ {
		x := s.rng.Float32() * w
		y := (cfg.Tuna.DepthPref + (s.rng.Float32()-0.5)*0.3) * h
		s.spawnTuna(x, y)
	}
	for i := 0; i < cfg.Squid.Count; i++ {
		x := s.rng.Float32() * w
		y := (cfg.Squid.DepthPref + (s.rng.Float32()-0.5)*0.2) * h
		s.spawnSquid(x, y)
	}
}

// clampToTank keeps a spawn position inside the world bounds.
func (s *Sim) clampToTank(x, y float32) (float32, float32) {
	if x < 0 {
		x = 0
	} else if x > s.cfg.World.Width {
		x = s.cfg.World.Width
	}
	if y < 0 {
		y = 0
	} else if y > s.cfg.World.Height {
		y = s.cfg.World.Height
	}
	return x, y
}

func (s *Sim) spawnFish(x, y float32, stage components.FishStage) ecs.Entity {
	cfg := s.cfg.Fish
	x, y = s.clampToTank(x, y)

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{X: (s.rng.Float32() - 0.5) * cfg.MaxSpeed, Y: (s.rng.Float32() - 0.5) * cfg.MaxSpeed}
	st := components.Steering{}
	motion := components.Motion{MaxSpeed: cfg.MaxSpeed, MaxForce: cfg.MaxForce, Size: cfg.Size}
	energy := components.Energy{Value: cfg.EnergyMax * 0.7, Max: cfg.EnergyMax}
	beh := components.Behavior{State: components.StateForaging}
	sp := components.Species{Kind: components.KindFish}
	fish := components.Fish{
		Stage: stage,
		Rand:  s.rng.Uint64() | 1,
	}
	fish.WasteThreshold = systems.RollWasteThreshold(&fish.Rand, cfg.WasteThresholdMin, cfg.WasteThresholdMax)

	e := s.fishMapper.NewEntity(&pos, &vel, &st, &motion, &energy, &beh, &sp, &fish)
	s.counts.Fish++
	return e
}

func (s *Sim) spawnKrill(x, y, vx, vy float32, kind components.Kind) ecs.Entity {
	cfg := s.cfg.Krill
	x, y = s.clampToTank(x, y)

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{X: vx, Y: vy}
	st := components.Steering{}
	motion := components.Motion{MaxSpeed: cfg.MaxSpeed, MaxForce: cfg.MaxForce, Size: cfg.Size}
	energy := components.Energy{Value: cfg.EnergyMax * 0.6, Max: cfg.EnergyMax}
	beh := components.Behavior{State: components.StateForaging}
	sp := components.Species{Kind: kind}
	kr := components.Krill{Rand: s.rng.Uint64() | 1}

	e := s.krillMapper.NewEntity(&pos, &vel, &st, &motion, &energy, &beh, &sp, &kr)
	s.bumpKrillCount(kind, 1)
	return e
}

func (s *Sim) spawnTuna(x, y float32) ecs.Entity {
	cfg := s.cfg.Tuna
	x, y = s.clampToTank(x, y)

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{X: (s.rng.Float32() - 0.5) * cfg.MaxSpeed, Y: 0}
	st := components.Steering{}
	motion := components.Motion{MaxSpeed: cfg.MaxSpeed, MaxForce: cfg.MaxForce, Size: cfg.Size}
	energy := components.Energy{Value: cfg.EnergyMax * 0.7, Max: cfg.EnergyMax}
	beh := components.Behavior{State: components.StatePatrolling}
	sp := components.Species{Kind: components.KindTuna}
	tn := components.Tuna{Rand: s.rng.Uint64() | 1}

	e := s.tunaMapper.NewEntity(&pos, &vel, &st, &motion, &energy, &beh, &sp, &tn)
	s.counts.Tuna++
	return e
}

func (s *Sim) spawnSquid(x, y float32) ecs.Entity {
	cfg := s.cfg.Squid
	x, y = s.clampToTank(x, y)

	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	st := components.Steering{}
	motion := components.Motion{MaxSpeed: cfg.MaxSpeed, MaxForce: cfg.MaxForce, Size: cfg.Size}
	energy := components.Energy{Value: cfg.EnergyMax * 0.8, Max: cfg.EnergyMax}
	beh := components.Behavior{State: components.StatePatrolling}
	sp := components.Species{Kind: components.KindSquid}
	sq := components.Squid{Rand: s.rng.Uint64() | 1, DepthFade: 1}

	e := s.squidMapper.NewEntity(&pos, &vel, &st, &motion, &energy, &beh, &sp, &sq)
	s.counts.Squid++
	return e
}

func (s *Sim) spawnFood(x, y float32) ecs.Entity {
	x, y = s.clampToTank(x, y)
	pos := components.Position{X: x, Y: y}
	food := components.Food{FeedValue: s.cfg.Food.FeedValue}
	e := s.foodMapper.NewEntity(&pos, &food)
	s.counts.Food++
	return e
}

func (s *Sim) spawnWaste(x, y float32, origin components.WasteOrigin) ecs.Entity {
	x, y = s.clampToTank(x, y)
	pos := components.Position{X: x, Y: y}
	waste := components.Waste{
		Origin:    origin,
		State:     components.WasteFresh,
		FeedValue: systems.FeedValueFor(s.cfg.Waste, origin),
	}
	e := s.wasteMapper.NewEntity(&pos, &waste)
	s.counts.Waste++
	s.collector.RecordWasteSpawn(origin)
	return e
}

func (s *Sim) bumpKrillCount(kind components.Kind, delta int) {
	switch kind {
	case components.KindKrill:
		s.counts.Krill += delta
	case components.KindPaleKrill:
		s.counts.PaleKrill += delta
	case components.KindMomKrill:
		s.counts.MomKrill += delta
	}
}

// applyMutations drains the mutation queue: removals first, then
// lifecycle transforms, then spawns. Always sequential, always in queue
// order, so a run is reproducible from its seed.
func (s *Sim) applyMutations() {
	for _, e := range s.queue.Removals {
		s.removeEntity(e)
	}

	for _, tr := range s.queue.Transforms {
		s.applyTransform(tr)
	}

	for _, sp := range s.queue.KrillSpawns {
		if s.counts.KrillAll() >= s.cfg.Population.MaxKrill {
			break
		}
		kind := components.KindKrill
		if sp.Pale {
			kind = components.KindPaleKrill
		}
		s.spawnKrill(sp.X, sp.Y, sp.VX, sp.VY, kind)
		s.collector.RecordBirth()
	}

	for _, ws := range s.queue.WasteSpawns {
		s.spawnWaste(ws.X, ws.Y, components.WasteOrigin(ws.Origin))
	}
}

// removeEntity deletes an entity and all bookkeeping that refers to it.
// Claims involving it are dropped so no hunter is left chasing a ghost.
func (s *Sim) removeEntity(e ecs.Entity) {
	if !s.world.Alive(e) {
		return
	}
	s.claims.Drop(e)

	if sp := s.speciesMap.Get(e); sp != nil {
		switch sp.Kind {
		case components.KindFish:
			s.counts.Fish--
		case components.KindTuna:
			s.counts.Tuna--
		case components.KindSquid:
			s.counts.Squid--
		default:
			s.bumpKrillCount(sp.Kind, -1)
		}
		s.collector.RecordDeath(sp.Kind)
	} else {
		if s.foodMap.HasAll(e) {
			s.counts.Food--
		} else if s.wasteMap.HasAll(e) {
			s.counts.Waste--
		}
		s.collector.RecordParticleRemoved()
	}

	s.world.RemoveEntity(e)
}

// applyTransform executes one queued lifecycle change. Kind changes
// mutate the Species tag in place; the archetype never changes, so no
// remove-and-reinsert is needed.
func (s *Sim) applyTransform(tr systems.Transform) {
	if !s.world.Alive(tr.From) {
		return
	}

	switch tr.Kind {
	case systems.TransformFishStage:
		fish := s.fishMap.Get(tr.From)
		if fish == nil {
			return
		}
		switch fish.Stage {
		case components.StageFry:
			fish.Stage = components.StageJuvenile
		case components.StageJuvenile:
			fish.Stage = components.StageAdult
		}
		fish.Age = 0
		s.collector.RecordStageChange()

	case systems.TransformPaleToKrill:
		sp := s.speciesMap.Get(tr.From)
		if sp == nil || sp.Kind != components.KindPaleKrill {
			return
		}
		s.bumpKrillCount(components.KindPaleKrill, -1)
		s.bumpKrillCount(components.KindKrill, 1)
		sp.Kind = components.KindKrill
		if kr := s.krillMap.Get(tr.From); kr != nil {
			kr.Age = 0
		}
		s.collector.RecordMaturation()

	case systems.TransformKrillToMom:
		sp := s.speciesMap.Get(tr.From)
		if sp == nil || sp.Kind != components.KindKrill {
			return
		}
		s.bumpKrillCount(components.KindKrill, -1)
		s.bumpKrillCount(components.KindMomKrill, 1)
		sp.Kind = components.KindMomKrill
		if kr := s.krillMap.Get(tr.From); kr != nil {
			kr.Gestation = s.cfg.Krill.GestationTicks
		}

	case systems.TransformMomSpawn:
		sp := s.speciesMap.Get(tr.From)
		kr := s.krillMap.Get(tr.From)
		pos := s.posMap.Get(tr.From)
		if sp == nil || kr == nil || pos == nil || sp.Kind != components.KindMomKrill {
			return
		}
		s.bumpKrillCount(components.KindMomKrill, -1)
		s.bumpKrillCount(components.KindKrill, 1)
		sp.Kind = components.KindKrill
		kr.Gestation = 0
		kr.Age = 0

		// The brood scatters around the mother as pale krill.
		for i := 0; i < s.cfg.Krill.BroodSize; i++ {
			dx := (s.rng.Float32() - 0.5) * s.cfg.Krill.Size * 8
			dy := (s.rng.Float32() - 0.5) * s.cfg.Krill.Size * 8
			s.queue.SpawnKrill(systems.KrillSpawn{
				X: pos.X + dx, Y: pos.Y + dy,
				VX: dx * 0.1, VY: dy * 0.1,
				Pale: true,
			})
		}
	}
}
