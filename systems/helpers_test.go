package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/config"
)

// testWorld wires a minimal world for behavior-system tests: the ECS,
// the spatial grid, claims, the mutation queue, and spawn helpers.
type testWorld struct {
	t   *testing.T
	w   *ecs.World
	cfg *config.Config
	ctx Context

	agentMapper *ecs.Map8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Fish]
	krillMapper *ecs.Map8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Krill]
	tunaMapper  *ecs.Map8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Tuna]
	squidMapper *ecs.Map8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Squid]
	foodMapper  *ecs.Map2[components.Position, components.Food]
	wasteMapper *ecs.Map2[components.Position, components.Waste]

	posMap *ecs.Map1[components.Position]
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading default config: %v", err)
	}

	w := ecs.NewWorld()
	tw := &testWorld{
		t:   t,
		w:   w,
		cfg: cfg,

		agentMapper: ecs.NewMap8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Fish](w),
		krillMapper: ecs.NewMap8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Krill](w),
		tunaMapper:  ecs.NewMap8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Tuna](w),
		squidMapper: ecs.NewMap8[components.Position, components.Velocity, components.Steering, components.Motion, components.Energy, components.Behavior, components.Species, components.Squid](w),
		foodMapper:  ecs.NewMap2[components.Position, components.Food](w),
		wasteMapper: ecs.NewMap2[components.Position, components.Waste](w),
		posMap:      ecs.NewMap1[components.Position](w),
	}

	tw.ctx = Context{
		Tick:      1,
		Cfg:       cfg,
		Bounds:    Bounds{Width: cfg.World.Width, Height: cfg.World.Height},
		Grid:      NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.Physics.GridCellSize),
		Claims:    NewClaimTable(),
		Queue:     NewMutationQueue(),
		Migration: NewMigrationCycle(cfg.Migration),
		Currents:  NewCurrentField(cfg.Currents, 1),
		Rng:       rand.New(rand.NewSource(1)),
	}
	return tw
}

func (tw *testWorld) spawnFish(x, y float32, stage components.FishStage) ecs.Entity {
	cfg := tw.cfg.Fish
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	st := components.Steering{}
	motion := components.Motion{MaxSpeed: cfg.MaxSpeed, MaxForce: cfg.MaxForce, Size: cfg.Size}
	energy := components.Energy{Value: cfg.EnergyMax * 0.7, Max: cfg.EnergyMax}
	beh := components.Behavior{State: components.StateForaging}
	sp := components.Species{Kind: components.KindFish}
	fish := components.Fish{Stage: stage, Rand: 12345, WasteThreshold: cfg.WasteThresholdMin}
	return tw.agentMapper.NewEntity(&pos, &vel, &st, &motion, &energy, &beh, &sp, &fish)
}

func (tw *testWorld) spawnKrill(x, y float32, kind components.Kind) ecs.Entity {
	cfg := tw.cfg.Krill
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	st := components.Steering{}
	motion := components.Motion{MaxSpeed: cfg.MaxSpeed, MaxForce: cfg.MaxForce, Size: cfg.Size}
	energy := components.Energy{Value: cfg.EnergyMax * 0.6, Max: cfg.EnergyMax}
	beh := components.Behavior{State: components.StateForaging}
	sp := components.Species{Kind: kind}
	kr := components.Krill{Rand: 6789}
	return tw.krillMapper.NewEntity(&pos, &vel, &st, &motion, &energy, &beh, &sp, &kr)
}

func (tw *testWorld) spawnTuna(x, y float32) ecs.Entity {
	cfg := tw.cfg.Tuna
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	st := components.Steering{}
	motion := components.Motion{MaxSpeed: cfg.MaxSpeed, MaxForce: cfg.MaxForce, Size: cfg.Size}
	energy := components.Energy{Value: cfg.EnergyMax * 0.7, Max: cfg.EnergyMax}
	beh := components.Behavior{State: components.StatePatrolling}
	sp := components.Species{Kind: components.KindTuna}
	tn := components.Tuna{Rand: 777}
	return tw.tunaMapper.NewEntity(&pos, &vel, &st, &motion, &energy, &beh, &sp, &tn)
}

func (tw *testWorld) spawnSquid(x, y float32) ecs.Entity {
	cfg := tw.cfg.Squid
	pos := components.Position{X: x, Y: y}
	vel := components.Velocity{}
	st := components.Steering{}
	motion := components.Motion{MaxSpeed: cfg.MaxSpeed, MaxForce: cfg.MaxForce, Size: cfg.Size}
	energy := components.Energy{Value: cfg.EnergyMax * 0.8, Max: cfg.EnergyMax}
	beh := components.Behavior{State: components.StatePatrolling}
	sp := components.Species{Kind: components.KindSquid}
	sq := components.Squid{Rand: 999, DepthFade: 1}
	return tw.squidMapper.NewEntity(&pos, &vel, &st, &motion, &energy, &beh, &sp, &sq)
}

func (tw *testWorld) spawnFood(x, y float32) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	food := components.Food{FeedValue: tw.cfg.Food.FeedValue}
	return tw.foodMapper.NewEntity(&pos, &food)
}

func (tw *testWorld) spawnWaste(x, y float32, origin components.WasteOrigin, state components.WasteState) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	waste := components.Waste{Origin: origin, State: state, FeedValue: FeedValueFor(tw.cfg.Waste, origin)}
	return tw.wasteMapper.NewEntity(&pos, &waste)
}

// rebuildGrid re-inserts every positioned entity into the spatial index.
func (tw *testWorld) rebuildGrid() {
	tw.ctx.Grid.Clear()
	filter := ecs.NewFilter1[components.Position](tw.w)
	query := filter.Query()
	for query.Next() {
		pos := query.Get()
		tw.ctx.Grid.Insert(query.Entity(), pos.X, pos.Y)
	}
}

func approxEq(a, b, tol float32) bool {
	return float32(math.Abs(float64(a-b))) <= tol
}

// advanceTick resets the queue and bumps the tick, mirroring the start
// of a real simulation step.
func (tw *testWorld) advanceTick() {
	tw.ctx.Tick++
	tw.ctx.Queue.Reset()
	tw.ctx.Migration.Update(tw.ctx.Tick)
	tw.rebuildGrid()
}
