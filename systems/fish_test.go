package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
)

// ---------- eating ----------

func TestFishSystem_EatsFoodInRange(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	energyMap := ecs.NewMap1[components.Energy](tw.w)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	food := tw.spawnFood(805, 300)
	tw.rebuildGrid()

	before := energyMap.Get(fish).Value
	sys.Decide(&tw.ctx)

	if !tw.ctx.Queue.Consumed(food) {
		t.Fatal("food in eat range should be consumed")
	}
	if energyMap.Get(fish).Value <= before {
		t.Error("eating should raise energy")
	}
	if got := behMap.Get(fish).State; got != components.StateFeeding {
		t.Errorf("expected FEEDING after eating, got %v", got)
	}
	if fishMap.Get(fish).FeedTimer != tw.cfg.Fish.FeedCooldownTicks {
		t.Error("feed cooldown should start after eating")
	}
}

func TestFishSystem_OutOfRangeFoodNotEaten(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	food := tw.spawnFood(850, 300) // inside detect radius, outside eat range
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if tw.ctx.Queue.Consumed(food) {
		t.Error("food outside eat range must not be consumed")
	}
	f := fishMap.Get(fish)
	if !f.HasTarget {
		t.Fatal("fish should target detected food")
	}
	if f.TargetX != 850 || f.TargetY != 300 {
		t.Errorf("target should be the food position, got (%g, %g)", f.TargetX, f.TargetY)
	}
}

func TestFishSystem_HuntStateAfterDwell(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	behMap := ecs.NewMap1[components.Behavior](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	behMap.Get(fish).Timer = tw.cfg.Behavior.MinDwellTicks
	tw.spawnFood(850, 300)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if got := behMap.Get(fish).State; got != components.StateHunting {
		t.Errorf("expected HUNTING once dwell elapsed, got %v", got)
	}
}

func TestFishSystem_PrefersNearestEdible(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	tw.spawnFood(870, 300)
	tw.spawnFood(830, 300)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	f := fishMap.Get(fish)
	if !f.HasTarget {
		t.Fatal("fish should pick a target")
	}
	if f.TargetX != 830 {
		t.Errorf("fish should target the nearer item, got x=%g", f.TargetX)
	}
}

// ---------- waste ----------

func TestFishSystem_FreshWasteNotEaten(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)

	tw.spawnFish(800, 300, components.StageAdult)
	fresh := tw.spawnWaste(805, 300, components.OriginRegular, components.WasteFresh)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if tw.ctx.Queue.Consumed(fresh) {
		t.Error("fresh waste must never be eaten")
	}
}

func TestFishSystem_AgedWasteGainMatchesOrigin(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	energyMap := ecs.NewMap1[components.Energy](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	energyMap.Get(fish).Value = 10
	waste := tw.spawnWaste(805, 300, components.OriginSquid, components.WasteAged)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if !tw.ctx.Queue.Consumed(waste) {
		t.Fatal("aged waste should be eaten")
	}
	want := 10 - tw.cfg.Fish.EnergyDecay + tw.cfg.Waste.FeedSquid
	if got := energyMap.Get(fish).Value; got != want {
		t.Errorf("expected energy %g after eating squid waste, got %g", want, got)
	}
}

func TestFishSystem_WasteSpawnsWhenCounterCrosses(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	fishMap.Get(fish).WasteThreshold = tw.cfg.Fish.WeightFood // one meal crosses
	tw.spawnFood(805, 300)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if len(tw.ctx.Queue.WasteSpawns) != 1 {
		t.Fatalf("expected exactly one waste spawn, got %d", len(tw.ctx.Queue.WasteSpawns))
	}
	ws := tw.ctx.Queue.WasteSpawns[0]
	if ws.Origin != uint8(components.OriginRegular) {
		t.Errorf("fish waste origin should be regular, got %d", ws.Origin)
	}
	if ws.X != 800 || ws.Y != 300 {
		t.Errorf("waste should drop at the fish position, got (%g, %g)", ws.X, ws.Y)
	}

	f := fishMap.Get(fish)
	if f.FoodCounter != 0 {
		t.Errorf("counter should reset after the waste drop, got %g", f.FoodCounter)
	}
	if f.WasteThreshold < tw.cfg.Fish.WasteThresholdMin || f.WasteThreshold >= tw.cfg.Fish.WasteThresholdMax {
		t.Errorf("fresh threshold %g outside [%g, %g)", f.WasteThreshold, tw.cfg.Fish.WasteThresholdMin, tw.cfg.Fish.WasteThresholdMax)
	}
}

func TestFishSystem_NoWasteBelowThreshold(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	tw.spawnFood(805, 300)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if len(tw.ctx.Queue.WasteSpawns) != 0 {
		t.Errorf("counter below threshold must not spawn waste, got %d", len(tw.ctx.Queue.WasteSpawns))
	}
	if got := fishMap.Get(fish).FoodCounter; got != tw.cfg.Fish.WeightFood {
		t.Errorf("expected counter %g, got %g", tw.cfg.Fish.WeightFood, got)
	}
}

func TestRollWasteThreshold_Range(t *testing.T) {
	state := uint64(42)
	for i := 0; i < 100; i++ {
		v := RollWasteThreshold(&state, 6, 8)
		if v < 6 || v >= 8 {
			t.Fatalf("threshold %g outside [6, 8)", v)
		}
	}
	if v := RollWasteThreshold(&state, 5, 5); v != 5 {
		t.Errorf("degenerate range should return min, got %g", v)
	}
}

// ---------- feeding cooldown ----------

func TestFishSystem_FeedingCooldownBlocksEating(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	behMap.Get(fish).State = components.StateFeeding
	fishMap.Get(fish).FeedTimer = 10
	food := tw.spawnFood(805, 300)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if tw.ctx.Queue.Consumed(food) {
		t.Error("fish in feeding cooldown must not eat")
	}
	if got := fishMap.Get(fish).FeedTimer; got != 9 {
		t.Errorf("cooldown should tick down, got %d", got)
	}
}

func TestFishSystem_CooldownExpiryReturnsToForaging(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	fish := tw.spawnFish(800, 300, components.StageAdult)
	behMap.Get(fish).State = components.StateFeeding
	fishMap.Get(fish).FeedTimer = 1
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if got := behMap.Get(fish).State; got != components.StateForaging {
		t.Errorf("expected FORAGING after cooldown expiry, got %v", got)
	}
	if fishMap.Get(fish).HasTarget {
		t.Error("target should be cleared with the cooldown")
	}
}

// ---------- growth ----------

func TestFishSystem_FryGrowsAfterStageTicks(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	fry := tw.spawnFish(800, 300, components.StageFry)
	fishMap.Get(fry).Age = tw.cfg.Fish.FryTicks

	sys.CheckEvolution(&tw.ctx)

	if len(tw.ctx.Queue.Transforms) != 1 {
		t.Fatalf("expected one transform request, got %d", len(tw.ctx.Queue.Transforms))
	}
	tr := tw.ctx.Queue.Transforms[0]
	if tr.From != fry || tr.Kind != TransformFishStage {
		t.Error("transform should promote the fry's stage")
	}
}

func TestFishSystem_AdultNeverTransforms(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewFishSystem(tw.w, tw.cfg.Fish)
	fishMap := ecs.NewMap1[components.Fish](tw.w)

	adult := tw.spawnFish(800, 300, components.StageAdult)
	fishMap.Get(adult).Age = 1 << 20

	sys.CheckEvolution(&tw.ctx)

	if len(tw.ctx.Queue.Transforms) != 0 {
		t.Errorf("adults have no further stage, got %d transforms", len(tw.ctx.Queue.Transforms))
	}
}
