package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/components"
	"github.com/pelagos/reef/steering"
)

// ---------- intercept prediction ----------

func TestInterceptPoint_LeadsMovingPrey(t *testing.T) {
	preyPos := steering.Vec2{X: 100, Y: 100}
	preyVel := steering.Vec2{X: 2, Y: 0}

	got := InterceptPoint(preyPos, preyVel, 64, 3.2, 45)
	// lead = 64 / 3.2 = 20 ticks
	if got.X != 140 || got.Y != 100 {
		t.Errorf("expected intercept (140, 100), got (%g, %g)", got.X, got.Y)
	}
}

func TestInterceptPoint_ClampsPredictionHorizon(t *testing.T) {
	preyPos := steering.Vec2{X: 100, Y: 100}
	preyVel := steering.Vec2{X: 2, Y: 0}

	got := InterceptPoint(preyPos, preyVel, 1000, 3.2, 45)
	if got.X != 190 { // 100 + 2*45
		t.Errorf("lead should be clamped to the horizon, got x=%g", got.X)
	}
}

func TestInterceptPoint_StationaryPrey(t *testing.T) {
	preyPos := steering.Vec2{X: 100, Y: 100}

	got := InterceptPoint(preyPos, steering.Vec2{}, 80, 3.2, 45)
	if got != preyPos {
		t.Errorf("a stationary prey predicts to itself, got (%g, %g)", got.X, got.Y)
	}
}

// ---------- hunting ----------

func TestTunaSystem_ClaimsAndPursuesNearestFish(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	tunaMap := ecs.NewMap1[components.Tuna](tw.w)

	tuna := tw.spawnTuna(800, 450)
	behMap.Get(tuna).Timer = tw.cfg.Behavior.MinDwellTicks
	near := tw.spawnFish(900, 450, components.StageAdult)
	tw.spawnFish(940, 450, components.StageAdult)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if got, ok := tw.ctx.Claims.TargetOf(tuna); !ok || got != near {
		t.Fatal("the nearer fish should be claimed")
	}
	if got := behMap.Get(tuna).State; got != components.StateHunting {
		t.Errorf("expected HUNTING, got %v", got)
	}
	if !tunaMap.Get(tuna).HasPursuit {
		t.Error("pursuit point should be set while hunting")
	}
}

func TestTunaSystem_PursuitPointLeadsPrey(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	tunaMap := ecs.NewMap1[components.Tuna](tw.w)
	velMap := ecs.NewMap1[components.Velocity](tw.w)

	tuna := tw.spawnTuna(800, 450)
	behMap.Get(tuna).Timer = tw.cfg.Behavior.MinDwellTicks
	fish := tw.spawnFish(900, 450, components.StageAdult)
	velMap.Get(fish).X = 1.5
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	tn := tunaMap.Get(tuna)
	// dist 100, hunt speed 3.2: lead 31.25 ticks at vx 1.5
	want := InterceptPoint(steering.Vec2{X: 900, Y: 450}, steering.Vec2{X: 1.5}, 100, tw.cfg.Tuna.HuntSpeed, tw.cfg.Tuna.MaxPredictionTicks)
	if tn.PursuitX != want.X || tn.PursuitY != want.Y {
		t.Errorf("expected pursuit (%g, %g), got (%g, %g)", want.X, want.Y, tn.PursuitX, tn.PursuitY)
	}
	if tn.PursuitX <= 900 {
		t.Error("the pursuit point should lead a fish swimming away")
	}
}

func TestTunaSystem_SecondTunaCannotClaimSameFish(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)

	a := tw.spawnTuna(800, 450)
	b := tw.spawnTuna(1000, 450)
	tw.spawnFish(900, 450, components.StageAdult)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	_, aHas := tw.ctx.Claims.TargetOf(a)
	_, bHas := tw.ctx.Claims.TargetOf(b)
	if aHas == bHas {
		t.Errorf("exactly one tuna should hold the claim, got a=%v b=%v", aHas, bHas)
	}
}

// ---------- capture ----------

func TestTunaSystem_CaptureConsumesAndDigests(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	tunaMap := ecs.NewMap1[components.Tuna](tw.w)
	energyMap := ecs.NewMap1[components.Energy](tw.w)

	tuna := tw.spawnTuna(800, 450)
	fish := tw.spawnFish(810, 450, components.StageAdult)
	tw.rebuildGrid()

	before := energyMap.Get(tuna).Value
	sys.Decide(&tw.ctx)

	if !tw.ctx.Queue.Consumed(fish) {
		t.Fatal("fish in capture range should be consumed")
	}
	if energyMap.Get(tuna).Value <= before {
		t.Error("capture should raise energy")
	}
	tn := tunaMap.Get(tuna)
	if tn.DigestTimer != tw.cfg.Tuna.DigestTicks {
		t.Error("digestion should start after a capture")
	}
	if got := behMap.Get(tuna).State; got != components.StatePatrolling {
		t.Errorf("expected PATROLLING while digesting, got %v", got)
	}
	if _, has := tw.ctx.Claims.TargetOf(tuna); has {
		t.Error("the claim should be released on capture")
	}
	if len(tw.ctx.Queue.WasteSpawns) != 1 {
		t.Fatalf("a capture queues one waste particle, got %d", len(tw.ctx.Queue.WasteSpawns))
	}
	if tw.ctx.Queue.WasteSpawns[0].Origin != uint8(components.OriginTuna) {
		t.Error("capture waste should carry the tuna origin")
	}
}

func TestTunaSystem_DigestingTunaIgnoresPrey(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)
	tunaMap := ecs.NewMap1[components.Tuna](tw.w)

	tuna := tw.spawnTuna(800, 450)
	tunaMap.Get(tuna).DigestTimer = 100
	fish := tw.spawnFish(810, 450, components.StageAdult)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if tw.ctx.Queue.Consumed(fish) {
		t.Error("a digesting tuna must not capture")
	}
	if _, has := tw.ctx.Claims.TargetOf(tuna); has {
		t.Error("a digesting tuna must not claim prey")
	}
	if got := tunaMap.Get(tuna).DigestTimer; got != 99 {
		t.Errorf("digest timer should tick down, got %d", got)
	}
}

// ---------- flee override ----------

func TestTunaSystem_FleesSquidAndDropsClaim(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	tunaMap := ecs.NewMap1[components.Tuna](tw.w)

	tuna := tw.spawnTuna(800, 450)
	fish := tw.spawnFish(900, 450, components.StageAdult)
	tw.ctx.Claims.Claim(fish, tuna)
	tw.spawnSquid(700, 450)
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if got := behMap.Get(tuna).State; got != components.StateFleeing {
		t.Fatalf("expected FLEEING near a squid, got %v", got)
	}
	if _, has := tw.ctx.Claims.TargetOf(tuna); has {
		t.Error("fleeing should release the prey claim")
	}
	tn := tunaMap.Get(tuna)
	if tn.FleeTimer != tw.cfg.Tuna.FleeCooldownTicks {
		t.Error("the flee cooldown should start")
	}
	if tn.PursuitX != 700 || tn.PursuitY != 450 {
		t.Errorf("the threat position feeds the flee force, got (%g, %g)", tn.PursuitX, tn.PursuitY)
	}
}

func TestTunaSystem_FleeCooldownHoldsAfterSquidLeaves(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	tunaMap := ecs.NewMap1[components.Tuna](tw.w)

	tuna := tw.spawnTuna(800, 450)
	behMap.Get(tuna).State = components.StateFleeing
	tunaMap.Get(tuna).FleeTimer = 5
	tw.spawnFish(810, 450, components.StageAdult) // easy meal, still ignored
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if got := behMap.Get(tuna).State; got != components.StateFleeing {
		t.Errorf("the cooldown should keep the tuna fleeing, got %v", got)
	}
	if len(tw.ctx.Queue.Removals) != 0 {
		t.Error("nothing should be eaten during the flee cooldown")
	}
}

func TestTunaSystem_ResumesPatrolAfterCooldown(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)
	behMap := ecs.NewMap1[components.Behavior](tw.w)
	tunaMap := ecs.NewMap1[components.Tuna](tw.w)

	tuna := tw.spawnTuna(800, 450)
	behMap.Get(tuna).State = components.StateFleeing
	tunaMap.Get(tuna).FleeTimer = 1
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	if got := behMap.Get(tuna).State; got == components.StateFleeing {
		t.Error("the tuna should leave FLEEING once the cooldown expires")
	}
}

// ---------- patrol ----------

func TestTunaSystem_PatrolRefreshesExpiredWaypoint(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)
	tunaMap := ecs.NewMap1[components.Tuna](tw.w)

	tuna := tw.spawnTuna(800, 450)
	tn := tunaMap.Get(tuna)
	tn.WaypointTTL = 1
	tn.WaypointX = 100
	tn.WaypointY = 100
	tw.rebuildGrid()

	sys.Decide(&tw.ctx)

	tn = tunaMap.Get(tuna)
	if tn.WaypointTTL != tw.cfg.Tuna.WaypointTicks {
		t.Errorf("waypoint TTL should reset, got %d", tn.WaypointTTL)
	}
	if tn.WaypointX < 0 || tn.WaypointX > tw.ctx.Bounds.Width {
		t.Errorf("waypoint x %g outside the tank", tn.WaypointX)
	}
	if tn.WaypointY < 0 || tn.WaypointY > tw.ctx.Bounds.Height {
		t.Errorf("waypoint y %g outside the tank", tn.WaypointY)
	}
}

func TestTunaSystem_RepulsionPushesTunaApart(t *testing.T) {
	tw := newTestWorld(t)
	sys := NewTunaSystem(tw.w, tw.cfg.Tuna)

	left := tw.spawnTuna(800, 450)
	tw.spawnTuna(820, 450)
	tw.rebuildGrid()

	scratch := NewForceScratch()
	posMap := ecs.NewMap1[components.Position](tw.w)
	f := sys.repulsion(&tw.ctx, left, posMap.Get(left), scratch)
	if f.X >= 0 {
		t.Errorf("the left tuna should be pushed left, got fx=%g", f.X)
	}
}
