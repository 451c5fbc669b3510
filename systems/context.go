package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pelagos/reef/config"
)

// Bounds represents the simulation world bounds.
type Bounds struct {
	Width, Height float32
}

// DepthFrac returns y as a fraction of world height in [0, 1].
func (b Bounds) DepthFrac(y float32) float32 {
	if b.Height <= 0 {
		return 0
	}
	return clamp01(y / b.Height)
}

// Context is the per-tick simulation context threaded through every
// system update. It replaces any ambient global lookup: systems read
// config, spatial index, claims, and the mutation queue from here.
type Context struct {
	Tick      int64
	Cfg       *config.Config
	Bounds    Bounds
	Grid      *SpatialGrid
	Claims    *ClaimTable
	Queue     *MutationQueue
	Migration *MigrationCycle
	Currents  *CurrentField
	Rng       *rand.Rand
}

// WasteSpawn is a queued request to create a waste particle.
type WasteSpawn struct {
	X, Y   float32
	Origin uint8 // components.WasteOrigin
}

// KrillSpawn is a queued request to create a krill (used for mom-krill
// broods).
type KrillSpawn struct {
	X, Y   float32
	VX, VY float32
	Pale   bool
}

// TransformKind identifies a lifecycle transform request.
type TransformKind uint8

const (
	TransformPaleToKrill TransformKind = iota // pale krill matures
	TransformKrillToMom                       // well-fed krill becomes a mom
	TransformMomSpawn                         // mom releases brood, reverts to krill
	TransformFishStage                        // fry -> juvenile -> adult
)

// Transform is a lifecycle transform request: the population manager
// removes From and inserts its replacement at the same position and
// velocity. Behavior systems only ever signal intent; they never mutate
// the population themselves.
type Transform struct {
	From ecs.Entity
	Kind TransformKind
}

// MutationQueue collects all population mutations requested during a
// tick. Systems record intents here; the simulation applies them once,
// sequentially, at the end of the tick. Consumption is first-wins so the
// "at most one writer per tick per entity" discipline holds without
// locks.
type MutationQueue struct {
	consumed map[ecs.Entity]struct{}

	Removals    []ecs.Entity
	WasteSpawns []WasteSpawn
	KrillSpawns []KrillSpawn
	Transforms  []Transform
}

// NewMutationQueue creates an empty mutation queue.
func NewMutationQueue() *MutationQueue {
	return &MutationQueue{consumed: make(map[ecs.Entity]struct{}, 64)}
}

// Reset clears the queue for the next tick.
func (q *MutationQueue) Reset() {
	clear(q.consumed)
	q.Removals = q.Removals[:0]
	q.WasteSpawns = q.WasteSpawns[:0]
	q.KrillSpawns = q.KrillSpawns[:0]
	q.Transforms = q.Transforms[:0]
}

// Consume marks e as eaten/captured this tick and queues its removal.
// Returns false if another agent already consumed it, in which case the
// caller must not apply any eating side effects.
func (q *MutationQueue) Consume(e ecs.Entity) bool {
	if _, ok := q.consumed[e]; ok {
		return false
	}
	q.consumed[e] = struct{}{}
	q.Removals = append(q.Removals, e)
	return true
}

// Consumed reports whether e was already consumed this tick. Behavior
// systems use this to skip just-eaten targets that are still in the
// spatial grid.
func (q *MutationQueue) Consumed(e ecs.Entity) bool {
	_, ok := q.consumed[e]
	return ok
}

// SpawnWaste queues a waste particle at the given position.
func (q *MutationQueue) SpawnWaste(x, y float32, origin uint8) {
	q.WasteSpawns = append(q.WasteSpawns, WasteSpawn{X: x, Y: y, Origin: origin})
}

// SpawnKrill queues a new krill.
func (q *MutationQueue) SpawnKrill(s KrillSpawn) {
	q.KrillSpawns = append(q.KrillSpawns, s)
}

// RequestTransform queues a lifecycle transform. The same entity is only
// accepted once per tick.
func (q *MutationQueue) RequestTransform(e ecs.Entity, kind TransformKind) bool {
	if _, ok := q.consumed[e]; ok {
		return false
	}
	q.consumed[e] = struct{}{}
	q.Transforms = append(q.Transforms, Transform{From: e, Kind: kind})
	return true
}
