package components

// Kind identifies the concrete agent variant.
type Kind uint8

const (
	KindFish Kind = iota
	KindKrill
	KindPaleKrill
	KindMomKrill
	KindTuna
	KindSquid
)

// String returns the display name for a Kind.
func (k Kind) String() string {
	switch k {
	case KindFish:
		return "fish"
	case KindKrill:
		return "krill"
	case KindPaleKrill:
		return "pale-krill"
	case KindMomKrill:
		return "mom-krill"
	case KindTuna:
		return "tuna"
	case KindSquid:
		return "squid"
	}
	return "unknown"
}

// IsKrill reports whether the kind is any krill variant.
func (k Kind) IsKrill() bool {
	return k == KindKrill || k == KindPaleKrill || k == KindMomKrill
}

// Species tags an agent with its concrete kind. Every agent entity
// carries one, so systems can classify neighbors with a single lookup.
type Species struct {
	Kind Kind
}

// State is a behavior state machine state.
type State uint8

const (
	StateForaging State = iota
	StateHunting
	StateFeeding
	StateSeeking
	StateEating
	StateFleeing
	StateResting
	StateSwarming
	StateMigrating
	StatePatrolling
	StateAttacking
	StateRetreating
)

var stateNames = [...]string{
	"FORAGING", "HUNTING", "FEEDING", "SEEKING", "EATING", "FLEEING",
	"RESTING", "SWARMING", "MIGRATING", "PATROLLING", "ATTACKING", "RETREATING",
}

// String returns the display name for a State.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// TransitionRecord is one entry of the per-agent transition history,
// retained for debugging only.
type TransitionRecord struct {
	From State
	To   State
	Tick int64
}

// HistoryLen is the number of transitions retained per agent.
const HistoryLen = 8

// Behavior is the generic state container shared by every agent kind:
// current state, ticks spent in it, and a short transition history.
type Behavior struct {
	State   State
	Timer   int32 // ticks spent in the current state
	History [HistoryLen]TransitionRecord
	HistPos uint8 // ring buffer write index
	HistLen uint8
}

// Record appends a transition to the history ring.
func (b *Behavior) Record(from, to State, tick int64) {
	b.History[b.HistPos] = TransitionRecord{From: from, To: to, Tick: tick}
	b.HistPos = (b.HistPos + 1) % HistoryLen
	if b.HistLen < HistoryLen {
		b.HistLen++
	}
}

// Recent returns the retained transitions, oldest first.
func (b *Behavior) Recent() []TransitionRecord {
	out := make([]TransitionRecord, 0, b.HistLen)
	start := int(b.HistPos) - int(b.HistLen)
	for i := 0; i < int(b.HistLen); i++ {
		idx := (start + i + HistoryLen) % HistoryLen
		out = append(out, b.History[idx])
	}
	return out
}

// Energy holds an agent's energy reserve on a 0..Max scale.
type Energy struct {
	Value float32
	Max   float32
}

// Gain adds e and clamps to [0, Max].
func (en *Energy) Gain(e float32) {
	en.Value += e
	if en.Value > en.Max {
		en.Value = en.Max
	}
	if en.Value < 0 {
		en.Value = 0
	}
}

// FishStage is the growth stage of a schooling fish.
type FishStage uint8

const (
	StageFry FishStage = iota
	StageJuvenile
	StageAdult
)

// String returns the display name for a FishStage.
func (s FishStage) String() string {
	switch s {
	case StageFry:
		return "fry"
	case StageJuvenile:
		return "juvenile"
	}
	return "adult"
}

// Fish holds schooling-fish state: feeding cooldown, the waste counter,
// and growth-stage bookkeeping.
type Fish struct {
	Stage FishStage
	Age   int32 // ticks since spawn or last stage change

	// Feeding
	FeedTimer      int32   // ticks remaining in FEEDING cooldown
	FoodCounter    float32 // accumulated food weight since last waste
	WasteThreshold float32 // counter level that triggers a waste particle

	// Hunt target selected during the decide pass
	HasTarget bool
	TargetX   float32
	TargetY   float32

	// Per-agent deterministic RNG state
	Rand uint64
}

// Krill holds krill swarm state shared by all krill variants; the variant
// itself lives in Species.Kind.
type Krill struct {
	Hunger float32 // 0..1, grows over time, reduced by eating

	// Decide-pass scratch, consumed by the force pass
	HasSeek  bool
	SeekX    float32
	SeekY    float32
	HasFlee  bool
	FleeX    float32
	FleeY    float32
	SwarmX   float32 // same-species centroid for the current tick
	SwarmY   float32
	SwarmN   int32 // non-fleeing swarm-mates within swarm radius
	MigDepth float32 // target depth while migrating
	WanderX  float32 // slow foraging drift direction (unit vector)
	WanderY  float32

	RestTimer int32 // ticks remaining in RESTING
	Age       int32 // ticks since spawn (maturation, reproduction)
	Gestation int32 // mom-krill: ticks until the brood is released

	// Per-agent deterministic RNG state; also the source of the fixed
	// migration jitter so the swarm does not stack on one point.
	Rand uint64
}

// Tuna holds predator state: patrol waypoints, force smoothing, and the
// flee cooldown.
type Tuna struct {
	WaypointX    float32
	WaypointY    float32
	WaypointTTL  int32 // ticks until a new waypoint is chosen

	// Short moving average of recent steering, to smooth patrol jitter
	AvgFX float32
	AvgFY float32

	// Pursuit scratch from the decide pass
	HasPursuit bool
	PursuitX   float32
	PursuitY   float32

	AttackTimer int32 // ticks remaining before an attack times out
	FleeTimer   int32 // cooldown ticks after a squid encounter
	DigestTimer int32 // ticks until the tuna hunts again after a capture

	Rand uint64
}

// Squid holds apex-predator state: propulsion, grab/consumption, and the
// post-excretion hunt cooldown.
type Squid struct {
	// Decide-pass scratch
	HasGoal bool
	GoalX   float32
	GoalY   float32

	JetTicks     int32 // remaining ticks of the current jet burst
	JetCooldown  int32 // ticks until the next jet is allowed
	DepthFade    float32 // 0..1 weight applied to the depth-preference force

	Grabbed      bool  // carrying a captured prey
	ConsumeTimer int32 // ticks left consuming the grabbed prey
	WasteTimer   int32 // post-excretion cooldown: no prey scans while > 0
	RetreatTimer int32 // ticks left of a territorial retreat

	Rand uint64
}
