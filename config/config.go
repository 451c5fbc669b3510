// Package config provides configuration loading and validation for the
// simulation. Defaults are embedded; a user YAML file merged over them
// only overrides the fields it sets.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation parameters. It is passed explicitly into
// sim.New and threaded through system updates; there is no global.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Behavior   BehaviorConfig   `yaml:"behavior"`
	Fish       FishConfig       `yaml:"fish"`
	Krill      KrillConfig      `yaml:"krill"`
	Tuna       TunaConfig       `yaml:"tuna"`
	Squid      SquidConfig      `yaml:"squid"`
	Waste      WasteConfig      `yaml:"waste"`
	Food       FoodConfig       `yaml:"food"`
	Migration  MigrationConfig  `yaml:"migration"`
	Currents   CurrentsConfig   `yaml:"currents"`
	Population PopulationConfig `yaml:"population"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// WorldConfig holds the tank dimensions in world units.
type WorldConfig struct {
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

// PhysicsConfig holds integration and spatial-index parameters.
type PhysicsConfig struct {
	GridCellSize float32 `yaml:"grid_cell_size"`
	EdgeMargin   float32 `yaml:"edge_margin"` // distance from walls where avoidance kicks in
	EdgeForce    float32 `yaml:"edge_force"`  // avoidance force per tick inside the margin
	Drag         float32 `yaml:"drag"`        // velocity fraction lost per tick
}

// BehaviorConfig holds the shared state machine parameters.
type BehaviorConfig struct {
	MinDwellTicks int32 `yaml:"min_dwell_ticks"` // anti-oscillation dwell between transitions
}

// FishConfig holds schooling-fish parameters.
type FishConfig struct {
	Count            int     `yaml:"count"`
	MaxSpeed         float32 `yaml:"max_speed"`
	MaxForce         float32 `yaml:"max_force"`
	Size             float32 `yaml:"size"`
	PerceptionRadius float32 `yaml:"perception_radius"`
	SeparationRadius float32 `yaml:"separation_radius"`
	DetectRadius     float32 `yaml:"detect_radius"` // edible-item detection
	EatRadius        float32 `yaml:"eat_radius"`

	SeparationWeight float32 `yaml:"separation_weight"`
	AlignmentWeight  float32 `yaml:"alignment_weight"`
	CohesionWeight   float32 `yaml:"cohesion_weight"`
	SeekWeight       float32 `yaml:"seek_weight"`
	DepthPref        float32 `yaml:"depth_pref"`   // preferred depth fraction [0,1]
	DepthWeight      float32 `yaml:"depth_weight"` // strength of the band-keeping force

	FeedCooldownTicks int32   `yaml:"feed_cooldown_ticks"`
	EnergyMax         float32 `yaml:"energy_max"`
	EnergyDecay       float32 `yaml:"energy_decay"` // per tick
	GainKrill         float32 `yaml:"gain_krill"`
	GainFood          float32 `yaml:"gain_food"`

	// Food-accumulation counter weights and the randomized waste
	// threshold range (inclusive).
	WeightKrill       float32 `yaml:"weight_krill"`
	WeightFood        float32 `yaml:"weight_food"`
	WeightWaste       float32 `yaml:"weight_waste"`
	WasteThresholdMin float32 `yaml:"waste_threshold_min"`
	WasteThresholdMax float32 `yaml:"waste_threshold_max"`

	FryTicks      int32 `yaml:"fry_ticks"`      // ticks before fry -> juvenile
	JuvenileTicks int32 `yaml:"juvenile_ticks"` // ticks before juvenile -> adult
}

// KrillConfig holds krill swarm parameters.
type KrillConfig struct {
	Count     int     `yaml:"count"`
	PaleCount int     `yaml:"pale_count"`
	MaxSpeed  float32 `yaml:"max_speed"`
	MaxForce  float32 `yaml:"max_force"`
	Size      float32 `yaml:"size"`

	SwarmRadius      float32 `yaml:"swarm_radius"`
	SwarmQuorum      int     `yaml:"swarm_quorum"` // non-fleeing swarm-mates needed for group behavior
	SwarmWeight      float32 `yaml:"swarm_weight"`
	SeparationRadius float32 `yaml:"separation_radius"`
	SeparationWeight float32 `yaml:"separation_weight"`
	AlignmentWeight  float32 `yaml:"alignment_weight"`

	ThreatRadius  float32 `yaml:"threat_radius"`
	FleeThreshold float32 `yaml:"flee_threshold"`
	ThreatSquid   float32 `yaml:"threat_squid"`
	ThreatFish    float32 `yaml:"threat_fish"` // juvenile fish hunt krill
	ThreatTuna    float32 `yaml:"threat_tuna"`
	FleeWeight    float32 `yaml:"flee_weight"`

	EatRadius  float32 `yaml:"eat_radius"`
	SeekRadius float32 `yaml:"seek_radius"`
	SeekWeight float32 `yaml:"seek_weight"`

	HungerRate          float32 `yaml:"hunger_rate"`           // per tick
	HungerSeekThreshold float32 `yaml:"hunger_seek_threshold"` // hunger above this drives SEEKING
	RestEnergyThreshold float32 `yaml:"rest_energy_threshold"`
	RestTicks           int32   `yaml:"rest_ticks"`
	EnergyMax           float32 `yaml:"energy_max"`
	EnergyDecay         float32 `yaml:"energy_decay"`
	RestDecayScale      float32 `yaml:"rest_decay_scale"` // decay multiplier while resting
	GainFood            float32 `yaml:"gain_food"`

	DepthPref   float32 `yaml:"depth_pref"`
	DepthWeight float32 `yaml:"depth_weight"`

	ReproEnergy     float32 `yaml:"repro_energy"`     // energy needed for krill -> mom
	ReproAgeTicks   int32   `yaml:"repro_age_ticks"`  // minimum age for krill -> mom
	GestationTicks  int32   `yaml:"gestation_ticks"`  // mom carries brood this long
	BroodSize       int     `yaml:"brood_size"`       // pale krill per brood
	MaturationTicks int32   `yaml:"maturation_ticks"` // pale -> regular
}

// TunaConfig holds tuna predator parameters.
type TunaConfig struct {
	Count    int     `yaml:"count"`
	MaxSpeed float32 `yaml:"max_speed"`
	MaxForce float32 `yaml:"max_force"`
	Size     float32 `yaml:"size"`

	DetectRadius       float32 `yaml:"detect_radius"`
	AttackRadius       float32 `yaml:"attack_radius"`
	CaptureRadius      float32 `yaml:"capture_radius"`
	HuntSpeed          float32 `yaml:"hunt_speed"`           // speed used for intercept prediction
	MaxPredictionTicks float32 `yaml:"max_prediction_ticks"` // prediction horizon clamp
	AttackForceBoost   float32 `yaml:"attack_force_boost"`

	WaypointTicks  int32   `yaml:"waypoint_ticks"`  // patrol direction change period
	SmoothingAlpha float32 `yaml:"smoothing_alpha"` // moving-average factor for patrol forces

	RepulsionRadius float32 `yaml:"repulsion_radius"`
	RepulsionWeight float32 `yaml:"repulsion_weight"`

	FleeRadius        float32 `yaml:"flee_radius"` // distance at which a squid triggers fleeing
	FleeCooldownTicks int32   `yaml:"flee_cooldown_ticks"`
	FleeWeight        float32 `yaml:"flee_weight"`

	AttackTimeoutTicks int32 `yaml:"attack_timeout_ticks"`
	DigestTicks        int32 `yaml:"digest_ticks"`

	EnergyMax   float32 `yaml:"energy_max"`
	EnergyDecay float32 `yaml:"energy_decay"`
	GainFish    float32 `yaml:"gain_fish"`

	DepthPref   float32 `yaml:"depth_pref"`
	DepthWeight float32 `yaml:"depth_weight"`
}

// SquidConfig holds giant-squid parameters.
type SquidConfig struct {
	Count    int     `yaml:"count"`
	MaxSpeed float32 `yaml:"max_speed"`
	MaxForce float32 `yaml:"max_force"`
	Size     float32 `yaml:"size"`

	DetectRadius   float32 `yaml:"detect_radius"`   // prey (tuna) detection
	AttackRadius   float32 `yaml:"attack_radius"`   // HUNTING -> ATTACKING
	GrabRadius     float32 `yaml:"grab_radius"`     // capture distance
	TentacleRadius float32 `yaml:"tentacle_radius"` // micro-adjustment range
	TentacleJitter float32 `yaml:"tentacle_jitter"`

	JetForce         float32 `yaml:"jet_force"`
	JetTicks         int32   `yaml:"jet_ticks"`
	JetCooldownTicks int32   `yaml:"jet_cooldown_ticks"`
	JetRange         float32 `yaml:"jet_range"` // jets only fire beyond this distance
	FinForce         float32 `yaml:"fin_force"`

	RivalRadius  float32 `yaml:"rival_radius"` // inter-squid detection
	RetreatTicks int32   `yaml:"retreat_ticks"`

	ConsumeTicks       int32 `yaml:"consume_ticks"`
	WasteCooldownTicks int32 `yaml:"waste_cooldown_ticks"` // no prey scans after excreting

	DepthPref    float32 `yaml:"depth_pref"` // preferred deep band
	DepthWeight  float32 `yaml:"depth_weight"`
	NearFadeDist float32 `yaml:"near_fade_dist"` // below this, depth preference is gone
	FarFadeDist  float32 `yaml:"far_fade_dist"`  // above this, depth preference is full

	EnergyMax   float32 `yaml:"energy_max"`
	EnergyDecay float32 `yaml:"energy_decay"`
	GainTuna    float32 `yaml:"gain_tuna"`
}

// WasteConfig holds waste particle parameters. Feed values must be
// strictly increasing with origin rank.
type WasteConfig struct {
	SinkSpeed      float32 `yaml:"sink_speed"`
	AgedAfterTicks int32   `yaml:"aged_after_ticks"`
	DeepDepthFrac  float32 `yaml:"deep_depth_frac"` // depth fraction where aged -> deep
	MaxAgeTicks    int32   `yaml:"max_age_ticks"`   // removed after this, closing the loop

	FeedAmbient float32 `yaml:"feed_ambient"`
	FeedRegular float32 `yaml:"feed_regular"`
	FeedTuna    float32 `yaml:"feed_tuna"`
	FeedSquid   float32 `yaml:"feed_squid"`
}

// FoodConfig holds fish-food parameters.
type FoodConfig struct {
	SinkSpeed          float32 `yaml:"sink_speed"`
	FeedValue          float32 `yaml:"feed_value"`
	SpawnIntervalTicks int32   `yaml:"spawn_interval_ticks"` // 0 disables ambient feeding
	SpawnCount         int     `yaml:"spawn_count"`
}

// MigrationConfig holds the population-level vertical migration cycle.
type MigrationConfig struct {
	PeriodTicks int64   `yaml:"period_ticks"` // full rise+return cycle length
	ShallowFrac float32 `yaml:"shallow_frac"` // target depth fraction during the rise phase
	DeepFrac    float32 `yaml:"deep_frac"`    // target depth fraction during the return phase
	JitterFrac  float32 `yaml:"jitter_frac"`  // per-agent depth jitter amplitude
	ForceWeight float32 `yaml:"force_weight"`
}

// CurrentsConfig holds the ambient water-current field. Strength 0
// disables it.
type CurrentsConfig struct {
	Strength  float32 `yaml:"strength"`
	Scale     float64 `yaml:"scale"`      // noise spatial frequency
	TimeScale float64 `yaml:"time_scale"` // noise animation speed
}

// PopulationConfig holds per-species population caps, honored when
// applying lifecycle transform requests.
type PopulationConfig struct {
	MaxFish  int `yaml:"max_fish"`
	MaxKrill int `yaml:"max_krill"` // all krill variants combined
	MaxTuna  int `yaml:"max_tuna"`
	MaxSquid int `yaml:"max_squid"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	WindowTicks int64 `yaml:"window_ticks"`
}

// Load loads configuration from a YAML file, merging with the embedded
// defaults. If path is empty, only the defaults are used. The result is
// validated; configuration errors fail here, not per tick.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants. Out-of-range values are a
// programmer/operator error and fail fast at initialization.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("config: world dimensions must be positive, got %gx%g", c.World.Width, c.World.Height)
	}
	if c.Physics.GridCellSize <= 0 {
		return fmt.Errorf("config: grid_cell_size must be positive, got %g", c.Physics.GridCellSize)
	}
	if c.Physics.Drag < 0 || c.Physics.Drag >= 1 {
		return fmt.Errorf("config: physics.drag must be in [0, 1), got %g", c.Physics.Drag)
	}
	if c.Behavior.MinDwellTicks < 0 {
		return fmt.Errorf("config: min_dwell_ticks must be non-negative, got %d", c.Behavior.MinDwellTicks)
	}

	type speciesCheck struct {
		name               string
		maxSpeed, maxForce float32
	}
	for _, s := range []speciesCheck{
		{"fish", c.Fish.MaxSpeed, c.Fish.MaxForce},
		{"krill", c.Krill.MaxSpeed, c.Krill.MaxForce},
		{"tuna", c.Tuna.MaxSpeed, c.Tuna.MaxForce},
		{"squid", c.Squid.MaxSpeed, c.Squid.MaxForce},
	} {
		if s.maxSpeed <= 0 {
			return fmt.Errorf("config: %s.max_speed must be positive, got %g", s.name, s.maxSpeed)
		}
		if s.maxForce <= 0 {
			return fmt.Errorf("config: %s.max_force must be positive, got %g", s.name, s.maxForce)
		}
	}

	for _, r := range []struct {
		name string
		v    float32
	}{
		{"fish.perception_radius", c.Fish.PerceptionRadius},
		{"fish.detect_radius", c.Fish.DetectRadius},
		{"krill.swarm_radius", c.Krill.SwarmRadius},
		{"krill.threat_radius", c.Krill.ThreatRadius},
		{"tuna.detect_radius", c.Tuna.DetectRadius},
		{"tuna.hunt_speed", c.Tuna.HuntSpeed},
		{"squid.detect_radius", c.Squid.DetectRadius},
		{"squid.rival_radius", c.Squid.RivalRadius},
	} {
		if r.v <= 0 {
			return fmt.Errorf("config: %s must be positive, got %g", r.name, r.v)
		}
	}

	if c.Fish.WasteThresholdMin <= 0 || c.Fish.WasteThresholdMax < c.Fish.WasteThresholdMin {
		return fmt.Errorf("config: fish waste threshold range [%g, %g] is invalid",
			c.Fish.WasteThresholdMin, c.Fish.WasteThresholdMax)
	}

	w := c.Waste
	if !(w.FeedAmbient < w.FeedRegular && w.FeedRegular < w.FeedTuna && w.FeedTuna < w.FeedSquid) {
		return fmt.Errorf("config: waste feed values must be strictly increasing by origin rank (ambient %g < regular %g < tuna %g < squid %g)",
			w.FeedAmbient, w.FeedRegular, w.FeedTuna, w.FeedSquid)
	}
	if w.DeepDepthFrac <= 0 || w.DeepDepthFrac > 1 {
		return fmt.Errorf("config: waste.deep_depth_frac must be in (0, 1], got %g", w.DeepDepthFrac)
	}

	if c.Migration.PeriodTicks <= 0 {
		return fmt.Errorf("config: migration.period_ticks must be positive, got %d", c.Migration.PeriodTicks)
	}
	if c.Krill.SwarmQuorum < 1 {
		return fmt.Errorf("config: krill.swarm_quorum must be at least 1, got %d", c.Krill.SwarmQuorum)
	}
	if c.Squid.NearFadeDist >= c.Squid.FarFadeDist {
		return fmt.Errorf("config: squid.near_fade_dist (%g) must be below far_fade_dist (%g)",
			c.Squid.NearFadeDist, c.Squid.FarFadeDist)
	}
	if c.Telemetry.WindowTicks <= 0 {
		return fmt.Errorf("config: telemetry.window_ticks must be positive, got %d", c.Telemetry.WindowTicks)
	}

	for _, p := range []struct {
		name       string
		count, max int
	}{
		{"fish", c.Fish.Count, c.Population.MaxFish},
		{"krill", c.Krill.Count + c.Krill.PaleCount, c.Population.MaxKrill},
		{"tuna", c.Tuna.Count, c.Population.MaxTuna},
		{"squid", c.Squid.Count, c.Population.MaxSquid},
	} {
		if p.count > p.max {
			return fmt.Errorf("config: initial %s count %d exceeds population cap %d", p.name, p.count, p.max)
		}
	}

	return nil
}

// YAML returns the configuration serialized as YAML.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(data), nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
