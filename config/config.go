// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Sim        SimConfig         `yaml:"sim"`
	World      WorldConfig       `yaml:"world"`
	AI         AIConfig          `yaml:"ai"`
	Steering   SteeringConfig    `yaml:"steering"`
	Vitals     VitalsConfig      `yaml:"vitals"`
	Combat     CombatConfig      `yaml:"combat"`
	Population PopulationConfig  `yaml:"population"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Archetypes []ArchetypeConfig `yaml:"archetypes"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds tick timing.
type SimConfig struct {
	DT           float64 `yaml:"dt"`             // seconds per tick
	GridCellSize float64 `yaml:"grid_cell_size"` // spatial grid cell size in meters
	CorpseDecay  float64 `yaml:"corpse_decay"`   // seconds a carcass stays in the world
}

// WorldConfig holds terrain generation parameters.
type WorldConfig struct {
	Size        float64 `yaml:"size"`         // square world edge in meters
	CellSize    float64 `yaml:"cell_size"`    // heightmap/vegetation cell size
	HeightScale float64 `yaml:"height_scale"` // peak-to-trough terrain height
	NoiseScale  float64 `yaml:"noise_scale"`  // base heightmap frequency
	Octaves     int     `yaml:"octaves"`      // FBM octaves
	WaterLevel  float64 `yaml:"water_level"`  // absolute water surface height
	Vegetation  float64 `yaml:"vegetation"`   // vegetation noise threshold (higher = sparser)
	TreeDensity float64 `yaml:"tree_density"` // chance per vegetated cell to hold a tree
	TreeRadius  float64 `yaml:"tree_radius"`  // trunk radius
	TreeHeight  float64 `yaml:"tree_height"`  // trunk height
	MaxSlope    float64 `yaml:"max_slope"`    // vegetation needs normal.Y above this
	RaycastStep float64 `yaml:"raycast_step"` // linecast march step in meters
	Regrowth    float64 `yaml:"regrowth"`     // vegetation recovered per second, fraction of capacity
}

// AIConfig holds arbiter, sensor and executor parameters.
// Probabilities are percentages in [0, 100].
type AIConfig struct {
	MaxRange            float64 `yaml:"max_range"`             // sensor radius in meters
	GoalBudget          int     `yaml:"goal_budget"`           // ticks before a goal times out
	ContestBudget       int     `yaml:"contest_budget"`        // ticks a dominance contest lasts
	ThreatInterval      int     `yaml:"threat_interval"`       // ticks between enemy/custom target scans
	WaterChance         float64 `yaml:"water_chance"`          // gate: seek water
	FoodChance          float64 `yaml:"food_chance"`           // gate: seek food or prey
	ReposeChance        float64 `yaml:"repose_chance"`         // gate: rest
	FriendChance        float64 `yaml:"friend_chance"`         // gate: join a friend
	ContestChance       float64 `yaml:"contest_chance"`        // chance a herd arrival starts a contest
	Hunger              float64 `yaml:"hunger"`                // food below this triggers feeding
	Thirst              float64 `yaml:"thirst"`                // water below this triggers drinking
	Tiredness           float64 `yaml:"tiredness"`             // stamina below this allows resting
	CannibalFood        float64 `yaml:"cannibal_food"`         // food at or below this allows cannibalism
	FightHealth         float64 `yaml:"fight_health"`          // health needed to stand and fight
	SizeRatio           float64 `yaml:"size_ratio"`            // fight-or-flee size threshold
	PreySizeRatio       float64 `yaml:"prey_size_ratio"`       // herbivore prey must be below size * this
	LargeHerbivoreSize  float64 `yaml:"large_herbivore_size"`  // above this herbivores browse trees
	WaterProbeHeight    float64 `yaml:"water_probe_height"`    // downward cast start above ground
	WaterMinDepth       float64 `yaml:"water_min_depth"`       // clear water required beneath surface
	FriendMinSeparation float64 `yaml:"friend_min_separation"` // in body sizes
	HuntRange           float64 `yaml:"hunt_range"`            // in body sizes, ToHunt -> Hunt
	AttackRange         float64 `yaml:"attack_range"`          // battle holds within contact * this
	FleeRange           float64 `yaml:"flee_range"`            // distance at which a flee succeeds
	ArrivalRange        float64 `yaml:"arrival_range"`         // in body sizes
	RunRatio            float64 `yaml:"run_ratio"`             // dist/action radius above which gait is run
	Variants            int     `yaml:"variants"`              // idle/locomotion animation variants
}

// SteeringConfig holds FindPath parameters. Angles in degrees.
type SteeringConfig struct {
	WidenStep   float64 `yaml:"widen_step"`   // cone widening per rejected candidate
	MaxWiden    float64 `yaml:"max_widen"`    // give up once widening exceeds this
	FreeCone    float64 `yaml:"free_cone"`    // half-angle around heading without bias
	BiasCone    float64 `yaml:"bias_cone"`    // half-angle around bias direction
	MinStep     float64 `yaml:"min_step"`     // candidate distance in body sizes
	MaxStep     float64 `yaml:"max_step"`     // candidate distance in body sizes
	MinAltitude float64 `yaml:"min_altitude"` // flyers climb below this height in meters
	MaxAltitude float64 `yaml:"max_altitude"` // flyers descend above this height in meters
	AvoidAngle  float64 `yaml:"avoid_angle"`  // turn bias when an obstacle is registered
	AvoidRate   float64 `yaml:"avoid_rate"`   // approach rate toward avoid_angle per tick
	AvoidDecay  float64 `yaml:"avoid_decay"`  // decay factor per tick without obstacle
}

// VitalsConfig holds metabolism rates in units per second.
type VitalsConfig struct {
	Max          float64 `yaml:"max"`
	FoodDrain    float64 `yaml:"food_drain"`
	WaterDrain   float64 `yaml:"water_drain"`
	StaminaDrain float64 `yaml:"stamina_drain"` // while running
	EatRate      float64 `yaml:"eat_rate"`
	DrinkRate    float64 `yaml:"drink_rate"`
	SleepRate    float64 `yaml:"sleep_rate"`
	StarveDamage float64 `yaml:"starve_damage"` // health loss while food or water is empty
	HealRate     float64 `yaml:"heal_rate"`
}

// CombatConfig holds attack resolution parameters.
type CombatConfig struct {
	Damage   float64 `yaml:"damage"`   // health per second at equal size
	Cooldown float64 `yaml:"cooldown"` // seconds between bites
}

// PopulationConfig holds initial spawn parameters.
type PopulationConfig struct {
	SpawnMargin float64 `yaml:"spawn_margin"` // keep spawns this far from the world edge
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds
	Compress    bool    `yaml:"compress"`     // zstd-compress CSV output
}

// ArchetypeConfig defines a species template.
type ArchetypeConfig struct {
	Name      string  `yaml:"name"`
	Diet      string  `yaml:"diet"` // "herbivore" or "carnivore"
	Count     int     `yaml:"count"`
	Size      float64 `yaml:"size"`
	Reach     float64 `yaml:"reach"`
	WalkSpeed float64 `yaml:"walk_speed"`
	RunSpeed  float64 `yaml:"run_speed"`
	TurnRate  float64 `yaml:"turn_rate"` // radians per second
	CanWalk   bool    `yaml:"can_walk"`
	CanSwim   bool    `yaml:"can_swim"`
	CanFly    bool    `yaml:"can_fly"`
	LowFlight bool    `yaml:"low_flight"`
	CanAttack bool    `yaml:"can_attack"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TicksPerSecond float64
	ArchetypeIndex map[string]uint8 // name -> index for archetype lookup
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
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
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Clone returns a deep copy, safe to mutate independently.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Archetypes = append([]ArchetypeConfig(nil), c.Archetypes...)
	cp.computeDerived()
	return &cp
}

func (c *Config) validate() error {
	if c.Sim.DT <= 0 {
		return fmt.Errorf("sim.dt must be positive, got %v", c.Sim.DT)
	}
	if c.World.Size <= 0 || c.World.CellSize <= 0 {
		return fmt.Errorf("world.size and world.cell_size must be positive")
	}
	if c.Steering.WidenStep <= 0 {
		return fmt.Errorf("steering.widen_step must be positive, got %v", c.Steering.WidenStep)
	}
	for _, arch := range c.Archetypes {
		if arch.Diet != "herbivore" && arch.Diet != "carnivore" {
			return fmt.Errorf("archetype %q: unknown diet %q", arch.Name, arch.Diet)
		}
		if arch.Size <= 0 {
			return fmt.Errorf("archetype %q: size must be positive", arch.Name)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TicksPerSecond = 1.0 / c.Sim.DT

	for i := range c.Archetypes {
		arch := &c.Archetypes[i]
		if arch.Reach == 0 {
			arch.Reach = arch.Size * 1.5
		}
		if arch.RunSpeed == 0 {
			arch.RunSpeed = arch.WalkSpeed * 2.5
		}
		if arch.TurnRate == 0 {
			arch.TurnRate = 3.0
		}
		// Everything that is not a swimmer or a flyer walks
		if !arch.CanSwim && !arch.CanFly {
			arch.CanWalk = true
		}
	}

	c.Derived.ArchetypeIndex = make(map[string]uint8, len(c.Archetypes))
	for i, arch := range c.Archetypes {
		c.Derived.ArchetypeIndex[arch.Name] = uint8(i)
	}
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
