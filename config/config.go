// Package config provides configuration loading and access for the merge engine.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// NumTiers is the number of fruit tiers the engine supports.
const NumTiers = 10

var (
	// ErrInvalidTiers is returned when the tier table cannot drive spawning.
	ErrInvalidTiers = errors.New("invalid tier table")
	// ErrInvalidConfig is returned for out-of-range tuning values.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds all engine configuration parameters.
type Config struct {
	Screen      ScreenConfig      `yaml:"screen"`
	Container   ContainerConfig   `yaml:"container"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Tiers       []TierConfig      `yaml:"tiers"`
	Spawn       SpawnConfig       `yaml:"spawn"`
	Merge       MergeConfig       `yaml:"merge"`
	Golden      GoldenConfig      `yaml:"golden"`
	Skills      SkillsConfig      `yaml:"skills"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Replication ReplicationConfig `yaml:"replication"`
	Audio       AudioConfig       `yaml:"audio"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the graphical viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// ContainerConfig describes the box fruit fall into.
// Y grows downward; the ceiling line is the max-height trigger.
type ContainerConfig struct {
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	SpawnerY        float64 `yaml:"spawner_y"`        // Height at which held fruit wait
	CeilingY        float64 `yaml:"ceiling_y"`        // Max-height trigger line
	OverflowSeconds float64 `yaml:"overflow_seconds"` // Ceiling contact time before game over (0 = never)
	ExitMargin      float64 `yaml:"exit_margin"`      // Distance past a wall that counts as out of bounds
}

// PhysicsConfig holds parameters for the bundled circle solver.
type PhysicsConfig struct {
	DT           float64 `yaml:"dt"`
	Gravity      float64 `yaml:"gravity"`
	Damping      float64 `yaml:"damping"`     // Velocity retained per second (0..1)
	Restitution  float64 `yaml:"restitution"` // Bounce on wall contact
	Iterations   int     `yaml:"iterations"`  // Contact resolution passes per step
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// TierConfig describes one fruit tier.
type TierConfig struct {
	Name       string  `yaml:"name"`
	BaseWeight int     `yaml:"base_weight"` // Spawn weight before adjacency modifiers
	Value      *int    `yaml:"value"`       // Points; defaults to the tier ordinal
	Radius     float64 `yaml:"radius"`      // Natural radius at scale 1
	Mass       float64 `yaml:"mass"`
}

// SpawnConfig holds the adjacency modifier policy.
type SpawnConfig struct {
	GlobalModifier int  `yaml:"global_modifier"`
	FavorLower     bool `yaml:"favor_lower"`
	FavorHigher    bool `yaml:"favor_higher"`
	FavorSame      bool `yaml:"favor_same"`
}

// MergeConfig holds converge/grow timing.
type MergeConfig struct {
	EvolvingMass  float64 `yaml:"evolving_mass"`  // Mass pinned on both members while merging
	ConvergeSpeed float64 `yaml:"converge_speed"` // Radii per second
	GrowStep      float64 `yaml:"grow_step"`      // Scale added per growth tick
	GrowInterval  float64 `yaml:"grow_interval"`  // Seconds between growth ticks
}

// GoldenConfig holds golden fruit parameters.
type GoldenConfig struct {
	ChancePercent float64 `yaml:"chance_percent"`
	MinLiveFruits int     `yaml:"min_live_fruits"`
}

// SkillsConfig holds skill parameters.
type SkillsConfig struct {
	PowerMassMultiplier float64 `yaml:"power_mass_multiplier"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	MilestoneHistory    int     `yaml:"milestone_history"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	ComboMultiplier     float64 `yaml:"combo_multiplier"` // Merge surge threshold vs rolling average
	ComboMinMerges      int     `yaml:"combo_min_merges"`
}

// ReplicationConfig holds the merge replication hub settings.
type ReplicationConfig struct {
	Addr         string  `yaml:"addr"`
	SendBuffer   int     `yaml:"send_buffer"`
	WriteTimeout float64 `yaml:"write_timeout"` // Seconds
}

// AudioConfig holds synth settings.
type AudioConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate int     `yaml:"sample_rate"`
	Volume     float64 `yaml:"volume"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32        float32  // Physics.DT as float32
	ContainerW  float32  // Container.Width as float32
	ContainerH  float32  // Container.Height as float32
	TierValues  []int    // Resolved per-tier point values
	TierNames   []string // Per-tier display names
	MaxRadius32 float32  // Largest tier radius, sizes the broadphase grid
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

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults. Panics if they fail to load,
// which only happens when defaults.yaml itself is broken.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the invariants the engine relies on at startup.
func (c *Config) Validate() error {
	if len(c.Tiers) != NumTiers {
		return fmt.Errorf("%w: want %d tiers, got %d", ErrInvalidTiers, NumTiers, len(c.Tiers))
	}
	for i, t := range c.Tiers {
		if t.BaseWeight < 0 {
			return fmt.Errorf("%w: tier %d (%s) has negative base weight", ErrInvalidTiers, i, t.Name)
		}
		if t.Radius <= 0 {
			return fmt.Errorf("%w: tier %d (%s) needs a positive radius", ErrInvalidTiers, i, t.Name)
		}
	}
	// First spawn of a session draws from the unmodified table,
	// so the pool below the first zero weight must carry weight.
	if c.Tiers[0].BaseWeight == 0 {
		return fmt.Errorf("%w: spawn pool sums to zero", ErrInvalidTiers)
	}
	if c.Merge.GrowStep <= 0 || c.Merge.ConvergeSpeed <= 0 || c.Merge.GrowInterval <= 0 {
		return fmt.Errorf("%w: merge grow_step, grow_interval and converge_speed must be positive", ErrInvalidConfig)
	}
	if c.Golden.ChancePercent < 0 || c.Golden.ChancePercent > 100 {
		return fmt.Errorf("%w: golden chance_percent %v outside [0, 100]", ErrInvalidConfig, c.Golden.ChancePercent)
	}
	// A negative modifier can zero the favored tiers mid-session.
	if c.Spawn.GlobalModifier < 0 {
		return fmt.Errorf("%w: spawn global_modifier %d is negative", ErrInvalidConfig, c.Spawn.GlobalModifier)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.ContainerW = float32(c.Container.Width)
	c.Derived.ContainerH = float32(c.Container.Height)

	c.Derived.TierValues = make([]int, len(c.Tiers))
	c.Derived.TierNames = make([]string, len(c.Tiers))
	var maxRadius float64
	for i := range c.Tiers {
		tier := &c.Tiers[i]
		if tier.Value != nil {
			c.Derived.TierValues[i] = *tier.Value
		} else {
			c.Derived.TierValues[i] = i
		}
		if tier.Name == "" {
			tier.Name = fmt.Sprintf("tier-%d", i)
		}
		if tier.Mass == 0 {
			tier.Mass = tier.Radius * tier.Radius
		}
		c.Derived.TierNames[i] = tier.Name
		if tier.Radius > maxRadius {
			maxRadius = tier.Radius
		}
	}
	c.Derived.MaxRadius32 = float32(maxRadius)

	if c.Physics.Iterations < 1 {
		c.Physics.Iterations = 1
	}
	if c.Physics.GridCellSize == 0 {
		c.Physics.GridCellSize = maxRadius * 2
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
