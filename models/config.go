package models

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// PerformanceMode selects a preset bundle of simulation and LOD parameters.
type PerformanceMode string

const (
	ModeQuality  PerformanceMode = "quality"
	ModeBalanced PerformanceMode = "balanced"
	ModeBattery  PerformanceMode = "battery"
)

// Config enumerates every tunable of the engine. A Config is validated once
// at engine initialization; the engine refuses to start on a malformed one.
type Config struct {
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`

	// Link force.
	LinkDistance float64 `yaml:"link_distance" validate:"gt=0"`
	LinkStrength float64 `yaml:"link_strength" validate:"gt=0,lte=2"`

	// Charge (repulsion) force.
	ChargeStrength float64 `yaml:"charge_strength" validate:"lt=0"`
	ChargeTheta    float64 `yaml:"charge_theta" validate:"gt=0,lte=2"`
	ChargeDistMin  float64 `yaml:"charge_dist_min" validate:"gt=0"`
	ChargeDistMax  float64 `yaml:"charge_dist_max" validate:"gtfield=ChargeDistMin"`

	// Collision force.
	CollisionPadding    float64 `yaml:"collision_padding" validate:"gte=0"`
	CollisionIterations int     `yaml:"collision_iterations" validate:"gte=1,lte=10"`

	// Centering and optional arrangement forces.
	CenterStrength  float64 `yaml:"center_strength" validate:"gte=0,lt=1"`
	ClusterStrength float64 `yaml:"cluster_strength" validate:"gte=0,lt=1"`
	OrdinalStrength float64 `yaml:"ordinal_strength" validate:"gte=0,lt=1"`

	// Integration.
	VelocityDecay float64 `yaml:"velocity_decay" validate:"gt=0,lt=1"`
	AlphaDecay    float64 `yaml:"alpha_decay" validate:"gt=0,lt=1"`
	AlphaMin      float64 `yaml:"alpha_min" validate:"gt=0,lt=1"`

	// LOD tiers, coarse to fine: LODThresholds[i] is the minimum zoom for
	// tier i+1, so the slices must line up as len(budgets) = len(thresholds)+1.
	LODThresholds   []float64 `yaml:"lod_thresholds" validate:"required,min=1,dive,gt=0"`
	MaxNodesPerTier []int     `yaml:"max_nodes_per_tier" validate:"required,min=2,dive,gt=0"`
	MaxEdgesPerTier []int     `yaml:"max_edges_per_tier" validate:"required,min=2,dive,gt=0"`

	// Culling.
	CullPadding    float64 `yaml:"cull_padding" validate:"gte=0"`
	MinPixelRadius float64 `yaml:"min_pixel_radius" validate:"gte=0"`

	// Position stream throttling: emit at most once every N ticks.
	PositionEmitEvery int `yaml:"position_emit_every" validate:"gte=1"`

	PerformanceMode PerformanceMode `yaml:"performance_mode" validate:"omitempty,oneof=quality balanced battery"`
}

// DefaultConfig returns the balanced preset.
func DefaultConfig() Config {
	return Preset(ModeBalanced)
}

// Preset returns the parameter bundle for a performance mode. Unknown modes
// fall back to balanced.
func Preset(mode PerformanceMode) Config {
	cfg := Config{
		Width:  1280,
		Height: 800,

		LinkDistance: 60,
		LinkStrength: 0.7,

		ChargeStrength: -240,
		ChargeTheta:    0.9,
		ChargeDistMin:  1,
		ChargeDistMax:  600,

		CollisionPadding:    1.5,
		CollisionIterations: 2,

		CenterStrength:  0.03,
		ClusterStrength: 0,
		OrdinalStrength: 0,

		VelocityDecay: 0.4,
		AlphaDecay:    0.0228,
		AlphaMin:      0.001,

		LODThresholds:   []float64{0.25, 0.75},
		MaxNodesPerTier: []int{500, 1500, 5000},
		MaxEdgesPerTier: []int{800, 3000, 10000},

		CullPadding:       80,
		MinPixelRadius:    0.5,
		PositionEmitEvery: 3,

		PerformanceMode: ModeBalanced,
	}

	switch mode {
	case ModeQuality:
		cfg.ChargeTheta = 0.6
		cfg.CollisionIterations = 3
		cfg.MaxNodesPerTier = []int{1000, 3000, 8000}
		cfg.MaxEdgesPerTier = []int{1500, 6000, 16000}
		cfg.MinPixelRadius = 0.25
		cfg.PositionEmitEvery = 1
		cfg.PerformanceMode = ModeQuality
	case ModeBattery:
		cfg.ChargeTheta = 1.2
		cfg.CollisionIterations = 1
		cfg.AlphaDecay = 0.05
		cfg.MaxNodesPerTier = []int{250, 800, 2000}
		cfg.MaxEdgesPerTier = []int{400, 1200, 4000}
		cfg.MinPixelRadius = 1.0
		cfg.PositionEmitEvery = 6
		cfg.PerformanceMode = ModeBattery
	}
	return cfg
}

var validate = validator.New()

// Validate checks the config and returns a descriptive error for the first
// violated constraint, plus the cross-slice tier consistency rules the tag
// language cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.MaxNodesPerTier) != len(c.LODThresholds)+1 {
		return fmt.Errorf("invalid config: %d node budgets for %d thresholds, want %d",
			len(c.MaxNodesPerTier), len(c.LODThresholds), len(c.LODThresholds)+1)
	}
	if len(c.MaxEdgesPerTier) != len(c.LODThresholds)+1 {
		return fmt.Errorf("invalid config: %d edge budgets for %d thresholds, want %d",
			len(c.MaxEdgesPerTier), len(c.LODThresholds), len(c.LODThresholds)+1)
	}
	for i := 1; i < len(c.LODThresholds); i++ {
		if c.LODThresholds[i] <= c.LODThresholds[i-1] {
			return fmt.Errorf("invalid config: lod_thresholds must be strictly increasing")
		}
	}
	return nil
}

// LoadConfig reads a YAML config file layered over the preset named inside
// it (balanced when absent).
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var probe struct {
		PerformanceMode PerformanceMode `yaml:"performance_mode"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg := Preset(probe.PerformanceMode)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
