// Package config loads molprint settings: element radii, pin defaults,
// assembly and floor tuning, kernel selection and logging.
//
// Load order is .env (if present), then the YAML file, then MOLPRINT_*
// environment overrides. The result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure returned from Load or
// Validate.
var ErrInvalid = errors.New("invalid config")

var validate = validator.New()

// Config is the complete settings record.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Kernel   KernelConfig   `yaml:"kernel"`
	Radii    Radii          `yaml:"radii"`
	Interact InteractConfig `yaml:"interact"`
	Grouping GroupingConfig `yaml:"grouping"`
	Pins     PinConfig      `yaml:"pins"`
	Bonds    BondConfig     `yaml:"bonds"`
	Assembly AssemblyConfig `yaml:"assembly"`
	Floor    FloorConfig    `yaml:"floor"`
	Script   ScriptConfig   `yaml:"script"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// KernelConfig selects the CSG backend. Cells is the marching-cubes
// resolution of the exact solver; FallbackCells is used when a boolean has
// to be retried at lower precision.
type KernelConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=sdfx manifold"`
	Cells         int    `yaml:"cells" validate:"min=16,max=2000"`
	FallbackCells int    `yaml:"fallback_cells" validate:"min=8,max=2000"`
	Segments      int    `yaml:"segments" validate:"min=3,max=256"`
}

// Radii are the per-element sphere radii used by the classifiers, plus the
// hydrogen-bond threshold for cylinders.
type Radii struct {
	Carbon     float64 `yaml:"carbon" validate:"gte=0,lte=4"`
	Nitrogen   float64 `yaml:"nitrogen" validate:"gte=0,lte=4"`
	Oxygen     float64 `yaml:"oxygen" validate:"gte=0,lte=4"`
	Phosphorus float64 `yaml:"phosphorus" validate:"gte=0,lte=4"`
	Hydrogen   float64 `yaml:"hydrogen" validate:"gte=0,lte=4"`
	Sulfur     float64 `yaml:"sulfur" validate:"gte=0,lte=4"`
	MaxHBond   float64 `yaml:"max_hbond" validate:"gte=0.1,lte=0.5"`
}

// InteractConfig tunes interaction detection. MeshCells is the
// marching-cubes resolution of the throwaway meshes used for overlap tests.
type InteractConfig struct {
	Cutoff    float64 `yaml:"cutoff" validate:"gt=0"`
	MeshCells int     `yaml:"mesh_cells" validate:"min=8,max=400"`
}

type GroupingConfig struct {
	// AutoGroup re-runs grouping on every selection change once the
	// interaction index exists.
	AutoGroup bool `yaml:"auto_group"`
	// GlycoMinSpread is the minimum mean pairwise distance between the
	// three neighbors of a glycosidic carbon.
	GlycoMinSpread float64 `yaml:"glyco_min_spread" validate:"gte=0"`
}

type PinConfig struct {
	Type     int     `yaml:"type" validate:"min=0,max=2"`
	Diameter float64 `yaml:"diameter" validate:"gt=0,lte=1"`
	Sides    int     `yaml:"sides" validate:"min=3,max=256"`
	Decrease float64 `yaml:"decrease" validate:"gte=0"`
	// Scale enlarges pins before they are subtracted from sockets.
	Scale float64 `yaml:"scale" validate:"gte=0.5,lte=1.5"`
}

type BondConfig struct {
	StrutRadius    float64 `yaml:"strut_radius" validate:"gte=0.1,lte=0.3"`
	BondScale      float64 `yaml:"bond_scale" validate:"gte=0.1,lte=1.5"`
	AtomScale      float64 `yaml:"atom_scale" validate:"gte=0.1,lte=1.5"`
	DoubleScale    float64 `yaml:"double_scale" validate:"gt=0,lte=1"`
	DoubleDistance float64 `yaml:"double_distance" validate:"gt=0"`
}

type AssemblyConfig struct {
	MultiColor  bool    `yaml:"multi_color"`
	RepairScale float64 `yaml:"repair_scale" validate:"gte=2"`
}

type FloorConfig struct {
	// DissolveAngle is the coplanarity tolerance in radians used to merge
	// hull triangles into faces.
	DissolveAngle float64 `yaml:"dissolve_angle" validate:"gt=0,lt=1.5708"`
}

type ScriptConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Default returns the stock settings.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Kernel: KernelConfig{
			Backend:       "sdfx",
			Cells:         200,
			FallbackCells: 80,
			Segments:      16,
		},
		Radii: Radii{
			Carbon:     0.510,
			Nitrogen:   0.465,
			Oxygen:     0.456,
			Phosphorus: 0.540,
			Hydrogen:   0.360,
			Sulfur:     0.0001,
			MaxHBond:   0.250,
		},
		Interact: InteractConfig{Cutoff: 2.0, MeshCells: 32},
		Grouping: GroupingConfig{AutoGroup: true, GlycoMinSpread: 5.56},
		Pins: PinConfig{
			Type:     1,
			Diameter: 0.66,
			Sides:    16,
			Decrease: 0.3,
			Scale:    1.0,
		},
		Bonds: BondConfig{
			StrutRadius:    0.175,
			BondScale:      1.0,
			AtomScale:      1.0,
			DoubleScale:    0.6,
			DoubleDistance: 1.0,
		},
		Assembly: AssemblyConfig{RepairScale: 30},
		Floor:    FloorConfig{DissolveAngle: 0.09},
		Script:   ScriptConfig{Timeout: 5 * time.Second},
	}
}

// Load reads a YAML file over the defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MOLPRINT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MOLPRINT_KERNEL"); v != "" {
		c.Kernel.Backend = v
	}
	if v := os.Getenv("MOLPRINT_MULTICOLOR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: MOLPRINT_MULTICOLOR: %v", ErrInvalid, err)
		}
		c.Assembly.MultiColor = b
	}
	if v := os.Getenv("MOLPRINT_MAX_HBOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: MOLPRINT_MAX_HBOND: %v", ErrInvalid, err)
		}
		c.Radii.MaxHBond = f
	}
	if v := os.Getenv("MOLPRINT_SCRIPT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: MOLPRINT_SCRIPT_TIMEOUT: %v", ErrInvalid, err)
		}
		c.Script.Timeout = d
	}
	return nil
}

// Validate checks struct constraints and a few cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Kernel.FallbackCells > c.Kernel.Cells {
		return fmt.Errorf("%w: kernel.fallback_cells (%d) must not exceed kernel.cells (%d)",
			ErrInvalid, c.Kernel.FallbackCells, c.Kernel.Cells)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, e := range verrs {
		switch e.Tag() {
		case "min", "gte":
			return fmt.Errorf("%w: %s must be at least %s", ErrInvalid, e.Namespace(), e.Param())
		case "max", "lte":
			return fmt.Errorf("%w: %s must not exceed %s", ErrInvalid, e.Namespace(), e.Param())
		case "gt":
			return fmt.Errorf("%w: %s must be greater than %s", ErrInvalid, e.Namespace(), e.Param())
		case "oneof":
			return fmt.Errorf("%w: %s must be one of [%s]", ErrInvalid, e.Namespace(), e.Param())
		default:
			return fmt.Errorf("%w: %s failed %s", ErrInvalid, e.Namespace(), e.Tag())
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}
