// Package config loads elbow settings from defaults, an optional YAML file
// and ELBOW_-prefixed environment variables, in increasing precedence.
package config

import (
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/chazu/elbow/internal/logging"
	"github.com/chazu/elbow/pkg/assembly"
	"github.com/chazu/elbow/pkg/centerline"
	"github.com/chazu/elbow/pkg/frames"
	"github.com/chazu/elbow/pkg/kernel/brep"
	"github.com/chazu/elbow/pkg/surface"
	"github.com/chazu/elbow/pkg/topology"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ELBOW_DEFLECTION.
const EnvPrefix = "ELBOW"

// Config is the complete elbow configuration.
type Config struct {
	// Tolerance is the edge matching distance of the adjacency index.
	Tolerance float64 `mapstructure:"tolerance"`
	// KernelTolerance is the confusion distance the B-Rep kernel uses for
	// coaxiality and degenerate edges. It is independent of Tolerance.
	KernelTolerance float64 `mapstructure:"kernelTolerance"`
	// Clearance is the radial gap between assembly parts.
	Clearance  float64  `mapstructure:"clearance"`
	Deflection float64  `mapstructure:"deflection"`
	Workers    int      `mapstructure:"workers"`
	HalfLength float64  `mapstructure:"halfLength"`
	Allowed    []string `mapstructure:"allowed"`
	FramesPath string   `mapstructure:"framesPath"`

	Logging  LoggingConfig  `mapstructure:"logging"`
	Assembly AssemblyConfig `mapstructure:"assembly"`
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SleeveConfig mirrors assembly.Sleeve.
type SleeveConfig struct {
	Thickness float64 `mapstructure:"thickness"`
	Length    float64 `mapstructure:"length"`
	Position  float64 `mapstructure:"position"`
}

// ArcConfig mirrors assembly.ArcSection with the sweep in degrees.
type ArcConfig struct {
	Radius    float64 `mapstructure:"radius"`
	Thickness float64 `mapstructure:"thickness"`
	AngleDeg  float64 `mapstructure:"angleDeg"`
}

// AssemblyConfig holds the default assembly parameters.
type AssemblyConfig struct {
	OuterRadius float64      `mapstructure:"outerRadius"`
	InnerRadius float64      `mapstructure:"innerRadius"`
	Length      float64      `mapstructure:"length"`
	Rotary      SleeveConfig `mapstructure:"rotary"`
	Fixed       SleeveConfig `mapstructure:"fixed"`
	Arc         ArcConfig    `mapstructure:"arc"`
}

// Parameters converts the section to assembly parameters.
func (a AssemblyConfig) Parameters() assembly.Parameters {
	return assembly.Parameters{
		TubeOuterRadius: a.OuterRadius,
		TubeInnerRadius: a.InnerRadius,
		TubeLength:      a.Length,
		Rotary:          assembly.Sleeve(a.Rotary),
		Fixed:           assembly.Sleeve(a.Fixed),
		Arc: assembly.ArcSection{
			Radius:    a.Arc.Radius,
			Thickness: a.Arc.Thickness,
			Angle:     a.Arc.AngleDeg * math.Pi / 180,
		},
	}
}

func setDefaults(v *viper.Viper) {
	p := assembly.DefaultParameters()

	v.SetDefault("tolerance", topology.DefaultTolerance)
	v.SetDefault("kernelTolerance", brep.DefaultTolerance)
	v.SetDefault("clearance", assembly.Clearance)
	v.SetDefault("deflection", 0.5)
	v.SetDefault("workers", 0)
	v.SetDefault("halfLength", centerline.DefaultHalfLength)
	v.SetDefault("allowed", []string{"cylindrical", "toroidal", "freeform-spline"})
	v.SetDefault("framesPath", frames.DefaultFileName)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("assembly.outerRadius", p.TubeOuterRadius)
	v.SetDefault("assembly.innerRadius", p.TubeInnerRadius)
	v.SetDefault("assembly.length", p.TubeLength)
	v.SetDefault("assembly.rotary.thickness", p.Rotary.Thickness)
	v.SetDefault("assembly.rotary.length", p.Rotary.Length)
	v.SetDefault("assembly.rotary.position", p.Rotary.Position)
	v.SetDefault("assembly.fixed.thickness", p.Fixed.Thickness)
	v.SetDefault("assembly.fixed.length", p.Fixed.Length)
	v.SetDefault("assembly.fixed.position", p.Fixed.Position)
	v.SetDefault("assembly.arc.radius", p.Arc.Radius)
	v.SetDefault("assembly.arc.thickness", p.Arc.Thickness)
	v.SetDefault("assembly.arc.angleDeg", p.Arc.Angle*180/math.Pi)
}

// Load reads the configuration. An empty path searches the working
// directory for elbow.yaml and falls back to defaults when there is none;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("elbow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the core cannot default on its own.
func (c *Config) Validate() error {
	if !(c.Tolerance > 0) {
		return &ConfigError{Field: "tolerance", Message: "must be positive"}
	}
	if !(c.KernelTolerance > 0) {
		return &ConfigError{Field: "kernelTolerance", Message: "must be positive"}
	}
	if !(c.Clearance > 0) {
		return &ConfigError{Field: "clearance", Message: "must be positive"}
	}
	if !(c.Deflection > 0) {
		return &ConfigError{Field: "deflection", Message: "must be positive"}
	}
	if !(c.HalfLength > 0) {
		return &ConfigError{Field: "halfLength", Message: "must be positive"}
	}
	if _, err := c.AllowedSet(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be text or json"}
	}
	return nil
}

// AllowedSet parses Allowed into a surface set.
func (c *Config) AllowedSet() (surface.Set, error) {
	if len(c.Allowed) == 0 {
		return 0, &ConfigError{Field: "allowed", Message: "empty surface type list"}
	}
	var types []surface.Type
	for _, name := range c.Allowed {
		t, ok := surface.ParseType(strings.TrimSpace(name))
		if !ok {
			return 0, &ConfigError{Field: "allowed", Message: "unknown surface type " + name}
		}
		types = append(types, t)
	}
	return surface.NewSet(types...), nil
}

// Logger builds the configured logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return logging.New(w, logging.LevelFromString(c.Logging.Level), c.Logging.Format)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
