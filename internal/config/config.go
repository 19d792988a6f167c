// Package config loads settings of the traffiq CLI.
//
// Order of precedence (highest first): process environment, .env file, YAML file, defaults.
package config

import (
	"os"
	"strings"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/LdDl/traffiq-go/pipeline"
	"github.com/LdDl/traffiq-go/safety"
	"github.com/LdDl/traffiq-go/speed"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for values that can't be used
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root of configuration file
type Config struct {
	LogLevel        string        `yaml:"log_level"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ProcTimeBuckets []float64     `yaml:"proc_time_buckets"`
	Classes         ClassesConfig `yaml:"classes"`
	Tracker         TrackerConfig `yaml:"tracker"`
	Speed           SpeedConfig   `yaml:"speed"`
	Safety          SafetyConfig  `yaml:"safety"`
}

// ClassesConfig maps detector labels onto roles
type ClassesConfig struct {
	Vehicles      []string `yaml:"vehicles"`
	Person        string   `yaml:"person"`
	Gear          string   `yaml:"gear"`
	MinConfidence float64  `yaml:"min_confidence"`
}

// TrackerConfig is configuration of vehicles tracking
type TrackerConfig struct {
	RetirementMisses  int     `yaml:"retirement_misses"`
	MaxTrailLength    int     `yaml:"max_trail_length"`
	Matching          string  `yaml:"matching"`
	MaxPlausibleSpeed float64 `yaml:"max_plausible_speed"`
}

// SpeedConfig is configuration of speed estimation
type SpeedConfig struct {
	FrameRate     float64 `yaml:"frame_rate"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"`
	Unit          string  `yaml:"unit"`
	Smoothing     string  `yaml:"smoothing"`
	Window        int     `yaml:"window"`
	// Decimal places of reported speed. Negative keeps full precision
	Decimals int `yaml:"decimals"`
}

// SafetyConfig is configuration of protective gear check
type SafetyConfig struct {
	Policy    string  `yaml:"policy"`
	Threshold float64 `yaml:"threshold"`
}

// Default returns configuration matching pipeline.DefaultConfig
func Default() *Config {
	defaults := pipeline.DefaultConfig()
	return &Config{
		LogLevel:    "info",
		MetricsAddr: "",
		Classes: ClassesConfig{
			Vehicles:      defaults.VehicleClasses,
			Person:        defaults.PersonClass,
			Gear:          defaults.GearClass,
			MinConfidence: defaults.MinConfidence,
		},
		Tracker: TrackerConfig{
			RetirementMisses:  defaults.Tracker.RetirementMisses,
			MaxTrailLength:    defaults.Tracker.MaxTrailLength,
			Matching:          defaults.Tracker.Algorithm.String(),
			MaxPlausibleSpeed: defaults.MaxPlausibleSpeed,
		},
		Speed: SpeedConfig{
			FrameRate:     defaults.Speed.FrameRate,
			PixelsPerUnit: defaults.Speed.PixelsPerUnit,
			Unit:          defaults.Speed.Unit,
			Smoothing:     defaults.Speed.Smoothing,
			Window:        defaults.Speed.Window,
			Decimals:      2,
		},
		Safety: SafetyConfig{
			Policy: string(defaults.Policy.Kind),
		},
	}
}

// Load reads YAML file (if path is not empty) over defaults and then applies TRAFFIQ_* variables.
// Variables are taken from the process environment first and from envFiles second.
// Without envFiles ".env" in the working directory is used if it exists.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "can't read configuration file '%s'", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "can't parse configuration file '%s'", path)
		}
	}
	dotenv, err := godotenv.Read(envFiles...)
	if err != nil {
		if len(envFiles) > 0 || !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "can't read .env file")
		}
		dotenv = map[string]string{}
	}
	env := environment(func(key string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		return dotenv[key]
	})
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv(env environment) error {
	var err error
	cfg.LogLevel = env.getString("TRAFFIQ_LOG_LEVEL", cfg.LogLevel)
	cfg.MetricsAddr = env.getString("TRAFFIQ_METRICS_ADDR", cfg.MetricsAddr)
	if value := env("TRAFFIQ_PROC_TIME_BUCKETS"); value != "" {
		if cfg.ProcTimeBuckets, err = ParseBuckets(value); err != nil {
			return errors.Wrap(err, "TRAFFIQ_PROC_TIME_BUCKETS")
		}
	}
	if value := env("TRAFFIQ_VEHICLE_CLASSES"); value != "" {
		cfg.Classes.Vehicles = splitList(value)
	}
	cfg.Classes.Person = env.getString("TRAFFIQ_PERSON_CLASS", cfg.Classes.Person)
	cfg.Classes.Gear = env.getString("TRAFFIQ_GEAR_CLASS", cfg.Classes.Gear)
	if cfg.Classes.MinConfidence, err = env.getFloat("TRAFFIQ_MIN_CONFIDENCE", cfg.Classes.MinConfidence); err != nil {
		return err
	}

	if cfg.Tracker.RetirementMisses, err = env.getInt("TRAFFIQ_RETIREMENT_MISSES", cfg.Tracker.RetirementMisses); err != nil {
		return err
	}
	if cfg.Tracker.MaxTrailLength, err = env.getInt("TRAFFIQ_MAX_TRAIL_LENGTH", cfg.Tracker.MaxTrailLength); err != nil {
		return err
	}
	cfg.Tracker.Matching = env.getString("TRAFFIQ_MATCHING", cfg.Tracker.Matching)
	if cfg.Tracker.MaxPlausibleSpeed, err = env.getFloat("TRAFFIQ_MAX_PLAUSIBLE_SPEED", cfg.Tracker.MaxPlausibleSpeed); err != nil {
		return err
	}

	if cfg.Speed.FrameRate, err = env.getFloat("TRAFFIQ_FRAME_RATE", cfg.Speed.FrameRate); err != nil {
		return err
	}
	if cfg.Speed.PixelsPerUnit, err = env.getFloat("TRAFFIQ_PIXELS_PER_UNIT", cfg.Speed.PixelsPerUnit); err != nil {
		return err
	}
	cfg.Speed.Unit = env.getString("TRAFFIQ_UNIT", cfg.Speed.Unit)
	cfg.Speed.Smoothing = env.getString("TRAFFIQ_SMOOTHING", cfg.Speed.Smoothing)
	if cfg.Speed.Window, err = env.getInt("TRAFFIQ_SMOOTHING_WINDOW", cfg.Speed.Window); err != nil {
		return err
	}
	if cfg.Speed.Decimals, err = env.getInt("TRAFFIQ_SPEED_DECIMALS", cfg.Speed.Decimals); err != nil {
		return err
	}

	cfg.Safety.Policy = env.getString("TRAFFIQ_SAFETY_POLICY", cfg.Safety.Policy)
	if cfg.Safety.Threshold, err = env.getFloat("TRAFFIQ_SAFETY_THRESHOLD", cfg.Safety.Threshold); err != nil {
		return err
	}
	return nil
}

// Validate checks that configuration can be turned into working components
func (cfg *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log level '%s'", cfg.LogLevel)
	}
	if err := validateBuckets(cfg.ProcTimeBuckets); err != nil {
		return err
	}
	pipelineConfig, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}
	return pipelineConfig.Validate()
}

// Level returns parsed log level. Unknown values give zerolog.InfoLevel
func (cfg *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// PipelineConfig converts configuration into pipeline.Config
func (cfg *Config) PipelineConfig() (pipeline.Config, error) {
	algorithm, ok := mot.ParseMatchingAlgorithm(cfg.Tracker.Matching)
	if !ok {
		return pipeline.Config{}, errors.Wrapf(ErrInvalidConfig, "unknown matching algorithm '%s'", cfg.Tracker.Matching)
	}
	policy, err := safety.ParsePolicy(cfg.Safety.Policy, cfg.Safety.Threshold)
	if err != nil {
		return pipeline.Config{}, err
	}
	tracker := mot.DefaultTrackerConfig()
	tracker.FrameRate = cfg.Speed.FrameRate
	tracker.RetirementMisses = cfg.Tracker.RetirementMisses
	tracker.MaxTrailLength = cfg.Tracker.MaxTrailLength
	tracker.Algorithm = algorithm
	return pipeline.Config{
		VehicleClasses:    cfg.Classes.Vehicles,
		PersonClass:       cfg.Classes.Person,
		GearClass:         cfg.Classes.Gear,
		MinConfidence:     cfg.Classes.MinConfidence,
		MaxPlausibleSpeed: cfg.Tracker.MaxPlausibleSpeed,
		Tracker:           tracker,
		Speed: speed.Config{
			PixelsPerUnit: cfg.Speed.PixelsPerUnit,
			FrameRate:     cfg.Speed.FrameRate,
			Unit:          strings.ToLower(cfg.Speed.Unit),
			Smoothing:     cfg.Speed.Smoothing,
			Window:        cfg.Speed.Window,
		},
		Policy: policy,
	}, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}
