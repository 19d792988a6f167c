package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/LdDl/traffiq-go/pipeline"
	"github.com/LdDl/traffiq-go/safety"
	"github.com/LdDl/traffiq-go/speed"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// emptyEnvFile keeps tests independent of a .env lying in the working directory
func emptyEnvFile(t *testing.T) string {
	return writeFile(t, ".env", "")
}

func TestDefaultsMatchPipeline(t *testing.T) {
	cfg, err := Load("", emptyEnvFile(t))
	require.NoError(t, err)
	converted, err := cfg.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, pipeline.DefaultConfig(), converted)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Equal(t, 2, cfg.Speed.Decimals)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "traffiq.yaml", `
log_level: debug
metrics_addr: ":9100"
proc_time_buckets: [0.5, 1, 5]
classes:
  vehicles: [car, van]
  person: rider
  gear: hardhat
  min_confidence: 0.3
tracker:
  retirement_misses: 5
  matching: hungarian
  max_plausible_speed: 0
speed:
  frame_rate: 25
  pixels_per_unit: 8
  unit: mph
  smoothing: window
  window: 3
safety:
  policy: containment
  threshold: 0.6
`)
	cfg, err := Load(path, emptyEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, []float64{0.5, 1, 5}, cfg.ProcTimeBuckets)

	converted, err := cfg.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"car", "van"}, converted.VehicleClasses)
	assert.Equal(t, "rider", converted.PersonClass)
	assert.Equal(t, "hardhat", converted.GearClass)
	assert.Equal(t, 0.3, converted.MinConfidence)
	assert.Equal(t, 0.0, converted.MaxPlausibleSpeed)
	assert.Equal(t, 5, converted.Tracker.RetirementMisses)
	assert.Equal(t, mot.MatchingAlgorithmHungarian, converted.Tracker.Algorithm)
	assert.Equal(t, 25.0, converted.Tracker.FrameRate)
	assert.Equal(t, speed.Config{PixelsPerUnit: 8, FrameRate: 25, Unit: speed.MPH, Smoothing: speed.SmoothingWindow, Window: 3}, converted.Speed)
	assert.Equal(t, safety.Policy{Kind: safety.PolicyContainment, Threshold: 0.6}, converted.Policy)
	// Untouched keys keep defaults
	assert.Equal(t, 150, converted.Tracker.MaxTrailLength)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "traffiq.yaml", "speed:\n  unit: mph\n  frame_rate: 25\n")
	t.Setenv("TRAFFIQ_UNIT", "mps")
	t.Setenv("TRAFFIQ_VEHICLE_CLASSES", "car, truck ,")
	t.Setenv("TRAFFIQ_PROC_TIME_BUCKETS", "1, 2.5,10")
	t.Setenv("TRAFFIQ_SAFETY_POLICY", "iou")
	t.Setenv("TRAFFIQ_SAFETY_THRESHOLD", "0.1")

	cfg, err := Load(path, emptyEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, speed.MPS, cfg.Speed.Unit)
	assert.Equal(t, 25.0, cfg.Speed.FrameRate)
	assert.Equal(t, []string{"car", "truck"}, cfg.Classes.Vehicles)
	assert.Equal(t, []float64{1, 2.5, 10}, cfg.ProcTimeBuckets)
	assert.Equal(t, "iou", cfg.Safety.Policy)
}

func TestDotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "TRAFFIQ_PIXELS_PER_UNIT=12.5\nTRAFFIQ_RETIREMENT_MISSES=7\nTRAFFIQ_FRAME_RATE=60\n")
	t.Setenv("TRAFFIQ_FRAME_RATE", "50")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 12.5, cfg.Speed.PixelsPerUnit)
	assert.Equal(t, 7, cfg.Tracker.RetirementMisses)
	// Process environment wins over .env
	assert.Equal(t, 50.0, cfg.Speed.FrameRate)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), emptyEnvFile(t))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.yaml", "speed: [\n"), emptyEnvFile(t))
	assert.Error(t, err)

	tests := []struct {
		name  string
		yaml  string
		key   string
		value string
	}{
		{name: "zero scale", yaml: "speed:\n  pixels_per_unit: 0\n"},
		{name: "negative frame rate", yaml: "speed:\n  frame_rate: -1\n"},
		{name: "unknown unit", yaml: "speed:\n  unit: knots\n"},
		{name: "unknown smoothing", yaml: "speed:\n  smoothing: median\n"},
		{name: "negative retirement", yaml: "tracker:\n  retirement_misses: -1\n"},
		{name: "unknown matching", yaml: "tracker:\n  matching: auction\n"},
		{name: "unknown policy", yaml: "safety:\n  policy: any\n"},
		{name: "log level", yaml: "log_level: loud\n"},
		{name: "buckets order", yaml: "proc_time_buckets: [5, 1]\n"},
		{name: "env not a number", key: "TRAFFIQ_FRAME_RATE", value: "fast"},
		{name: "env not an integer", key: "TRAFFIQ_RETIREMENT_MISSES", value: "1.5"},
		{name: "env buckets", key: "TRAFFIQ_PROC_TIME_BUCKETS", value: "1,x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "traffiq.yaml", tt.yaml)
			}
			if tt.key != "" {
				t.Setenv(tt.key, tt.value)
			}
			_, err := Load(path, emptyEnvFile(t))
			assert.Error(t, err)
		})
	}
}

func TestParseBuckets(t *testing.T) {
	buckets, err := ParseBuckets("")
	require.NoError(t, err)
	assert.Nil(t, buckets)

	buckets, err = ParseBuckets("0.1, 1,10")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 1, 10}, buckets)

	_, err = ParseBuckets("1,,2")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseBuckets("2,2")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
