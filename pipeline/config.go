package pipeline

import (
	"math"
	"strings"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/LdDl/traffiq-go/safety"
	"github.com/LdDl/traffiq-go/speed"
	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned by NewProcessor for unusable configuration
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// Config holds parameters of the per-frame stage
type Config struct {
	// Labels routed to the tracker
	VehicleClasses []string
	// Label of persons checked for protective gear
	PersonClass string
	// Label of protective gear
	GearClass string
	// Detections below this confidence are skipped
	MinConfidence float64
	// Max plausible vehicle speed in the reporting unit. Non-positive disables displacement gating
	MaxPlausibleSpeed float64
	// Frame rate of Tracker is taken from Speed
	Tracker mot.TrackerConfig
	Speed   speed.Config
	Policy  safety.Policy
}

// DefaultConfig returns COCO-like vehicle labels, helmets as gear, 30 fps, 10 px/m and km/h
func DefaultConfig() Config {
	tracker := mot.DefaultTrackerConfig()
	return Config{
		VehicleClasses:    []string{"car", "motorbike", "bus", "truck", "auto"},
		PersonClass:       "person",
		GearClass:         "helmet",
		MinConfidence:     0.5,
		MaxPlausibleSpeed: 250.0,
		Tracker:           tracker,
		Speed:             speed.DefaultConfig(),
		Policy:            safety.DefaultPolicy(),
	}
}

// Validate checks configuration
func (config Config) Validate() error {
	if len(config.VehicleClasses) == 0 {
		return errors.Wrap(ErrInvalidConfig, "vehicle class set is empty")
	}
	seen := make(map[string]struct{}, len(config.VehicleClasses))
	for _, class := range config.VehicleClasses {
		if strings.TrimSpace(class) == "" {
			return errors.Wrap(ErrInvalidConfig, "empty vehicle class label")
		}
		seen[class] = struct{}{}
	}
	if strings.TrimSpace(config.PersonClass) == "" {
		return errors.Wrap(ErrInvalidConfig, "person class label is empty")
	}
	if strings.TrimSpace(config.GearClass) == "" {
		return errors.Wrap(ErrInvalidConfig, "gear class label is empty")
	}
	if config.PersonClass == config.GearClass {
		return errors.Wrapf(ErrInvalidConfig, "person and gear share label '%s'", config.PersonClass)
	}
	for _, label := range []string{config.PersonClass, config.GearClass} {
		if _, ok := seen[label]; ok {
			return errors.Wrapf(ErrInvalidConfig, "label '%s' is both a vehicle and a person/gear class", label)
		}
	}
	if math.IsNaN(config.MinConfidence) || config.MinConfidence < 0 || config.MinConfidence > 1 {
		return errors.Wrapf(ErrInvalidConfig, "min confidence %v is out of [0, 1]", config.MinConfidence)
	}
	if math.IsNaN(config.MaxPlausibleSpeed) {
		return errors.Wrap(ErrInvalidConfig, "max plausible speed is NaN")
	}
	if config.Tracker.RetirementMisses < 0 {
		return errors.Wrapf(ErrInvalidConfig, "track retirement misses must be non-negative, got %d", config.Tracker.RetirementMisses)
	}
	if err := config.Speed.Validate(); err != nil {
		return errors.Wrap(err, "speed")
	}
	if err := config.Policy.Validate(); err != nil {
		return errors.Wrap(err, "protection policy")
	}
	return nil
}
