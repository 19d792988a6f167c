package speed

import "strings"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	_, ok := UnitFactor(unit)
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// UnitFactor returns multiplier converting physical units per second into the reporting unit.
// Physical unit is whatever pixels_per_unit is calibrated against, meters for the metric units.
func UnitFactor(unit string) (float64, bool) {
	switch unit {
	case MPS:
		return 1.0, true
	case MPH:
		return 2.2369362920544, true
	case KMPH, KPH:
		return 3.6, true
	default:
		return 0, false
	}
}

// ConvertSpeed converts a speed from meters per second to the target units
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	factor, ok := UnitFactor(targetUnits)
	if !ok {
		return speedMPS
	}
	return speedMPS * factor
}
