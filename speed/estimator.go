// Package speed converts displacement of a tracked vehicle between two observations into ground speed.
//
// Estimates are instantaneous: one displacement over one time delta. That is noise-sensitive
// (detector jitter of a few pixels is amplified by the frame rate), so a Smoother can be plugged in.
// The default smoother passes raw estimates through unchanged.
package speed

import (
	"math"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidElapsedTime is returned for non-positive or non-finite time between observations
	ErrInvalidElapsedTime = errors.New("invalid elapsed time")
	// ErrInvalidConfig is returned by NewEstimator for unusable configuration
	ErrInvalidConfig = errors.New("invalid speed estimator configuration")
)

// Config holds parameters of the Estimator
type Config struct {
	// Pixels per physical unit (e.g. pixels per meter). Fixed calibration constant
	PixelsPerUnit float64
	// Frames per second of the detection source
	FrameRate float64
	// Reporting unit, one of ValidUnits
	Unit string
	// Smoothing hook, one of SmoothingNone, SmoothingWindow, SmoothingKalman
	Smoothing string
	// Window size for SmoothingWindow
	Window int
}

// DefaultConfig returns 10 px per meter, 30 fps, km/h without smoothing
func DefaultConfig() Config {
	return Config{
		PixelsPerUnit: 10.0,
		FrameRate:     30.0,
		Unit:          KMPH,
		Smoothing:     SmoothingNone,
		Window:        5,
	}
}

// Validate checks configuration
func (config Config) Validate() error {
	if !(config.PixelsPerUnit > 0) || math.IsInf(config.PixelsPerUnit, 0) {
		return errors.Wrapf(ErrInvalidConfig, "pixels per unit must be positive, got %v", config.PixelsPerUnit)
	}
	if !(config.FrameRate > 0) || math.IsInf(config.FrameRate, 0) {
		return errors.Wrapf(ErrInvalidConfig, "frame rate must be positive, got %v", config.FrameRate)
	}
	if !IsValid(config.Unit) {
		return errors.Wrapf(ErrInvalidConfig, "unknown unit '%s', expected one of: %s", config.Unit, GetValidUnitsString())
	}
	if !IsValidSmoothing(config.Smoothing) {
		return errors.Wrapf(ErrInvalidConfig, "unknown smoothing '%s'", config.Smoothing)
	}
	if config.Smoothing == SmoothingWindow && config.Window < 1 {
		return errors.Wrapf(ErrInvalidConfig, "smoothing window must be at least 1, got %d", config.Window)
	}
	return nil
}

// Estimator converts pixel displacement into speed in the reporting unit.
// It implements mot.SpeedEstimator.
type Estimator struct {
	config   Config
	factor   float64
	smoother Smoother
}

// NewEstimator creates new instance of Estimator
func NewEstimator(config Config) (*Estimator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	factor, _ := UnitFactor(config.Unit)
	est := &Estimator{
		config: config,
		factor: factor,
	}
	switch config.Smoothing {
	case SmoothingWindow:
		est.smoother = NewWindowSmoother(config.Window)
	case SmoothingKalman:
		est.smoother = NewKalmanSmoother(1.0/config.FrameRate, est.Convert)
	default:
		est.smoother = PassthroughSmoother{}
	}
	return est, nil
}

// Config returns estimator's configuration
func (est *Estimator) Config() Config {
	return est.config
}

// Estimate returns speed of the track moving from its last known position to newPosition during elapsed seconds.
// Nil track means first observation: there is no prior position, so speed is zero.
func (est *Estimator) Estimate(track *mot.Track, newPosition mot.Point, elapsed float64) (float64, error) {
	if !(elapsed > 0) || math.IsInf(elapsed, 0) {
		return 0, errors.Wrapf(ErrInvalidElapsedTime, "elapsed %v s", elapsed)
	}
	if track == nil {
		return 0, nil
	}
	previous := track.Position()
	raw := est.Convert(math.Hypot(newPosition.X-previous.X, newPosition.Y-previous.Y), elapsed)
	return est.smoother.Smooth(Sample{
		ID:       track.ID(),
		Previous: previous,
		Current:  newPosition,
		Elapsed:  elapsed,
		Raw:      raw,
	}), nil
}

// Forget drops smoothing state of the retired track
func (est *Estimator) Forget(id uuid.UUID) {
	est.smoother.Forget(id)
}

// Convert turns pixel distance covered during elapsed seconds into speed in the reporting unit
func (est *Estimator) Convert(pixels, elapsed float64) float64 {
	return (pixels / est.config.PixelsPerUnit) / elapsed * est.factor
}

// ElapsedFrames converts number of frames into seconds using the frame rate, not wall clock
func (est *Estimator) ElapsedFrames(frames int) float64 {
	return float64(frames) / est.config.FrameRate
}

// MaxPixelsPerSecond converts speed in the reporting unit into pixel displacement per second.
// Non-positive speed gives zero which disables displacement gating in mot.Tracker
func (est *Estimator) MaxPixelsPerSecond(maxSpeed float64) float64 {
	if !(maxSpeed > 0) {
		return 0
	}
	return maxSpeed / est.factor * est.config.PixelsPerUnit
}

// Round rounds speed to the given number of decimal places. Negative decimals leave value as is
func Round(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
