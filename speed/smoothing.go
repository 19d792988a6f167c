package speed

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/LdDl/traffiq-go/mot"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Smoothing hooks
const (
	SmoothingNone   = "none"
	SmoothingWindow = "window"
	SmoothingKalman = "kalman"
)

// IsValidSmoothing checks if the given smoothing name is known. Empty string means SmoothingNone
func IsValidSmoothing(name string) bool {
	switch name {
	case "", SmoothingNone, SmoothingWindow, SmoothingKalman:
		return true
	default:
		return false
	}
}

// Sample is a single raw observation of the track
type Sample struct {
	ID       uuid.UUID
	Previous mot.Point
	Current  mot.Point
	Elapsed  float64
	// Instantaneous speed in the reporting unit
	Raw float64
}

// Smoother turns raw per-frame estimates into reported speed
type Smoother interface {
	Smooth(sample Sample) float64
	Forget(id uuid.UUID)
}

// PassthroughSmoother reports raw estimates
type PassthroughSmoother struct{}

func (PassthroughSmoother) Smooth(sample Sample) float64 { return sample.Raw }
func (PassthroughSmoother) Forget(uuid.UUID)             {}

// WindowSmoother reports mean of the last N raw estimates of the track
type WindowSmoother struct {
	size    int
	history map[uuid.UUID][]float64
}

// NewWindowSmoother creates new instance of WindowSmoother
func NewWindowSmoother(size int) *WindowSmoother {
	return &WindowSmoother{
		size:    max(size, 1),
		history: make(map[uuid.UUID][]float64),
	}
}

// Smooth adds raw estimate to the window and returns window mean
func (smoother *WindowSmoother) Smooth(sample Sample) float64 {
	window := append(smoother.history[sample.ID], sample.Raw)
	if len(window) > smoother.size {
		window = window[len(window)-smoother.size:]
	}
	smoother.history[sample.ID] = window
	return stat.Mean(window, nil)
}

// Forget drops window of the track
func (smoother *WindowSmoother) Forget(id uuid.UUID) {
	delete(smoother.history, id)
}

type kalmanTrack struct {
	filter *kalman_filter.Kalman2D
	last   mot.Point
}

// KalmanSmoother filters track centers with 2D Kalman filter and reports speed between filtered positions
type KalmanSmoother struct {
	dt      float64
	convert func(pixels, elapsed float64) float64
	tracks  map[uuid.UUID]*kalmanTrack
}

// NewKalmanSmoother creates new instance of KalmanSmoother.
// dt is the nominal time step of the filter, convert turns pixel distance over elapsed seconds into reported speed
func NewKalmanSmoother(dt float64, convert func(pixels, elapsed float64) float64) *KalmanSmoother {
	return &KalmanSmoother{
		dt:      dt,
		convert: convert,
		tracks:  make(map[uuid.UUID]*kalmanTrack),
	}
}

// predictSteps returns number of filter time steps covered by elapsed seconds, at least one
func (smoother *KalmanSmoother) predictSteps(elapsed float64) int {
	if !(smoother.dt > 0) || !(elapsed > 0) || math.IsInf(elapsed, 0) {
		return 1
	}
	return max(int(math.Round(elapsed/smoother.dt)), 1)
}

// Smooth executes predict steps for every frame since the last observation and a single update step
func (smoother *KalmanSmoother) Smooth(sample Sample) float64 {
	state, ok := smoother.tracks[sample.ID]
	if !ok {
		/* Kalman filter props */
		ux := 1.0
		uy := 1.0
		stdDevA := 2.0
		stdDevMx := 0.1
		stdDevMy := 0.1
		kf := kalman_filter.NewKalman2D(smoother.dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(sample.Previous.X, sample.Previous.Y))
		state = &kalmanTrack{
			filter: kf,
			last:   sample.Previous,
		}
		smoother.tracks[sample.ID] = state
	}
	for i := smoother.predictSteps(sample.Elapsed); i > 0; i-- {
		state.filter.Predict()
	}
	if err := state.filter.Update(sample.Current.X, sample.Current.Y); err != nil {
		return sample.Raw
	}
	x, y := state.filter.GetState()
	filtered := mot.Point{X: x, Y: y}
	speed := smoother.convert(math.Hypot(filtered.X-state.last.X, filtered.Y-state.last.Y), sample.Elapsed)
	state.last = filtered
	return speed
}

// Forget drops filter of the track
func (smoother *KalmanSmoother) Forget(id uuid.UUID) {
	delete(smoother.tracks, id)
}
