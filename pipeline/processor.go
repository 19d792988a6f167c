// Package pipeline wires tracking, speed estimation and safety classification into a single per-frame stage.
//
// Frames must be processed strictly in order: tracker state of frame n is input of frame n+1.
// A Processor is owned by one video; independent videos get independent processors.
package pipeline

import (
	"context"
	"time"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/LdDl/traffiq-go/safety"
	"github.com/LdDl/traffiq-go/speed"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Frame is a set of detections reported for a single video frame
type Frame struct {
	Index      int
	Detections []mot.Detection
}

// VehicleAnnotation is what the annotator draws for a tracked vehicle
type VehicleAnnotation struct {
	BBox       mot.BBox
	TrackID    uuid.UUID
	Class      string
	Confidence float64
	Speed      float64
	// False when speed could not be estimated for this frame
	SpeedAvailable bool
	// True for the first observation of the track
	Created bool
}

// Result is the output of one frame
type Result struct {
	FrameIndex int
	Vehicles   []VehicleAnnotation
	Persons    []safety.PersonObservation
	// Boxes of persons without protective gear
	Violations []mot.BBox
	// Detections with unknown labels, or vehicles which could not be tracked
	Passthrough []mot.Detection
	Dropped     []DroppedDetection
	// Set when vehicles of the frame could not be tracked. Tracks are unchanged in that case
	TrackingError error
	ActiveTracks  int
	RetiredTracks int
}

// Observer receives outcome of every processed frame
type Observer interface {
	ObserveFrame(result *Result, elapsed time.Duration)
}

// Processor is the per-frame stage
type Processor struct {
	config       Config
	vehicleSet   map[string]struct{}
	estimator    *speed.Estimator
	tracker      *mot.Tracker
	classifier   *safety.Classifier
	logger       zerolog.Logger
	observer     Observer
	trackerOpts  []mot.TrackerOption
	retiredCount int
}

// Option customizes Processor
type Option func(*Processor)

// WithLogger sets logger. Default one discards everything
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithObserver sets observer notified after each frame
func WithObserver(observer Observer) Option {
	return func(p *Processor) {
		p.observer = observer
	}
}

// WithTrackerOptions passes extra options to the underlying tracker
func WithTrackerOptions(options ...mot.TrackerOption) Option {
	return func(p *Processor) {
		p.trackerOpts = append(p.trackerOpts, options...)
	}
}

// NewProcessor creates new instance of Processor
func NewProcessor(config Config, options ...Option) (*Processor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	estimator, err := speed.NewEstimator(config.Speed)
	if err != nil {
		return nil, errors.Wrap(err, "can't create speed estimator")
	}
	classifier, err := safety.NewClassifier(config.Policy)
	if err != nil {
		return nil, errors.Wrap(err, "can't create safety classifier")
	}
	p := &Processor{
		config:     config,
		vehicleSet: make(map[string]struct{}, len(config.VehicleClasses)),
		estimator:  estimator,
		classifier: classifier,
		logger:     zerolog.Nop(),
	}
	for _, class := range config.VehicleClasses {
		p.vehicleSet[class] = struct{}{}
	}
	for _, option := range options {
		option(p)
	}

	trackerConfig := config.Tracker
	trackerConfig.FrameRate = config.Speed.FrameRate
	trackerConfig.MaxDisplacementPerSecond = estimator.MaxPixelsPerSecond(config.MaxPlausibleSpeed)
	trackerOpts := append([]mot.TrackerOption{
		mot.WithSpeedEstimator(estimator),
		mot.WithRetireHook(func(track *mot.Track) {
			p.retiredCount++
			p.logger.Debug().Str("track_id", track.ID().String()).Str("class", track.Class()).Int("last_seen_frame", track.LastSeenFrame()).Msg("track retired")
		}),
	}, p.trackerOpts...)
	p.tracker = mot.NewTracker(trackerConfig, trackerOpts...)
	return p, nil
}

// Config returns processor's configuration
func (p *Processor) Config() Config {
	return p.config
}

// Tracker returns underlying tracker. Callers must not feed it frames directly
func (p *Processor) Tracker() *mot.Tracker {
	return p.tracker
}

// Reset discards all tracks, e.g. before processing another video with the same processor
func (p *Processor) Reset() {
	p.tracker.Reset()
	p.retiredCount = 0
}

// ProcessFrame runs tracking, speed estimation and safety classification for a single frame.
// The only returned error is context cancellation, checked before any state is touched.
// Problems with individual detections are reported in Result and logged.
func (p *Processor) ProcessFrame(ctx context.Context, frame Frame) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	log := p.logger.With().Int("frame", frame.Index).Logger()

	result := Result{
		FrameIndex:  frame.Index,
		Vehicles:    make([]VehicleAnnotation, 0),
		Violations:  make([]mot.BBox, 0),
		Passthrough: make([]mot.Detection, 0),
	}
	vehicles := make([]mot.Detection, 0, len(frame.Detections))
	persons := make([]mot.Detection, 0)
	gear := make([]mot.Detection, 0)
	for i := range frame.Detections {
		detection := frame.Detections[i]
		detection.FrameIndex = frame.Index
		if err := detection.Validate(); err != nil {
			log.Warn().Err(err).Int("detection", i).Str("class", detection.Class).Msg("malformed detection dropped")
			result.Dropped = append(result.Dropped, DroppedDetection{Detection: detection, Reason: DropMalformed, Err: err})
			continue
		}
		if detection.Confidence < p.config.MinConfidence {
			result.Dropped = append(result.Dropped, DroppedDetection{Detection: detection, Reason: DropLowConfidence})
			continue
		}
		switch {
		case p.isVehicle(detection.Class):
			vehicles = append(vehicles, detection)
		case detection.Class == p.config.PersonClass:
			persons = append(persons, detection)
		case detection.Class == p.config.GearClass:
			gear = append(gear, detection)
		default:
			log.Debug().Err(ErrUnknownClassLabel).Str("class", detection.Class).Msg("detection passed through")
			result.Passthrough = append(result.Passthrough, detection)
		}
	}

	p.retiredCount = 0
	assignments, err := p.tracker.Update(frame.Index, vehicles)
	if err != nil {
		log.Error().Err(err).Int("vehicles", len(vehicles)).Msg("vehicles left untracked")
		result.TrackingError = err
		result.Passthrough = append(result.Passthrough, vehicles...)
	}
	for _, assignment := range assignments {
		detection := vehicles[assignment.DetectionIndex]
		if !assignment.SpeedAvailable {
			log.Debug().Err(ErrInvalidElapsedTime).Str("track_id", assignment.TrackID.String()).Msg("speed estimate suppressed")
		}
		result.Vehicles = append(result.Vehicles, VehicleAnnotation{
			BBox:           detection.BBox,
			TrackID:        assignment.TrackID,
			Class:          detection.Class,
			Confidence:     detection.Confidence,
			Speed:          assignment.Speed,
			SpeedAvailable: assignment.SpeedAvailable,
			Created:        assignment.Created,
		})
	}

	result.Persons = p.classifier.Observe(persons, gear)
	for _, observation := range result.Persons {
		if !observation.HasProtection {
			result.Violations = append(result.Violations, observation.Detection.BBox)
		}
	}

	result.ActiveTracks = p.tracker.Len()
	result.RetiredTracks = p.retiredCount
	elapsed := time.Since(start)
	log.Debug().
		Int("vehicles", len(result.Vehicles)).
		Int("persons", len(result.Persons)).
		Int("violations", len(result.Violations)).
		Int("active_tracks", result.ActiveTracks).
		Dur("elapsed", elapsed).
		Msg("frame processed")
	if p.observer != nil {
		p.observer.ObserveFrame(&result, elapsed)
	}
	return result, nil
}

func (p *Processor) isVehicle(class string) bool {
	_, ok := p.vehicleSet[class]
	return ok
}
