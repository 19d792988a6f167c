package mot

import (
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SpeedEstimator computes speed of the track moving to the new position during elapsed seconds.
// Implementations may additionally implement Forget(uuid.UUID) to drop per-track state when the track is retired.
type SpeedEstimator interface {
	Estimate(track *Track, newPosition Point, elapsed float64) (float64, error)
}

type forgetter interface {
	Forget(id uuid.UUID)
}

// TrackerConfig holds parameters of the Tracker
type TrackerConfig struct {
	// Frames per second of the detection source. Used to turn frame deltas into elapsed time. Default 30
	FrameRate float64
	// Maximum plausible center displacement (pixels per second). Zero or negative disables the gate
	MaxDisplacementPerSecond float64
	// Track is retired when number of consecutive misses exceeds this value
	RetirementMisses int
	// Max number of centers kept in track's trail. Default 150
	MaxTrailLength int
	// Algorithm to use for matching
	Algorithm MatchingAlgorithm
}

// DefaultTrackerConfig returns configuration used by NewTrackerDefault
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		FrameRate:                30.0,
		MaxDisplacementPerSecond: 0,
		RetirementMisses:         30,
		MaxTrailLength:           defaultMaxTrailLen,
		Algorithm:                MatchingAlgorithmGreedy,
	}
}

// Assignment is the resolved identity for a single detection of the frame
type Assignment struct {
	// Index of the detection in the slice passed to Update
	DetectionIndex int
	TrackID        uuid.UUID
	// True when detection started a new track
	Created        bool
	Speed          float64
	SpeedAvailable bool
}

// Tracker associates vehicle detections across frames by distance-gated matching.
// It exclusively owns the set of live tracks. Not safe for concurrent use:
// frames must be fed sequentially.
type Tracker struct {
	config      TrackerConfig
	tracks      []*Track
	estimator   SpeedEstimator
	newID       func() uuid.UUID
	onRetire    func(*Track)
	nextOrdinal uint64
	lastFrame   int
	started     bool
}

// TrackerOption customizes Tracker
type TrackerOption func(*Tracker)

// WithSpeedEstimator sets estimator called for every matched track. Without estimator speed is reported as unavailable
func WithSpeedEstimator(estimator SpeedEstimator) TrackerOption {
	return func(tracker *Tracker) {
		tracker.estimator = estimator
	}
}

// WithIDGenerator replaces uuid.New. Generator must never return the same value twice
func WithIDGenerator(generator func() uuid.UUID) TrackerOption {
	return func(tracker *Tracker) {
		tracker.newID = generator
	}
}

// WithRetireHook sets callback executed for each removed track
func WithRetireHook(hook func(*Track)) TrackerOption {
	return func(tracker *Tracker) {
		tracker.onRetire = hook
	}
}

// NewTrackerDefault creates default instance of Tracker
func NewTrackerDefault(options ...TrackerOption) *Tracker {
	return NewTracker(DefaultTrackerConfig(), options...)
}

// NewTracker creates new instance of Tracker
func NewTracker(config TrackerConfig, options ...TrackerOption) *Tracker {
	if config.FrameRate <= 0 || math.IsNaN(config.FrameRate) || math.IsInf(config.FrameRate, 0) {
		config.FrameRate = 30.0
	}
	if config.RetirementMisses < 0 {
		config.RetirementMisses = 0
	}
	if config.MaxTrailLength <= 0 {
		config.MaxTrailLength = defaultMaxTrailLen
	}
	tracker := &Tracker{
		config: config,
		tracks: make([]*Track, 0),
		newID:  uuid.New,
	}
	for _, option := range options {
		option(tracker)
	}
	return tracker
}

// Config returns tracker's configuration
func (tracker *Tracker) Config() TrackerConfig {
	return tracker.config
}

// Tracks returns active tracks in creation order
func (tracker *Tracker) Tracks() []*Track {
	tracks := make([]*Track, len(tracker.tracks))
	copy(tracks, tracker.tracks)
	return tracks
}

// Len returns number of active tracks
func (tracker *Tracker) Len() int {
	return len(tracker.tracks)
}

// Track returns active track by its identifier
func (tracker *Tracker) Track(id uuid.UUID) (*Track, bool) {
	for _, track := range tracker.tracks {
		if track.id == id {
			return track, true
		}
	}
	return nil, false
}

// Reset drops all tracks. Identifiers issued before are still never reused
func (tracker *Tracker) Reset() {
	for _, track := range tracker.tracks {
		tracker.retire(track)
	}
	tracker.tracks = tracker.tracks[:0]
	tracker.started = false
	tracker.lastFrame = 0
}

// Update matches vehicle detections of the frame to existing tracks.
// Returns one Assignment per detection in input order.
// On error (out of order frame or malformed detection) tracks are left unchanged.
func (tracker *Tracker) Update(frameIndex int, detections []Detection) ([]Assignment, error) {
	if tracker.started && frameIndex < tracker.lastFrame {
		return nil, errors.Wrapf(ErrFrameOutOfOrder, "got frame %d after frame %d", frameIndex, tracker.lastFrame)
	}
	for i := range detections {
		if err := detections[i].Validate(); err != nil {
			return nil, errors.Wrapf(err, "detection #%d", i)
		}
	}

	candidates := tracker.candidates(frameIndex, detections)
	matches := performMatching(tracker.config.Algorithm, candidates, len(tracker.tracks), len(detections))

	// Nothing below can fail: the frame is committed
	assignments := make([]Assignment, len(detections))
	matchedTracks := make([]bool, len(tracker.tracks))
	matchedDetections := make([]bool, len(detections))
	for _, match := range matches {
		track := tracker.tracks[match.trackIdx]
		detection := detections[match.detIdx]
		speed, available := tracker.estimate(track, detection.BBox.Center(), frameIndex)
		track.update(detection, frameIndex)
		track.speed = speed
		track.speedAvailable = available
		matchedTracks[match.trackIdx] = true
		matchedDetections[match.detIdx] = true
		assignments[match.detIdx] = Assignment{
			DetectionIndex: match.detIdx,
			TrackID:        track.id,
			Speed:          speed,
			SpeedAvailable: available,
		}
	}

	// Age and retire unmatched tracks. New tracks are appended afterwards so they are not aged in the frame they were born
	alive := tracker.tracks[:0]
	for i, track := range tracker.tracks {
		if !matchedTracks[i] {
			track.incNoMatch()
			if track.noMatchTimes > tracker.config.RetirementMisses {
				tracker.retire(track)
				continue
			}
		}
		alive = append(alive, track)
	}
	for i := len(alive); i < len(tracker.tracks); i++ {
		tracker.tracks[i] = nil
	}
	tracker.tracks = alive

	// Register unmatched detections as new tracks
	for detIdx, detection := range detections {
		if matchedDetections[detIdx] {
			continue
		}
		track := newTrack(tracker.newID(), detection, frameIndex, tracker.config.MaxTrailLength, tracker.nextOrdinal)
		tracker.nextOrdinal++
		tracker.tracks = append(tracker.tracks, track)
		assignments[detIdx] = Assignment{
			DetectionIndex: detIdx,
			TrackID:        track.id,
			Created:        true,
			Speed:          0,
			SpeedAvailable: true,
		}
	}

	tracker.lastFrame = frameIndex
	tracker.started = true
	return assignments, nil
}

// candidates builds gated cost pairs between active tracks and detections
func (tracker *Tracker) candidates(frameIndex int, detections []Detection) []*candidatePair {
	candidates := make([]*candidatePair, 0, len(tracker.tracks)*len(detections))
	for trackIdx, track := range tracker.tracks {
		gate := tracker.gateRadius(track, frameIndex)
		for detIdx, detection := range detections {
			if detection.Class != track.class {
				continue
			}
			dist := euclideanDistance(track.currentCenter, detection.BBox.Center())
			if dist > gate {
				continue
			}
			candidates = append(candidates, &candidatePair{
				trackIdx: trackIdx,
				detIdx:   detIdx,
				distance: dist,
				iou:      overlap(track.currentBBox, detection.BBox).IoU,
				ordinal:  track.creationOrdinal,
			})
		}
	}
	return candidates
}

// gateRadius returns max plausible displacement for the track since it has been seen last time.
// Repeated frame index is treated as one frame interval
func (tracker *Tracker) gateRadius(track *Track, frameIndex int) float64 {
	if tracker.config.MaxDisplacementPerSecond <= 0 {
		return math.Inf(1)
	}
	frameInterval := 1.0 / tracker.config.FrameRate
	elapsed := max(float64(frameIndex-track.lastSeenFrame)*frameInterval, frameInterval)
	return tracker.config.MaxDisplacementPerSecond * elapsed
}

func (tracker *Tracker) estimate(track *Track, position Point, frameIndex int) (float64, bool) {
	if tracker.estimator == nil {
		return 0, false
	}
	elapsed := float64(frameIndex-track.lastSeenFrame) / tracker.config.FrameRate
	speed, err := tracker.estimator.Estimate(track, position, elapsed)
	if err != nil {
		return 0, false
	}
	return speed, true
}

func (tracker *Tracker) retire(track *Track) {
	if f, ok := tracker.estimator.(forgetter); ok {
		f.Forget(track.id)
	}
	if tracker.onRetire != nil {
		tracker.onRetire(track)
	}
}
