package mot

import (
	"github.com/google/uuid"
)

const defaultMaxTrailLen = 150

// Track is a persistent identity of one physically continuous vehicle across frames.
// Only Tracker mutates it; everything else should use the read-only accessors.
type Track struct {
	id              uuid.UUID
	class           string
	currentBBox     BBox
	currentCenter   Point
	lastSeenFrame   int
	speed           float64
	speedAvailable  bool
	observations    int
	noMatchTimes    int
	trail           []Point
	maxTrailLen     int
	creationOrdinal uint64
}

func newTrack(id uuid.UUID, detection Detection, frameIndex int, maxTrailLen int, ordinal uint64) *Track {
	if maxTrailLen <= 0 {
		maxTrailLen = defaultMaxTrailLen
	}
	track := Track{
		id:              id,
		class:           detection.Class,
		currentBBox:     detection.BBox,
		currentCenter:   detection.BBox.Center(),
		lastSeenFrame:   frameIndex,
		speed:           0,
		speedAvailable:  true,
		observations:    1,
		noMatchTimes:    0,
		trail:           make([]Point, 0, min(maxTrailLen, 16)),
		maxTrailLen:     maxTrailLen,
		creationOrdinal: ordinal,
	}
	track.trail = append(track.trail, track.currentCenter)
	return &track
}

// ID returns track's identifier. It is never reused by the tracker
func (track *Track) ID() uuid.UUID {
	return track.id
}

// Class returns class label of the track
func (track *Track) Class() string {
	return track.class
}

// BBox returns last matched bounding box
func (track *Track) BBox() BBox {
	return track.currentBBox
}

// Position returns last known center
func (track *Track) Position() Point {
	return track.currentCenter
}

// LastSeenFrame returns index of the frame where track has been matched last time
func (track *Track) LastSeenFrame() int {
	return track.lastSeenFrame
}

// Speed returns last speed estimate. Second value is false when estimate is unavailable for the last observation
func (track *Track) Speed() (float64, bool) {
	return track.speed, track.speedAvailable
}

// Observations returns number of detections matched to the track (including the first one)
func (track *Track) Observations() int {
	return track.observations
}

// Misses returns number of consecutive frames without match
func (track *Track) Misses() int {
	return track.noMatchTimes
}

// History returns copy of track's trail of centers
func (track *Track) History() []Point {
	trail := make([]Point, len(track.trail))
	copy(trail, track.trail)
	return trail
}

func (track *Track) incNoMatch() {
	track.noMatchTimes++
}

// update moves track to the new detection. Speed is set by the caller
func (track *Track) update(detection Detection, frameIndex int) {
	track.currentBBox = detection.BBox
	track.currentCenter = detection.BBox.Center()
	track.lastSeenFrame = frameIndex
	track.observations++
	track.noMatchTimes = 0
	track.trail = append(track.trail, track.currentCenter)
	if len(track.trail) > track.maxTrailLen {
		track.trail = track.trail[1:]
	}
}
