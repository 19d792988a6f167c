package mot

import "github.com/pkg/errors"

var (
	// ErrMalformedBBox is returned for inverted, degenerate or non-finite boxes
	ErrMalformedBBox = errors.New("malformed bounding box")
	// ErrMalformedDetection is returned for detections with missing or invalid fields
	ErrMalformedDetection = errors.New("malformed detection")
	// ErrFrameOutOfOrder is returned when frame index goes backwards
	ErrFrameOutOfOrder = errors.New("frame index is out of order")
)
