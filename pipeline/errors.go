package pipeline

import (
	"github.com/LdDl/traffiq-go/mot"
	"github.com/LdDl/traffiq-go/speed"
	"github.com/pkg/errors"
)

// None of these stop processing of the video: the affected detection just gets no annotation.
var (
	// ErrMalformedDetection marks detection dropped from the frame
	ErrMalformedDetection = mot.ErrMalformedDetection
	// ErrInvalidElapsedTime marks suppressed speed estimate
	ErrInvalidElapsedTime = speed.ErrInvalidElapsedTime
	// ErrUnknownClassLabel marks detection passed through unannotated
	ErrUnknownClassLabel = errors.New("unknown class label")
	// ErrFrameOutOfOrder marks frame whose vehicles could not be tracked
	ErrFrameOutOfOrder = mot.ErrFrameOutOfOrder
)

// DropReason tells why detection has been excluded from processing
type DropReason string

const (
	DropMalformed     DropReason = "malformed"
	DropLowConfidence DropReason = "low_confidence"
)

// DroppedDetection is a detection excluded from the frame's processing
type DroppedDetection struct {
	Detection mot.Detection
	Reason    DropReason
	Err       error
}
