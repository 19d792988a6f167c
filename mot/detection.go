package mot

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Detection is a single object instance reported by the vision model for one frame
type Detection struct {
	Class      string
	BBox       BBox
	Confidence float64
	FrameIndex int
}

// NewDetection creates detection for the given frame
func NewDetection(class string, bbox BBox, confidence float64, frameIndex int) Detection {
	return Detection{
		Class:      class,
		BBox:       bbox,
		Confidence: confidence,
		FrameIndex: frameIndex,
	}
}

// Validate checks that detection has a class label, a well-formed box and confidence in [0, 1].
// Returned error always matches ErrMalformedDetection via errors.Is
func (d Detection) Validate() error {
	if strings.TrimSpace(d.Class) == "" {
		return errors.Wrap(ErrMalformedDetection, "empty class label")
	}
	if err := d.BBox.Validate(); err != nil {
		return errors.Wrap(ErrMalformedDetection, err.Error())
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return errors.Wrapf(ErrMalformedDetection, "confidence %v is out of [0, 1]", d.Confidence)
	}
	return nil
}
