package mot

import "github.com/pkg/errors"

// OverlapResult holds intersection, union and IoU of two boxes
type OverlapResult struct {
	IntersectionArea float64
	UnionArea        float64
	IoU              float64
}

// Overlap calculates intersection area, union area and Intersection over Union between two boxes.
// Both boxes must satisfy x1<x2, y1<y2, otherwise ErrMalformedBBox is returned.
func Overlap(a, b BBox) (OverlapResult, error) {
	if err := a.Validate(); err != nil {
		return OverlapResult{}, errors.Wrap(err, "first box")
	}
	if err := b.Validate(); err != nil {
		return OverlapResult{}, errors.Wrap(err, "second box")
	}
	return overlap(a, b), nil
}

// overlap does the same as Overlap but without validation
func overlap(a, b BBox) OverlapResult {
	xA := max(a.X1, b.X1)
	yA := max(a.Y1, b.Y1)
	xB := min(a.X2, b.X2)
	yB := min(a.Y2, b.Y2)

	interArea := max(0, xB-xA) * max(0, yB-yA)
	unionArea := a.Area() + b.Area() - interArea
	result := OverlapResult{
		IntersectionArea: interArea,
		UnionArea:        unionArea,
	}
	if unionArea > 0 {
		result.IoU = interArea / unionArea
	}
	return result
}

// IoU calculates Intersection over Union between two boxes. Returns 0 for malformed boxes.
func IoU(a, b BBox) float64 {
	res, err := Overlap(a, b)
	if err != nil {
		return 0.0
	}
	return res.IoU
}
