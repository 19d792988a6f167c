package safety

import (
	"math"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/pkg/errors"
)

// ErrInvalidPolicy is returned for unknown policy kinds or thresholds out of (0, 1]
var ErrInvalidPolicy = errors.New("invalid protection overlap policy")

// PolicyKind selects how person and gear boxes are compared
type PolicyKind string

const (
	// PolicyIntersection treats any positive intersection area as protection.
	// Permissive: gear of a neighbour overlapping the person's box counts too
	PolicyIntersection PolicyKind = "intersection"
	// PolicyIoU requires IoU of person and gear boxes to reach Threshold
	PolicyIoU PolicyKind = "iou"
	// PolicyContainment requires share of the gear box lying inside the person box to reach Threshold
	PolicyContainment PolicyKind = "containment"
)

// Policy decides whether gear detection protects person detection
type Policy struct {
	Kind      PolicyKind
	Threshold float64
}

// DefaultPolicy returns the baseline intersection-area-positive policy
func DefaultPolicy() Policy {
	return Policy{Kind: PolicyIntersection}
}

// ParsePolicy converts configuration values into Policy. Empty kind gives DefaultPolicy
func ParsePolicy(kind string, threshold float64) (Policy, error) {
	if kind == "" {
		return DefaultPolicy(), nil
	}
	policy := Policy{Kind: PolicyKind(kind), Threshold: threshold}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Validate checks policy kind and threshold
func (policy Policy) Validate() error {
	switch policy.Kind {
	case PolicyIntersection:
		return nil
	case PolicyIoU, PolicyContainment:
		if math.IsNaN(policy.Threshold) || policy.Threshold <= 0 || policy.Threshold > 1 {
			return errors.Wrapf(ErrInvalidPolicy, "threshold %v for '%s' must be in (0, 1]", policy.Threshold, policy.Kind)
		}
		return nil
	default:
		return errors.Wrapf(ErrInvalidPolicy, "unknown kind '%s'", policy.Kind)
	}
}

// Protects reports whether gear box gives protection to person box
func (policy Policy) Protects(person, gear mot.BBox) (bool, error) {
	res, err := mot.Overlap(person, gear)
	if err != nil {
		return false, err
	}
	switch policy.Kind {
	case PolicyIoU:
		return res.IoU >= policy.Threshold, nil
	case PolicyContainment:
		return res.IntersectionArea/gear.Area() >= policy.Threshold, nil
	default:
		return res.IntersectionArea > 0, nil
	}
}
