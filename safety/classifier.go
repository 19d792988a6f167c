// Package safety flags persons lacking an overlapping protective-gear detection.
// Classification is a pure function of one frame's detections; nothing is carried between frames.
package safety

import (
	"github.com/LdDl/traffiq-go/mot"
)

// PersonObservation is a person detection resolved against the frame's gear detections
type PersonObservation struct {
	Detection     mot.Detection
	HasProtection bool
	// Index of the first gear detection giving protection, -1 if none
	GearIndex int
}

// Classifier applies Policy to person and gear detections of a frame
type Classifier struct {
	policy Policy
}

// NewClassifier creates new instance of Classifier
func NewClassifier(policy Policy) (*Classifier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{policy: policy}, nil
}

// NewDefaultClassifier creates Classifier with DefaultPolicy
func NewDefaultClassifier() *Classifier {
	return &Classifier{policy: DefaultPolicy()}
}

// Policy returns classifier's policy
func (classifier *Classifier) Policy() Policy {
	return classifier.policy
}

// Observe resolves every person against gear detections, preserving input order.
// Persons with malformed boxes cannot be evaluated and are left out; malformed gear is ignored.
func (classifier *Classifier) Observe(persons, gear []mot.Detection) []PersonObservation {
	observations := make([]PersonObservation, 0, len(persons))
	for _, person := range persons {
		if person.BBox.Validate() != nil {
			continue
		}
		observation := PersonObservation{
			Detection: person,
			GearIndex: -1,
		}
		for j := range gear {
			protected, err := classifier.policy.Protects(person.BBox, gear[j].BBox)
			if err != nil {
				continue
			}
			if protected {
				observation.HasProtection = true
				observation.GearIndex = j
				break
			}
		}
		observations = append(observations, observation)
	}
	return observations
}

// Classify returns person detections lacking protection
func (classifier *Classifier) Classify(persons, gear []mot.Detection) []mot.Detection {
	unprotected := make([]mot.Detection, 0)
	for _, observation := range classifier.Observe(persons, gear) {
		if !observation.HasProtection {
			unprotected = append(unprotected, observation.Detection)
		}
	}
	return unprotected
}
