package safety

import (
	"testing"

	"github.com/LdDl/traffiq-go/mot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person(x1, y1, x2, y2 float64) mot.Detection {
	return mot.NewDetection("person", mot.NewBBox(x1, y1, x2, y2), 0.8, 0)
}

func helmet(x1, y1, x2, y2 float64) mot.Detection {
	return mot.NewDetection("helmet", mot.NewBBox(x1, y1, x2, y2), 0.8, 0)
}

func TestClassifyNoGear(t *testing.T) {
	classifier := NewDefaultClassifier()
	p := person(0, 0, 100, 200)
	unprotected := classifier.Classify([]mot.Detection{p}, nil)
	require.Len(t, unprotected, 1)
	assert.Equal(t, p, unprotected[0])
}

func TestClassifyOverlappingGear(t *testing.T) {
	classifier := NewDefaultClassifier()
	unprotected := classifier.Classify(
		[]mot.Detection{person(0, 0, 100, 200)},
		[]mot.Detection{helmet(10, 0, 50, 40)},
	)
	assert.Empty(t, unprotected)
}

func TestClassifyDisjointGear(t *testing.T) {
	classifier := NewDefaultClassifier()
	unprotected := classifier.Classify(
		[]mot.Detection{person(0, 0, 100, 200)},
		[]mot.Detection{helmet(150, 0, 190, 40), helmet(100, 0, 140, 40)},
	)
	assert.Len(t, unprotected, 1)
}

func TestClassifyPersonInsideGear(t *testing.T) {
	classifier := NewDefaultClassifier()
	unprotected := classifier.Classify(
		[]mot.Detection{person(10, 10, 20, 20)},
		[]mot.Detection{helmet(0, 0, 100, 100)},
	)
	assert.Empty(t, unprotected)
}

func TestObserveKeepsOrder(t *testing.T) {
	classifier := NewDefaultClassifier()
	persons := []mot.Detection{
		person(0, 0, 100, 200),
		person(300, 0, 400, 200),
		person(10, 10, 0, 0), // malformed
		person(600, 0, 700, 200),
	}
	gear := []mot.Detection{
		helmet(320, 0, 360, 30),
		helmet(620, 0, 660, 30),
	}
	observations := classifier.Observe(persons, gear)
	require.Len(t, observations, 3)
	assert.False(t, observations[0].HasProtection)
	assert.Equal(t, -1, observations[0].GearIndex)
	assert.True(t, observations[1].HasProtection)
	assert.Equal(t, 0, observations[1].GearIndex)
	assert.True(t, observations[2].HasProtection)
	assert.Equal(t, 1, observations[2].GearIndex)
	assert.Equal(t, persons[3], observations[2].Detection)
}

func TestPolicies(t *testing.T) {
	p := mot.NewBBox(0, 0, 100, 200)
	// Gear box half outside the person: intersection 20x40, gear area 40x40
	g := mot.NewBBox(80, 0, 120, 40)

	tests := []struct {
		name      string
		policy    Policy
		protected bool
	}{
		{"intersection", DefaultPolicy(), true},
		{"iou low threshold", Policy{Kind: PolicyIoU, Threshold: 0.01}, true},
		{"iou high threshold", Policy{Kind: PolicyIoU, Threshold: 0.5}, false},
		{"containment half", Policy{Kind: PolicyContainment, Threshold: 0.5}, true},
		{"containment strict", Policy{Kind: PolicyContainment, Threshold: 0.9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			protected, err := tt.policy.Protects(p, g)
			require.NoError(t, err)
			assert.Equal(t, tt.protected, protected)
		})
	}

	_, err := DefaultPolicy().Protects(p, mot.NewBBox(5, 5, 5, 5))
	assert.ErrorIs(t, err, mot.ErrMalformedBBox)
}

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy("", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)

	policy, err = ParsePolicy("iou", 0.3)
	require.NoError(t, err)
	assert.Equal(t, Policy{Kind: PolicyIoU, Threshold: 0.3}, policy)

	_, err = ParsePolicy("iou", 0)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	_, err = ParsePolicy("containment", 1.5)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	_, err = ParsePolicy("nearest", 0.5)
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = NewClassifier(Policy{Kind: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	classifier, err := NewClassifier(Policy{Kind: PolicyContainment, Threshold: 1})
	require.NoError(t, err)
	assert.Equal(t, PolicyContainment, classifier.Policy().Kind)
}
