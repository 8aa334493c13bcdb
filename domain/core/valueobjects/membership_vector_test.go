package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMembershipVectorEnforcesSumToOne(t *testing.T) {
	_, err := NewMembershipVector(map[string]float64{"s1": 0.7, "s2": 0.2})
	require.Error(t, err)

	_, err = NewMembershipVector(map[string]float64{"s1": 1.2, "s2": -0.2})
	require.Error(t, err)

	_, err = NewMembershipVector(nil)
	require.Error(t, err)

	// Within tolerance of 1.0 is accepted
	vector, err := NewMembershipVector(map[string]float64{"s1": 0.7, "s2": 0.3 + 5e-7})
	require.NoError(t, err)
	assert.Equal(t, 2, vector.SegmentCount())
}

func TestMembershipVectorCopiesOnConstructionAndRead(t *testing.T) {
	source := map[string]float64{"s1": 0.6, "s2": 0.4}
	vector, err := NewMembershipVector(source)
	require.NoError(t, err)

	source["s1"] = 0.0
	assert.Equal(t, 0.6, vector.Membership("s1"))

	read := vector.Memberships()
	read["s2"] = 0.0
	assert.Equal(t, 0.4, vector.Membership("s2"))
}

func TestMembershipVectorDominantBreaksTiesDeterministically(t *testing.T) {
	vector, err := NewMembershipVector(map[string]float64{"s2": 0.4, "s1": 0.4, "s3": 0.2})
	require.NoError(t, err)

	segmentID, value := vector.Dominant()
	assert.Equal(t, "s1", segmentID)
	assert.Equal(t, 0.4, value)
}

func TestMembershipVectorDistanceIsSymmetric(t *testing.T) {
	// Vectors from different calibrations cover different segment sets;
	// the union distance must not depend on which side is the receiver.
	a, err := NewMembershipVector(map[string]float64{"s1": 0.7, "s2": 0.3})
	require.NoError(t, err)
	b, err := NewMembershipVector(map[string]float64{"s2": 0.4, "s3": 0.6})
	require.NoError(t, err)

	forward := a.DistanceTo(b)
	backward := b.DistanceTo(a)
	assert.Equal(t, forward, backward)

	// s1 and s3 each count as zero on the other side
	expected := math.Sqrt(0.7*0.7 + 0.1*0.1 + 0.6*0.6)
	assert.InDelta(t, expected, forward, 1e-12)
}

func TestMembershipVectorDistanceToSelfIsZero(t *testing.T) {
	vector, err := NewMembershipVector(map[string]float64{"s1": 0.5, "s2": 0.5})
	require.NoError(t, err)
	assert.Zero(t, vector.DistanceTo(vector))
}
