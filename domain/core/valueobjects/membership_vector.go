package valueobjects

import (
	"fmt"
	"math"
	"sort"
)

// MembershipTolerance is the floating tolerance within which a membership
// vector's values must sum to 1.0.
const MembershipTolerance = 1e-6

// MembershipVector is a fuzzy membership assignment for one entity over one
// dimension's segments: segment ID -> degree of belonging in [0,1], summing
// to 1.0 within MembershipTolerance.
type MembershipVector struct {
	memberships map[string]float64
}

// NewMembershipVector creates a membership vector, enforcing the sum-to-1
// invariant and the [0,1] range of each value.
func NewMembershipVector(memberships map[string]float64) (MembershipVector, error) {
	if len(memberships) == 0 {
		return MembershipVector{}, fmt.Errorf("membership vector cannot be empty")
	}

	sum := 0.0
	for segmentID, m := range memberships {
		if m < 0 || m > 1 || math.IsNaN(m) {
			return MembershipVector{}, fmt.Errorf("membership for segment %s out of range: %v", segmentID, m)
		}
		sum += m
	}
	if math.Abs(sum-1.0) > MembershipTolerance {
		return MembershipVector{}, fmt.Errorf("memberships must sum to 1.0, got %v", sum)
	}

	copied := make(map[string]float64, len(memberships))
	for segmentID, m := range memberships {
		copied[segmentID] = m
	}
	return MembershipVector{memberships: copied}, nil
}

// Memberships returns a copy of the segment ID -> membership mapping
func (v MembershipVector) Memberships() map[string]float64 {
	copied := make(map[string]float64, len(v.memberships))
	for segmentID, m := range v.memberships {
		copied[segmentID] = m
	}
	return copied
}

// Membership returns the membership for a segment, 0 if the segment is absent
func (v MembershipVector) Membership(segmentID string) float64 {
	return v.memberships[segmentID]
}

// SegmentCount returns the number of segments in the vector
func (v MembershipVector) SegmentCount() int {
	return len(v.memberships)
}

// Dominant returns the segment ID with the highest membership and its value.
// Ties are broken by segment ID ordering so the result is deterministic.
func (v MembershipVector) Dominant() (string, float64) {
	ids := make([]string, 0, len(v.memberships))
	for segmentID := range v.memberships {
		ids = append(ids, segmentID)
	}
	sort.Strings(ids)

	best := ""
	bestValue := -1.0
	for _, segmentID := range ids {
		if v.memberships[segmentID] > bestValue {
			best = segmentID
			bestValue = v.memberships[segmentID]
		}
	}
	return best, bestValue
}

// DistanceTo returns the Euclidean distance to another membership vector.
// Segments present in only one vector count as membership 0 in the other,
// so vectors from different segment sets remain comparable.
func (v MembershipVector) DistanceTo(other MembershipVector) float64 {
	union := make(map[string]struct{}, len(v.memberships)+len(other.memberships))
	for segmentID := range v.memberships {
		union[segmentID] = struct{}{}
	}
	for segmentID := range other.memberships {
		union[segmentID] = struct{}{}
	}

	sum := 0.0
	for segmentID := range union {
		d := v.memberships[segmentID] - other.memberships[segmentID]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// IsZero checks if the MembershipVector is the zero value
func (v MembershipVector) IsZero() bool {
	return v.memberships == nil
}
