package entities

import (
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"
)

// Segment is one discovered cluster within a dimension version.
// Segments form a tree: top-level segments have depth 0 and no parent;
// segments produced by hierarchical subdivision reference their parent and
// sit one level deeper.
type Segment struct {
	// Private fields ensure encapsulation
	id              valueobjects.SegmentID
	center          valueobjects.FeatureVector
	variance        float64 // mean squared member-to-center distance
	maxDistance     float64 // largest member-to-center distance
	memberCount     int
	populationShare float64
	parentID        *valueobjects.SegmentID
	depth           int
}

// NewSegment creates a top-level segment (depth 0, no parent)
func NewSegment(
	center valueobjects.FeatureVector,
	variance, maxDistance float64,
	memberCount int,
	populationShare float64,
) (*Segment, error) {
	if center.IsZero() {
		return nil, pkgerrors.NewValidationError("segment center cannot be empty")
	}
	if memberCount <= 0 {
		return nil, pkgerrors.NewValidationError("segment must have at least one member")
	}
	if populationShare < 0 || populationShare > 1 {
		return nil, pkgerrors.NewValidationError("population share must be in [0,1]")
	}

	return &Segment{
		id:              valueobjects.NewSegmentID(),
		center:          center,
		variance:        variance,
		maxDistance:     maxDistance,
		memberCount:     memberCount,
		populationShare: populationShare,
		parentID:        nil,
		depth:           0,
	}, nil
}

// NewChildSegment creates a segment produced by subdividing a parent.
// The child's depth is always strictly greater than the parent's.
func NewChildSegment(
	parent *Segment,
	center valueobjects.FeatureVector,
	variance, maxDistance float64,
	memberCount int,
	populationShare float64,
) (*Segment, error) {
	if parent == nil {
		return nil, pkgerrors.NewValidationError("child segment requires a parent")
	}

	segment, err := NewSegment(center, variance, maxDistance, memberCount, populationShare)
	if err != nil {
		return nil, err
	}

	parentID := parent.ID()
	segment.parentID = &parentID
	segment.depth = parent.Depth() + 1
	return segment, nil
}

// ReconstructSegment reconstructs a segment from repository data
func ReconstructSegment(
	id valueobjects.SegmentID,
	center valueobjects.FeatureVector,
	variance, maxDistance float64,
	memberCount int,
	populationShare float64,
	parentID *valueobjects.SegmentID,
	depth int,
) (*Segment, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("segment ID cannot be empty")
	}
	if depth < 0 {
		return nil, pkgerrors.NewValidationError("segment depth cannot be negative")
	}
	if depth > 0 && parentID == nil {
		return nil, pkgerrors.NewValidationError("non-root segment requires a parent")
	}

	return &Segment{
		id:              id,
		center:          center,
		variance:        variance,
		maxDistance:     maxDistance,
		memberCount:     memberCount,
		populationShare: populationShare,
		parentID:        parentID,
		depth:           depth,
	}, nil
}

// ID returns the segment's unique identifier
func (s *Segment) ID() valueobjects.SegmentID {
	return s.id
}

// Center returns the segment's center in scaled feature space
func (s *Segment) Center() valueobjects.FeatureVector {
	return s.center
}

// Variance returns the mean squared member-to-center distance
func (s *Segment) Variance() float64 {
	return s.variance
}

// MaxDistance returns the largest member-to-center distance
func (s *Segment) MaxDistance() float64 {
	return s.maxDistance
}

// MemberCount returns the number of entities assigned to this segment
func (s *Segment) MemberCount() int {
	return s.memberCount
}

// PopulationShare returns this segment's share of the dimension population
func (s *Segment) PopulationShare() float64 {
	return s.populationShare
}

// ParentID returns the parent segment's ID, nil for top-level segments
func (s *Segment) ParentID() *valueobjects.SegmentID {
	if s.parentID == nil {
		return nil
	}
	parentID := *s.parentID
	return &parentID
}

// Depth returns the segment's depth in the subdivision tree (0 at top level)
func (s *Segment) Depth() int {
	return s.depth
}

// IsLeaf reports whether no segment in the given set has this segment as parent
func (s *Segment) IsLeaf(all []*Segment) bool {
	for _, other := range all {
		if other.parentID != nil && other.parentID.Equals(s.id) {
			return false
		}
	}
	return true
}
