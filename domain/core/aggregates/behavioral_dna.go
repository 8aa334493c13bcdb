package aggregates

import (
	"sort"
	"time"

	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"
)

// DimensionMembership pairs a fuzzy membership vector with the exact
// dimension version it was computed against, so drift comparisons can
// detect recalibration boundaries.
type DimensionMembership struct {
	Vector  valueobjects.MembershipVector
	Version valueobjects.DimensionVersion
}

// BehavioralDNA is the full behavioral fingerprint of one entity: its fuzzy
// membership vectors across all calibrated dimensions, a confidence score,
// and the number of raw observations the fingerprint was computed from.
// A DNA is immutable once created; new observation history produces a new
// DNA, never an in-place edit.
type BehavioralDNA struct {
	// Private fields ensure encapsulation
	entityID         valueobjects.EntityID
	memberships      map[string]DimensionMembership // keyed by dimension name
	confidence       float64
	observationCount int
	createdAt        time.Time
}

// NewBehavioralDNA creates a new behavioral DNA for an entity
func NewBehavioralDNA(
	entityID valueobjects.EntityID,
	memberships map[string]DimensionMembership,
	confidence float64,
	observationCount int,
) (*BehavioralDNA, error) {
	if entityID.IsZero() {
		return nil, pkgerrors.NewValidationError("entity ID cannot be empty")
	}
	if len(memberships) == 0 {
		return nil, pkgerrors.NewValidationError("behavioral DNA requires at least one dimension membership")
	}
	if confidence < 0 || confidence > 1 {
		return nil, pkgerrors.NewValidationError("confidence must be in [0,1]")
	}
	if observationCount < 0 {
		return nil, pkgerrors.NewValidationError("observation count cannot be negative")
	}

	for name, membership := range memberships {
		if membership.Vector.IsZero() {
			return nil, pkgerrors.NewValidationError("membership vector missing for dimension " + name)
		}
		if membership.Version.IsZero() {
			return nil, pkgerrors.NewValidationError("dimension version missing for dimension " + name)
		}
	}

	return &BehavioralDNA{
		entityID:         entityID,
		memberships:      copyMemberships(memberships),
		confidence:       confidence,
		observationCount: observationCount,
		createdAt:        time.Now(),
	}, nil
}

// ReconstructBehavioralDNA reconstructs a DNA from repository data with its
// original creation timestamp preserved.
func ReconstructBehavioralDNA(
	entityID valueobjects.EntityID,
	memberships map[string]DimensionMembership,
	confidence float64,
	observationCount int,
	createdAt time.Time,
) (*BehavioralDNA, error) {
	dna, err := NewBehavioralDNA(entityID, memberships, confidence, observationCount)
	if err != nil {
		return nil, err
	}
	dna.createdAt = createdAt
	return dna, nil
}

// EntityID returns the profiled entity's ID
func (d *BehavioralDNA) EntityID() valueobjects.EntityID {
	return d.entityID
}

// Memberships returns a copy of all per-dimension memberships
func (d *BehavioralDNA) Memberships() map[string]DimensionMembership {
	return copyMemberships(d.memberships)
}

// MembershipFor returns the membership for one dimension
func (d *BehavioralDNA) MembershipFor(dimensionName string) (DimensionMembership, bool) {
	membership, ok := d.memberships[dimensionName]
	return membership, ok
}

// DimensionNames returns the covered dimension names in sorted order
func (d *BehavioralDNA) DimensionNames() []string {
	names := make([]string, 0, len(d.memberships))
	for name := range d.memberships {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DominantSegments returns, per dimension, the segment with the highest
// membership.
func (d *BehavioralDNA) DominantSegments() map[string]string {
	dominant := make(map[string]string, len(d.memberships))
	for name, membership := range d.memberships {
		segmentID, _ := membership.Vector.Dominant()
		dominant[name] = segmentID
	}
	return dominant
}

// Confidence returns the aggregate confidence of the fingerprint
func (d *BehavioralDNA) Confidence() float64 {
	return d.confidence
}

// Reliable reports whether the confidence clears the given threshold.
// Cold-start entities produce a DNA with confidence explicitly below the
// threshold; callers must check this before acting on the fingerprint.
func (d *BehavioralDNA) Reliable(threshold float64) bool {
	return d.confidence >= threshold
}

// ObservationCount returns the number of raw observations used
func (d *BehavioralDNA) ObservationCount() int {
	return d.observationCount
}

// CreatedAt returns when the DNA was composed
func (d *BehavioralDNA) CreatedAt() time.Time {
	return d.createdAt
}

func copyMemberships(memberships map[string]DimensionMembership) map[string]DimensionMembership {
	copied := make(map[string]DimensionMembership, len(memberships))
	for name, membership := range memberships {
		copied[name] = membership
	}
	return copied
}
