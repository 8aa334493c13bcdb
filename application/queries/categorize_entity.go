package queries

import (
	"time"

	"dnacore/pkg/utils"
)

// CategorizeEntityQuery asks for an entity's current fuzzy memberships
// across every published dimension. Categorization is read-only: it
// projects the entity onto the current segment boundaries and never moves
// them.
type CategorizeEntityQuery struct {
	EntityID string `json:"entity_id" validate:"required"`
	// Dimensions restricts categorization to the named axes; empty means
	// all published dimensions
	Dimensions []string `json:"dimensions,omitempty"`
}

// Validate validates the query
func (q CategorizeEntityQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// DimensionMembershipView is the read-model shape of one dimension's
// memberships
type DimensionMembershipView struct {
	// Version identifies the dimension version the memberships refer to;
	// membership values are only comparable within one version
	Version string `json:"version"`
	// Memberships maps segment ID to membership degree; values sum to 1
	Memberships map[string]float64 `json:"memberships"`
	// DominantSegment is the segment with the highest membership
	DominantSegment string `json:"dominant_segment"`
	// LowQuality flags memberships computed against a dimension whose
	// calibration carried quality warnings
	LowQuality bool `json:"low_quality,omitempty"`
}

// CategorizationResult is the full categorization read model for one entity
type CategorizationResult struct {
	EntityID string `json:"entity_id"`
	// Memberships maps dimension name to its membership view
	Memberships map[string]DimensionMembershipView `json:"memberships"`
	Confidence  float64                            `json:"confidence"`
	// ColdStart flags an entity below the observation floor; its
	// memberships exist but must not be treated as settled
	ColdStart    bool      `json:"cold_start"`
	Observations int       `json:"observations"`
	ComputedAt   time.Time `json:"computed_at"`
}
