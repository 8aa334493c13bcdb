package queries

import (
	"errors"
	"time"

	"dnacore/domain/services"
	"dnacore/pkg/utils"
)

// GetJourneyQuery asks for the drift history and journey classification of
// one entity over a time window.
type GetJourneyQuery struct {
	EntityID string `json:"entity_id" validate:"required"`
	// From and To bound the snapshot window; zero values mean unbounded
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Validate validates the query
func (q GetJourneyQuery) Validate() error {
	if err := utils.ValidateStruct(q); err != nil {
		return err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return errors.New("journey window is inverted")
	}
	return nil
}

// JourneyResult is the journey read model: the characterized journey plus
// flags the raw drift reports cannot express on their own
type JourneyResult struct {
	Journey *services.Journey `json:"journey"`
	// RedefinedDimensions lists dimensions that were recalibrated inside
	// the window; their drift magnitudes mix behavior change with boundary
	// movement
	RedefinedDimensions []string `json:"redefined_dimensions,omitempty"`
}
