package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// SegmentID is a value object identifying one discovered segment within a
// dimension version. Segment IDs are minted at calibration time and are
// never reused across versions.
type SegmentID struct {
	value string
}

// NewSegmentID creates a new random SegmentID
func NewSegmentID() SegmentID {
	return SegmentID{value: uuid.New().String()}
}

// NewSegmentIDFromString creates a SegmentID from an existing string
func NewSegmentIDFromString(id string) (SegmentID, error) {
	if id == "" {
		return SegmentID{}, errors.New("segment ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return SegmentID{}, errors.New("segment ID must be a valid UUID")
	}
	return SegmentID{value: id}, nil
}

// String returns the string representation of the SegmentID
func (id SegmentID) String() string {
	return id.value
}

// Equals checks if two SegmentIDs are equal
func (id SegmentID) Equals(other SegmentID) bool {
	return id.value == other.value
}

// IsZero checks if the SegmentID is the zero value
func (id SegmentID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id SegmentID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *SegmentID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("SegmentID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
