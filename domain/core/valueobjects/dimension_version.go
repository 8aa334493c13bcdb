package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// DimensionVersion identifies one immutable calibration artifact of a
// dimension. Recalibration mints a new version; categorization always binds
// to an explicit version, never to "the latest" implicitly.
type DimensionVersion struct {
	value string
}

// NewDimensionVersion creates a new random DimensionVersion
func NewDimensionVersion() DimensionVersion {
	return DimensionVersion{value: uuid.New().String()}
}

// NewDimensionVersionFromString creates a DimensionVersion from an existing string
func NewDimensionVersionFromString(v string) (DimensionVersion, error) {
	if v == "" {
		return DimensionVersion{}, errors.New("dimension version cannot be empty")
	}
	if _, err := uuid.Parse(v); err != nil {
		return DimensionVersion{}, errors.New("dimension version must be a valid UUID")
	}
	return DimensionVersion{value: v}, nil
}

// String returns the string representation of the DimensionVersion
func (v DimensionVersion) String() string {
	return v.value
}

// Equals checks if two DimensionVersions are equal
func (v DimensionVersion) Equals(other DimensionVersion) bool {
	return v.value == other.value
}

// IsZero checks if the DimensionVersion is the zero value
func (v DimensionVersion) IsZero() bool {
	return v.value == ""
}

// MarshalJSON implements json.Marshaler
func (v DimensionVersion) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (v *DimensionVersion) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("DimensionVersion must be a string")
	}
	v.value = string(data[1 : len(data)-1])
	return nil
}
