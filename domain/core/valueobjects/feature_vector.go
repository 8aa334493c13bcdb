package valueobjects

import (
	"errors"
	"math"
)

// FeatureVector is an immutable fixed-length numeric vector in scaled
// feature space. All distances in the clustering pipeline are Euclidean
// distances between feature vectors.
type FeatureVector struct {
	values []float64
}

// NewFeatureVector creates a feature vector from a slice of values.
// The slice is copied to preserve immutability.
func NewFeatureVector(values []float64) (FeatureVector, error) {
	if len(values) == 0 {
		return FeatureVector{}, errors.New("feature vector cannot be empty")
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FeatureVector{}, errors.New("feature vector values must be finite")
		}
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	return FeatureVector{values: vals}, nil
}

// Dim returns the number of features in the vector
func (v FeatureVector) Dim() int {
	return len(v.values)
}

// Values returns a copy of the underlying values
func (v FeatureVector) Values() []float64 {
	vals := make([]float64, len(v.values))
	copy(vals, v.values)
	return vals
}

// At returns the value at index i
func (v FeatureVector) At(i int) float64 {
	return v.values[i]
}

// DistanceTo returns the Euclidean distance to another vector.
// Vectors of different lengths have no defined distance; callers guarantee
// both were produced by the same dimension's feature schema.
func (v FeatureVector) DistanceTo(other FeatureVector) (float64, error) {
	if len(v.values) != len(other.values) {
		return 0, errors.New("feature vectors have different lengths")
	}
	sum := 0.0
	for i := range v.values {
		d := v.values[i] - other.values[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// IsZero checks if the FeatureVector is the zero value
func (v FeatureVector) IsZero() bool {
	return v.values == nil
}

// Equals checks if two feature vectors hold identical values
func (v FeatureVector) Equals(other FeatureVector) bool {
	if len(v.values) != len(other.values) {
		return false
	}
	for i := range v.values {
		if v.values[i] != other.values[i] {
			return false
		}
	}
	return true
}
