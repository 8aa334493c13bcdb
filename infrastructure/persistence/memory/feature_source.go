package memory

import (
	"context"
	"sort"
	"sync"

	"dnacore/application/ports"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"
)

// InMemoryFeatureSource provides an in-memory implementation of FeatureSource
// for tests and local development. Feature rows are loaded per dimension and
// per entity; population matrices iterate entities in sorted ID order so
// calibration runs are reproducible.
type InMemoryFeatureSource struct {
	mu           sync.RWMutex
	features     map[string]map[string][]float64 // dimension -> entity ID -> feature row
	observations map[string]int                  // entity ID -> observation count
}

// NewInMemoryFeatureSource creates a new in-memory feature source
func NewInMemoryFeatureSource() *InMemoryFeatureSource {
	return &InMemoryFeatureSource{
		features:     make(map[string]map[string][]float64),
		observations: make(map[string]int),
	}
}

// LoadFeatures stores one entity's raw feature row for a dimension
func (s *InMemoryFeatureSource) LoadFeatures(dimension, entityID string, features []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.features[dimension] == nil {
		s.features[dimension] = make(map[string][]float64)
	}
	s.features[dimension][entityID] = features
}

// LoadObservations stores the raw observation count for an entity
func (s *InMemoryFeatureSource) LoadObservations(entityID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observations[entityID] = count
}

// PopulationMatrix retrieves the raw feature matrix for a dimension across
// the whole population, rows aligned with the returned entity IDs
func (s *InMemoryFeatureSource) PopulationMatrix(ctx context.Context, dimension string) ([]string, [][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.features[dimension]
	if len(rows) == 0 {
		return nil, nil, pkgerrors.NewNotFoundError("dimension features")
	}

	entityIDs := make([]string, 0, len(rows))
	for entityID := range rows {
		entityIDs = append(entityIDs, entityID)
	}
	sort.Strings(entityIDs)

	matrix := make([][]float64, 0, len(entityIDs))
	for _, entityID := range entityIDs {
		matrix = append(matrix, rows[entityID])
	}

	return entityIDs, matrix, nil
}

// EntityFeatures retrieves one entity's raw feature row for a dimension
func (s *InMemoryFeatureSource) EntityFeatures(ctx context.Context, dimension string, entityID valueobjects.EntityID) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	features, exists := s.features[dimension][entityID.String()]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("entity features")
	}

	return features, nil
}

// ObservationCount retrieves how many raw observations back the entity's features
func (s *InMemoryFeatureSource) ObservationCount(ctx context.Context, entityID valueobjects.EntityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.observations[entityID.String()], nil
}

var _ ports.FeatureSource = (*InMemoryFeatureSource)(nil)
