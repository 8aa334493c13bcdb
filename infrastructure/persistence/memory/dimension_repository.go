package memory

import (
	"context"
	"sort"
	"sync"

	"dnacore/application/ports"
	"dnacore/domain/core/entities"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"
)

// InMemoryDimensionRepository provides an in-memory implementation of
// DimensionRepository for tests and local development
type InMemoryDimensionRepository struct {
	mu       sync.RWMutex
	versions map[string]map[string]*entities.Dimension // name -> version -> dimension
	current  map[string]string                         // name -> current version
}

// NewInMemoryDimensionRepository creates a new in-memory dimension repository
func NewInMemoryDimensionRepository() *InMemoryDimensionRepository {
	return &InMemoryDimensionRepository{
		versions: make(map[string]map[string]*entities.Dimension),
		current:  make(map[string]string),
	}
}

// SaveVersion persists a new immutable dimension version
func (r *InMemoryDimensionRepository) SaveVersion(ctx context.Context, dimension *entities.Dimension) error {
	if dimension == nil {
		return pkgerrors.NewValidationError("dimension cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := dimension.Name()
	version := dimension.Version().String()

	if r.versions[name] == nil {
		r.versions[name] = make(map[string]*entities.Dimension)
	}
	if _, exists := r.versions[name][version]; exists {
		return pkgerrors.NewConflictError("dimension version " + version + " already exists for " + name)
	}

	r.versions[name][version] = dimension
	return nil
}

// Publish makes the given version the current one for its dimension name
func (r *InMemoryDimensionRepository) Publish(ctx context.Context, name string, version valueobjects.DimensionVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.versions[name][version.String()]; !exists {
		return pkgerrors.NewNotFoundError("dimension version")
	}

	r.current[name] = version.String()
	return nil
}

// GetCurrent retrieves the current published version of a dimension
func (r *InMemoryDimensionRepository) GetCurrent(ctx context.Context, name string) (*entities.Dimension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, published := r.current[name]
	if !published {
		return nil, pkgerrors.NewNotFoundError("dimension")
	}

	return r.versions[name][version], nil
}

// GetVersion retrieves one specific dimension version
func (r *InMemoryDimensionRepository) GetVersion(ctx context.Context, name string, version valueobjects.DimensionVersion) (*entities.Dimension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dimension, exists := r.versions[name][version.String()]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("dimension version")
	}

	return dimension, nil
}

// ListCurrent retrieves the current version of every published dimension,
// ordered by name for deterministic iteration
func (r *InMemoryDimensionRepository) ListCurrent(ctx context.Context) ([]*entities.Dimension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.current))
	for name := range r.current {
		names = append(names, name)
	}
	sort.Strings(names)

	dimensions := make([]*entities.Dimension, 0, len(names))
	for _, name := range names {
		dimensions = append(dimensions, r.versions[name][r.current[name]])
	}

	return dimensions, nil
}

var _ ports.DimensionRepository = (*InMemoryDimensionRepository)(nil)
