package handlers

import (
	"context"
	"time"

	"dnacore/application/ports"
	"dnacore/application/queries"
	"dnacore/domain/config"
	"dnacore/domain/core/entities"
	"dnacore/domain/core/valueobjects"
	"dnacore/domain/services"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// CategorizeEntityHandler projects one entity onto the current published
// segment boundaries and returns its fuzzy memberships.
type CategorizeEntityHandler struct {
	dimensionRepo ports.DimensionRepository
	featureSource ports.FeatureSource
	composer      *services.ProfileComposer
	cfg           *config.AnalyticsConfig
	logger        *zap.Logger
}

// NewCategorizeEntityHandler creates a new handler instance
func NewCategorizeEntityHandler(
	dimensionRepo ports.DimensionRepository,
	featureSource ports.FeatureSource,
	composer *services.ProfileComposer,
	cfg *config.AnalyticsConfig,
	logger *zap.Logger,
) *CategorizeEntityHandler {
	return &CategorizeEntityHandler{
		dimensionRepo: dimensionRepo,
		featureSource: featureSource,
		composer:      composer,
		cfg:           cfg,
		logger:        logger,
	}
}

// Handle executes the categorize entity query
func (h *CategorizeEntityHandler) Handle(ctx context.Context, query queries.CategorizeEntityQuery) (*queries.CategorizationResult, error) {
	entityID, err := valueobjects.NewEntityIDFromString(query.EntityID)
	if err != nil {
		return nil, err
	}

	dimensions, err := h.loadDimensions(ctx, query.Dimensions)
	if err != nil {
		return nil, err
	}

	inputs := make(map[string]services.DimensionInput, len(dimensions))
	for _, dimension := range dimensions {
		features, err := h.featureSource.EntityFeatures(ctx, dimension.Name(), entityID)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return nil, pkgerrors.Wrap(err, "failed to load entity features")
		}
		inputs[dimension.Name()] = services.DimensionInput{
			Dimension:   dimension,
			RawFeatures: features,
		}
	}

	observations, err := h.featureSource.ObservationCount(ctx, entityID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load observation count")
	}

	dna, err := h.composer.Compose(entityID, inputs, len(dimensions), observations)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*entities.Dimension, len(dimensions))
	for _, dimension := range dimensions {
		byName[dimension.Name()] = dimension
	}

	views := make(map[string]queries.DimensionMembershipView, len(dna.Memberships()))
	for name, membership := range dna.Memberships() {
		dominant, _ := membership.Vector.Dominant()
		views[name] = queries.DimensionMembershipView{
			Version:         membership.Version.String(),
			Memberships:     membership.Vector.Memberships(),
			DominantSegment: dominant,
			LowQuality:      byName[name].LowConfidence(),
		}
	}

	return &queries.CategorizationResult{
		EntityID:     query.EntityID,
		Memberships:  views,
		Confidence:   dna.Confidence(),
		ColdStart:    observations < h.cfg.MinObservations,
		Observations: observations,
		ComputedAt:   time.Now(),
	}, nil
}

// loadDimensions resolves the query's dimension filter against the
// currently published set
func (h *CategorizeEntityHandler) loadDimensions(ctx context.Context, names []string) ([]*entities.Dimension, error) {
	if len(names) == 0 {
		dimensions, err := h.dimensionRepo.ListCurrent(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to list published dimensions")
		}
		if len(dimensions) == 0 {
			return nil, pkgerrors.NewNotFoundError("no dimensions are published yet")
		}
		return dimensions, nil
	}

	dimensions := make([]*entities.Dimension, 0, len(names))
	for _, name := range names {
		dimension, err := h.dimensionRepo.GetCurrent(ctx, name)
		if err != nil {
			return nil, err
		}
		dimensions = append(dimensions, dimension)
	}
	return dimensions, nil
}
