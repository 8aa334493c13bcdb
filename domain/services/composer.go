package services

import (
	"math"

	"dnacore/domain/config"
	"dnacore/domain/core/aggregates"
	"dnacore/domain/core/entities"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// DimensionInput is the raw material for categorizing one entity against
// one calibrated dimension.
type DimensionInput struct {
	// Dimension is the published dimension version to categorize against
	Dimension *entities.Dimension
	// RawFeatures is the entity's raw feature row in the dimension's
	// feature schema; missing values carry the Missing marker
	RawFeatures []float64
}

// ProfileComposer categorizes entities against published dimensions and
// composes per-dimension memberships into a BehavioralDNA. Categorization
// never moves segment centers: it projects the entity's scaled vector
// onto the centers the calibration produced.
type ProfileComposer struct {
	clusterer *FuzzyCMeans
	cfg       *config.AnalyticsConfig
	logger    *zap.Logger
}

// NewProfileComposer creates a new profile composer
func NewProfileComposer(clusterer *FuzzyCMeans, cfg *config.AnalyticsConfig, logger *zap.Logger) *ProfileComposer {
	return &ProfileComposer{
		clusterer: clusterer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Categorize computes the entity's fuzzy membership over the leaf
// segments of one dimension. The dimension's own fitted scaler is applied
// first, so inference sees exactly the space calibration fitted.
func (c *ProfileComposer) Categorize(input DimensionInput) (aggregates.DimensionMembership, error) {
	dim := input.Dimension
	if dim == nil {
		return aggregates.DimensionMembership{}, pkgerrors.NewValidationError("dimension is required for categorization")
	}
	if usableFeatures(input.RawFeatures) == 0 {
		return aggregates.DimensionMembership{}, pkgerrors.NewInsufficientDataError("entity has no usable features for dimension").
			WithDetails(map[string]interface{}{"dimension": dim.Name()})
	}

	scaled, err := TransformWithParams(dim.Scaler(), input.RawFeatures)
	if err != nil {
		return aggregates.DimensionMembership{}, err
	}

	leaves := dim.LeafSegments()
	if len(leaves) == 0 {
		return aggregates.DimensionMembership{}, pkgerrors.NewInvariantError("dimension has no leaf segments").
			WithDetails(map[string]interface{}{"dimension": dim.Name()})
	}

	memberships := make(map[string]float64, len(leaves))
	if len(leaves) == 1 {
		// A single-leaf dimension gives every entity full membership
		memberships[leaves[0].ID().String()] = 1
	} else {
		centers := make([][]float64, len(leaves))
		for i, leaf := range leaves {
			centers[i] = leaf.Center().Values()
		}
		row := c.clusterer.MembershipAgainstCenters(scaled, centers)
		for i, leaf := range leaves {
			memberships[leaf.ID().String()] = row[i]
		}
	}

	vector, err := valueobjects.NewMembershipVector(memberships)
	if err != nil {
		return aggregates.DimensionMembership{}, err
	}

	return aggregates.DimensionMembership{
		Vector:  vector,
		Version: dim.Version(),
	}, nil
}

// Compose categorizes an entity against every supplied dimension and
// assembles the results into a BehavioralDNA. totalDimensions is the
// number of dimensions currently published; dimensions the entity has no
// usable features for are skipped and lower the coverage part of the
// confidence score.
func (c *ProfileComposer) Compose(
	entityID valueobjects.EntityID,
	inputs map[string]DimensionInput,
	totalDimensions int,
	observationCount int,
) (*aggregates.BehavioralDNA, error) {
	if totalDimensions <= 0 {
		return nil, pkgerrors.NewValidationError("total dimension count must be positive")
	}
	if len(inputs) == 0 {
		return nil, pkgerrors.NewInsufficientDataError("entity has no features on any dimension")
	}

	memberships := make(map[string]aggregates.DimensionMembership, len(inputs))
	skipped := 0
	for name, input := range inputs {
		membership, err := c.Categorize(input)
		if err != nil {
			if pkgerrors.IsInsufficientData(err) {
				skipped++
				continue
			}
			return nil, err
		}
		memberships[name] = membership
	}
	if len(memberships) == 0 {
		return nil, pkgerrors.NewInsufficientDataError("entity has no usable features on any dimension")
	}

	confidence := c.confidence(memberships, totalDimensions, observationCount)

	if skipped > 0 {
		c.logger.Debug("Skipped dimensions without usable features",
			zap.String("entityId", entityID.String()),
			zap.Int("skipped", skipped),
		)
	}

	return aggregates.NewBehavioralDNA(entityID, memberships, confidence, observationCount)
}

// confidence blends dimension coverage with the mean dominant membership
// strength. An entity below the observation floor is cold-start: its
// confidence is capped strictly below the unreliable threshold so callers
// can never mistake a thin history for a settled profile.
func (c *ProfileComposer) confidence(
	memberships map[string]aggregates.DimensionMembership,
	totalDimensions int,
	observationCount int,
) float64 {
	coverage := float64(len(memberships)) / float64(totalDimensions)

	strengthSum := 0.0
	for _, m := range memberships {
		_, top := m.Vector.Dominant()
		strengthSum += top
	}
	strength := strengthSum / float64(len(memberships))

	confidence := 0.5*coverage + 0.5*strength

	if observationCount < c.cfg.MinObservations {
		coldCap := c.cfg.LowConfidenceThreshold * float64(observationCount) / float64(c.cfg.MinObservations)
		confidence = math.Min(confidence, coldCap)
	}

	return confidence
}
