package services

import (
	"testing"
	"time"

	"dnacore/domain/config"
	"dnacore/domain/core/entities"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestComposer(cfg *config.AnalyticsConfig) *ProfileComposer {
	logger := zap.NewNop()
	return NewProfileComposer(NewFuzzyCMeans(cfg, logger), cfg, logger)
}

// makeDimension builds a published dimension with identity scaling and
// leaf segments at the given centers
func makeDimension(t *testing.T, name string, centers [][]float64, cfg *config.AnalyticsConfig) *entities.Dimension {
	t.Helper()

	segments := make([]*entities.Segment, len(centers))
	share := 1.0 / float64(len(centers))
	for i, center := range centers {
		vec, err := valueobjects.NewFeatureVector(center)
		require.NoError(t, err)
		segment, err := entities.NewSegment(vec, 0.5, 1.0, 100, share)
		require.NoError(t, err)
		segments[i] = segment
	}

	features := make([]entities.FeatureScaling, len(centers[0]))
	for f := range features {
		features[f] = entities.FeatureScaling{Strategy: entities.ScalingStandard, Center: 0, Scale: 1}
	}

	dim, err := entities.ReconstructDimension(
		name,
		valueobjects.NewDimensionVersion(),
		segments,
		entities.ScalerParams{Features: features},
		entities.CalibrationQuality{Cohesion: 0.8, Balance: 0.9, CombinedScore: 0.86},
		300,
		time.Now(),
		cfg,
	)
	require.NoError(t, err)
	return dim
}

func TestProfileComposer_Categorize_MembershipsSumToOne(t *testing.T) {
	cfg := testConfig()
	composer := newTestComposer(cfg)
	dim := makeDimension(t, "engagement", [][]float64{{0, 0}, {5, 5}, {10, 0}}, cfg)

	membership, err := composer.Categorize(DimensionInput{
		Dimension:   dim,
		RawFeatures: []float64{3, 2},
	})
	require.NoError(t, err)

	sum := 0.0
	for _, u := range membership.Vector.Memberships() {
		sum += u
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Equal(t, 3, membership.Vector.SegmentCount())
	assert.True(t, membership.Version.Equals(dim.Version()))
}

func TestProfileComposer_Categorize_CenterPointGetsFullMembership(t *testing.T) {
	cfg := testConfig()
	composer := newTestComposer(cfg)
	dim := makeDimension(t, "engagement", [][]float64{{0, 0}, {10, 10}}, cfg)

	membership, err := composer.Categorize(DimensionInput{
		Dimension:   dim,
		RawFeatures: []float64{10, 10},
	})
	require.NoError(t, err)

	_, top := membership.Vector.Dominant()
	assert.InDelta(t, 1.0, top, 1e-9)
}

func TestProfileComposer_Categorize_SingleLeafIsTotal(t *testing.T) {
	cfg := testConfig()
	composer := newTestComposer(cfg)
	dim := makeDimension(t, "engagement", [][]float64{{1, 1}}, cfg)

	membership, err := composer.Categorize(DimensionInput{
		Dimension:   dim,
		RawFeatures: []float64{40, -3},
	})
	require.NoError(t, err)

	_, top := membership.Vector.Dominant()
	assert.Equal(t, 1.0, top)
}

func TestProfileComposer_Categorize_RejectsAllMissingRow(t *testing.T) {
	cfg := testConfig()
	composer := newTestComposer(cfg)
	dim := makeDimension(t, "engagement", [][]float64{{0, 0}, {5, 5}}, cfg)

	_, err := composer.Categorize(DimensionInput{
		Dimension:   dim,
		RawFeatures: []float64{Missing, Missing},
	})
	assert.True(t, pkgerrors.IsInsufficientData(err))
}

func TestProfileComposer_Compose_BuildsFingerprintAcrossDimensions(t *testing.T) {
	cfg := testConfig()
	composer := newTestComposer(cfg)

	engagement := makeDimension(t, "engagement", [][]float64{{0, 0}, {10, 10}}, cfg)
	spending := makeDimension(t, "spending", [][]float64{{0}, {4}, {8}}, cfg)

	entityID := valueobjects.NewEntityID()
	dna, err := composer.Compose(entityID, map[string]DimensionInput{
		"engagement": {Dimension: engagement, RawFeatures: []float64{1, 1}},
		"spending":   {Dimension: spending, RawFeatures: []float64{4}},
	}, 2, 40)
	require.NoError(t, err)

	assert.Equal(t, []string{"engagement", "spending"}, dna.DimensionNames())
	assert.Equal(t, 40, dna.ObservationCount())
	// Full coverage with strong dominant memberships
	assert.True(t, dna.Reliable(cfg.LowConfidenceThreshold))
}

func TestProfileComposer_Compose_SkipsDimensionsWithoutFeatures(t *testing.T) {
	cfg := testConfig()
	composer := newTestComposer(cfg)

	engagement := makeDimension(t, "engagement", [][]float64{{0, 0}, {10, 10}}, cfg)
	spending := makeDimension(t, "spending", [][]float64{{0}, {4}}, cfg)

	entityID := valueobjects.NewEntityID()
	dna, err := composer.Compose(entityID, map[string]DimensionInput{
		"engagement": {Dimension: engagement, RawFeatures: []float64{0, 0}},
		"spending":   {Dimension: spending, RawFeatures: []float64{Missing}},
	}, 2, 40)
	require.NoError(t, err)

	assert.Equal(t, []string{"engagement"}, dna.DimensionNames())

	full, err := composer.Compose(entityID, map[string]DimensionInput{
		"engagement": {Dimension: engagement, RawFeatures: []float64{0, 0}},
		"spending":   {Dimension: spending, RawFeatures: []float64{2}},
	}, 2, 40)
	require.NoError(t, err)

	// Partial coverage costs confidence
	assert.Less(t, dna.Confidence(), full.Confidence())
}

func TestProfileComposer_Compose_ColdStartIsUnreliable(t *testing.T) {
	cfg := testConfig()
	composer := newTestComposer(cfg)
	dim := makeDimension(t, "engagement", [][]float64{{0, 0}, {10, 10}}, cfg)

	entityID := valueobjects.NewEntityID()
	dna, err := composer.Compose(entityID, map[string]DimensionInput{
		"engagement": {Dimension: dim, RawFeatures: []float64{0, 0}},
	}, 1, cfg.MinObservations-1)
	require.NoError(t, err)

	// A thin history can never read as a settled profile
	assert.False(t, dna.Reliable(cfg.LowConfidenceThreshold))
}

func TestProfileComposer_Compose_FailsWithoutAnyUsableDimension(t *testing.T) {
	cfg := testConfig()
	composer := newTestComposer(cfg)
	dim := makeDimension(t, "engagement", [][]float64{{0, 0}, {10, 10}}, cfg)

	entityID := valueobjects.NewEntityID()
	_, err := composer.Compose(entityID, map[string]DimensionInput{
		"engagement": {Dimension: dim, RawFeatures: []float64{Missing, Missing}},
	}, 1, 40)
	assert.True(t, pkgerrors.IsInsufficientData(err))

	_, err = composer.Compose(entityID, nil, 1, 40)
	assert.True(t, pkgerrors.IsInsufficientData(err))
}
