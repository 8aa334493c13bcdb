package handlers

import (
	"context"
	"testing"

	"dnacore/application/queries"
	pkgerrors "dnacore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeEntityReturnsMemberships(t *testing.T) {
	env := newTestEnv(t)
	dimension := env.publishDimension(t, "engagement")

	env.source.LoadFeatures("engagement", "entity-1", []float64{0.11, 0.09})
	env.source.LoadObservations("entity-1", env.cfg.MinObservations+20)

	result, err := env.categorize.Handle(context.Background(), queries.CategorizeEntityQuery{
		EntityID: "entity-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "entity-1", result.EntityID)
	assert.False(t, result.ColdStart)
	assert.Greater(t, result.Confidence, 0.0)

	view, ok := result.Memberships["engagement"]
	require.True(t, ok)
	assert.Equal(t, dimension.Version().String(), view.Version)
	assert.NotEmpty(t, view.DominantSegment)

	sum := 0.0
	for _, degree := range view.Memberships {
		sum += degree
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestCategorizeEntityColdStart(t *testing.T) {
	env := newTestEnv(t)
	env.publishDimension(t, "engagement")

	env.source.LoadFeatures("engagement", "entity-cold", []float64{0.9, 0.9})
	env.source.LoadObservations("entity-cold", env.cfg.MinObservations-1)

	result, err := env.categorize.Handle(context.Background(), queries.CategorizeEntityQuery{
		EntityID: "entity-cold",
	})
	require.NoError(t, err)

	assert.True(t, result.ColdStart)
	// A thin history can never present as a settled profile
	assert.Less(t, result.Confidence, env.cfg.LowConfidenceThreshold)
}

func TestCategorizeEntityDimensionFilter(t *testing.T) {
	env := newTestEnv(t)
	env.publishDimension(t, "engagement")
	env.publishDimension(t, "spending")

	env.source.LoadFeatures("engagement", "entity-1", []float64{0.1, 0.1})
	env.source.LoadFeatures("spending", "entity-1", []float64{0.9, 0.9})
	env.source.LoadObservations("entity-1", 50)

	result, err := env.categorize.Handle(context.Background(), queries.CategorizeEntityQuery{
		EntityID:   "entity-1",
		Dimensions: []string{"spending"},
	})
	require.NoError(t, err)

	assert.Contains(t, result.Memberships, "spending")
	assert.NotContains(t, result.Memberships, "engagement")
}

func TestCategorizeEntityUnknownDimension(t *testing.T) {
	env := newTestEnv(t)
	env.publishDimension(t, "engagement")
	env.source.LoadObservations("entity-1", 50)

	_, err := env.categorize.Handle(context.Background(), queries.CategorizeEntityQuery{
		EntityID:   "entity-1",
		Dimensions: []string{"tenure"},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCategorizeEntityNoPublishedDimensions(t *testing.T) {
	env := newTestEnv(t)
	env.source.LoadObservations("entity-1", 50)

	_, err := env.categorize.Handle(context.Background(), queries.CategorizeEntityQuery{
		EntityID: "entity-1",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCategorizeEntityPartialCoverageLowersConfidence(t *testing.T) {
	env := newTestEnv(t)
	env.publishDimension(t, "engagement")
	env.publishDimension(t, "spending")

	// Features on one of two published dimensions
	env.source.LoadFeatures("engagement", "entity-partial", []float64{0.1, 0.1})
	env.source.LoadObservations("entity-partial", 50)

	env.source.LoadFeatures("engagement", "entity-full", []float64{0.1, 0.1})
	env.source.LoadFeatures("spending", "entity-full", []float64{0.1, 0.1})
	env.source.LoadObservations("entity-full", 50)

	partial, err := env.categorize.Handle(context.Background(), queries.CategorizeEntityQuery{
		EntityID: "entity-partial",
	})
	require.NoError(t, err)
	full, err := env.categorize.Handle(context.Background(), queries.CategorizeEntityQuery{
		EntityID: "entity-full",
	})
	require.NoError(t, err)

	assert.Len(t, partial.Memberships, 1)
	assert.Len(t, full.Memberships, 2)
	assert.Less(t, partial.Confidence, full.Confidence)
}
