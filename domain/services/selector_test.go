package services

import (
	"context"
	"math/rand"
	"testing"

	pkgerrors "dnacore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSelector() *ModelSelector {
	cfg := testConfig()
	logger := zap.NewNop()
	return NewModelSelector(NewFuzzyCMeans(cfg, logger), cfg, logger)
}

func TestModelSelector_SelectK_FindsTwoClusters(t *testing.T) {
	selector := newTestSelector()

	rng := rand.New(rand.NewSource(10))
	data := append(
		makeBlob(rng, []float64{0, 0}, 60, 0.5),
		makeBlob(rng, []float64{8, 8}, 60, 0.5)...,
	)

	sel, err := selector.SelectK(context.Background(), data, 2, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, sel.K)
	assert.Greater(t, sel.Cohesion, 0.8)
	// Two equal blobs are perfectly balanced
	assert.InDelta(t, 1.0, sel.Balance, 1e-9)
	assert.Empty(t, sel.Warnings)
	assert.Len(t, sel.Candidates, 4)
}

func TestModelSelector_SelectK_BalanceOutweighsCohesion(t *testing.T) {
	selector := newTestSelector()

	// Three blobs: two tight and one diffuse. A k that isolates the tight
	// blobs and lumps the rest wins on cohesion but loses on balance.
	rng := rand.New(rand.NewSource(11))
	data := append(
		makeBlob(rng, []float64{0, 0}, 40, 0.4),
		makeBlob(rng, []float64{6, 0}, 40, 0.4)...,
	)
	data = append(data, makeBlob(rng, []float64{3, 6}, 40, 0.4)...)

	sel, err := selector.SelectK(context.Background(), data, 2, 5)
	require.NoError(t, err)

	// Three equal blobs should select k=3 with even sizes
	assert.Equal(t, 3, sel.K)
	assert.InDelta(t, 1.0, sel.Balance, 1e-9)
}

func TestModelSelector_SelectK_WarnsOnWeakStructure(t *testing.T) {
	cfg := testConfig()
	cfg.MinCohesion = 0.99
	logger := zap.NewNop()
	selector := NewModelSelector(NewFuzzyCMeans(cfg, logger), cfg, logger)

	// One undifferentiated blob cannot reach near-perfect separation
	rng := rand.New(rand.NewSource(12))
	data := makeBlob(rng, []float64{0, 0}, 80, 1.0)

	sel, err := selector.SelectK(context.Background(), data, 2, 4)
	require.NoError(t, err)

	assert.NotEmpty(t, sel.Warnings)
}

func TestModelSelector_SelectK_SkipsCandidatesBeyondPopulation(t *testing.T) {
	selector := newTestSelector()

	rng := rand.New(rand.NewSource(13))
	data := makeBlob(rng, []float64{0}, 3, 1.0)

	sel, err := selector.SelectK(context.Background(), data, 2, 10)
	require.NoError(t, err)

	// Only k=2 and k=3 fit a population of three
	assert.LessOrEqual(t, sel.K, 3)
	assert.Len(t, sel.Candidates, 2)
}

func TestModelSelector_SelectK_RejectsBadRange(t *testing.T) {
	selector := newTestSelector()
	ctx := context.Background()

	_, err := selector.SelectK(ctx, [][]float64{{1}, {2}, {3}}, 4, 3)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = selector.SelectK(ctx, [][]float64{{1}}, 2, 4)
	assert.True(t, pkgerrors.IsInsufficientData(err))
}

func TestPopulationBalance(t *testing.T) {
	// Perfectly even sizes score 1
	assert.InDelta(t, 1.0, populationBalance([]int{50, 50}), 1e-9)

	// Heavy imbalance approaches 0; one empty cluster of two with CV 1
	assert.InDelta(t, 0.0, populationBalance([]int{100, 0}), 1e-9)

	// Mild imbalance lands strictly between
	mild := populationBalance([]int{60, 40})
	assert.Greater(t, mild, 0.5)
	assert.Less(t, mild, 1.0)
}

func TestSimplifiedSilhouette(t *testing.T) {
	// Points sitting on their own centers, far from the other center
	data := [][]float64{{0, 0}, {10, 10}}
	centers := [][]float64{{0, 0}, {10, 10}}
	score := simplifiedSilhouette(data, centers, []int{0, 1})
	assert.InDelta(t, 1.0, score, 1e-9)

	// A point equidistant from both centers scores 0
	data = [][]float64{{5, 0}}
	centers = [][]float64{{0, 0}, {10, 0}}
	score = simplifiedSilhouette(data, centers, []int{0})
	assert.InDelta(t, 0.0, score, 1e-9)
}
