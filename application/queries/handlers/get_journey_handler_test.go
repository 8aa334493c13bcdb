package handlers

import (
	"context"
	"testing"
	"time"

	"dnacore/application/queries"
	"dnacore/domain/services"
	pkgerrors "dnacore/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJourneyCharacterizesHistory(t *testing.T) {
	env := newTestEnv(t)
	version := uuid.New().String()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	env.appendSnapshot(t, "entity-1", version, base,
		map[string]float64{"s1": 0.8, "s2": 0.2}, floatPtr(0.2), floatPtr(0.5))
	env.appendSnapshot(t, "entity-1", version, base.Add(7*24*time.Hour),
		map[string]float64{"s1": 0.6, "s2": 0.4}, floatPtr(0.3), floatPtr(0.5))
	env.appendSnapshot(t, "entity-1", version, base.Add(14*24*time.Hour),
		map[string]float64{"s1": 0.3, "s2": 0.7}, floatPtr(0.4), floatPtr(0.5))

	result, err := env.journey.Handle(context.Background(), queries.GetJourneyQuery{
		EntityID: "entity-1",
		From:     base.Add(-time.Hour),
		To:       base.Add(15 * 24 * time.Hour),
	})
	require.NoError(t, err)

	journey := result.Journey
	assert.Equal(t, "entity-1", journey.EntityID)
	assert.Equal(t, 3, journey.SnapshotCount)
	require.Len(t, journey.Drifts, 2)
	assert.True(t, journey.StabilityScore >= 0 && journey.StabilityScore <= 1)
	assert.True(t, journey.FirstSnapshot.Before(journey.LastSnapshot))

	// Same calibration version throughout: drift is purely behavioral
	assert.Empty(t, result.RedefinedDimensions)
	for _, report := range journey.Drifts {
		require.Len(t, report.Dimensions, 1)
		assert.Equal(t, "engagement", report.Dimensions[0].Dimension)
		assert.False(t, report.Dimensions[0].Redefined)
		assert.Greater(t, report.Overall, 0.0)
	}

	// Movement above the stable tier announces itself
	assert.NotEmpty(t, env.bus.byType("drift.detected"))
}

func TestGetJourneyWithoutOutcomesReportsUnknownDirection(t *testing.T) {
	env := newTestEnv(t)
	version := uuid.New().String()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	env.appendSnapshot(t, "entity-1", version, base,
		map[string]float64{"s1": 0.8, "s2": 0.2}, nil, nil)
	env.appendSnapshot(t, "entity-1", version, base.Add(7*24*time.Hour),
		map[string]float64{"s1": 0.3, "s2": 0.7}, nil, nil)

	result, err := env.journey.Handle(context.Background(), queries.GetJourneyQuery{
		EntityID: "entity-1",
		From:     base.Add(-time.Hour),
		To:       base.Add(8 * 24 * time.Hour),
	})
	require.NoError(t, err)

	// Score-less captures carry no outcome deltas, so no direction can be
	// scored for them
	require.NotEmpty(t, result.Journey.Drifts)
	for _, report := range result.Journey.Drifts {
		assert.Equal(t, services.DirectionUnknown, report.Direction)
	}
}

func TestGetJourneyFlagsRedefinedDimensions(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	env.appendSnapshot(t, "entity-1", uuid.New().String(), base,
		map[string]float64{"s1": 0.8, "s2": 0.2}, floatPtr(0.2), floatPtr(0.5))
	// Recalibrated in between: membership movement mixes behavior change
	// with boundary movement
	env.appendSnapshot(t, "entity-1", uuid.New().String(), base.Add(7*24*time.Hour),
		map[string]float64{"s1": 0.8, "s2": 0.2}, floatPtr(0.2), floatPtr(0.5))

	result, err := env.journey.Handle(context.Background(), queries.GetJourneyQuery{
		EntityID: "entity-1",
		From:     base.Add(-time.Hour),
		To:       base.Add(8 * 24 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"engagement"}, result.RedefinedDimensions)
}

func TestGetJourneyOpenEndedWindow(t *testing.T) {
	env := newTestEnv(t)
	version := uuid.New().String()
	base := time.Now().Add(-30 * 24 * time.Hour)

	env.appendSnapshot(t, "entity-1", version, base,
		map[string]float64{"s1": 0.9, "s2": 0.1}, floatPtr(0.1), floatPtr(0.9))
	env.appendSnapshot(t, "entity-1", version, base.Add(10*24*time.Hour),
		map[string]float64{"s1": 0.5, "s2": 0.5}, floatPtr(0.1), floatPtr(0.9))

	// Zero To defaults to now
	result, err := env.journey.Handle(context.Background(), queries.GetJourneyQuery{
		EntityID: "entity-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Journey.SnapshotCount)
}

func TestGetJourneySingleSnapshot(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.appendSnapshot(t, "entity-1", uuid.New().String(), base,
		map[string]float64{"s1": 1.0}, floatPtr(0.2), floatPtr(0.5))

	_, err := env.journey.Handle(context.Background(), queries.GetJourneyQuery{
		EntityID: "entity-1",
		From:     base.Add(-time.Hour),
		To:       base.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInsufficientData(err))
}

func TestGetJourneyWindowExcludesOutsideSnapshots(t *testing.T) {
	env := newTestEnv(t)
	version := uuid.New().String()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	env.appendSnapshot(t, "entity-1", version, base.Add(-60*24*time.Hour),
		map[string]float64{"s1": 0.1, "s2": 0.9}, floatPtr(0.5), floatPtr(0.5))
	env.appendSnapshot(t, "entity-1", version, base,
		map[string]float64{"s1": 0.8, "s2": 0.2}, floatPtr(0.2), floatPtr(0.5))
	env.appendSnapshot(t, "entity-1", version, base.Add(7*24*time.Hour),
		map[string]float64{"s1": 0.7, "s2": 0.3}, floatPtr(0.2), floatPtr(0.5))

	result, err := env.journey.Handle(context.Background(), queries.GetJourneyQuery{
		EntityID: "entity-1",
		From:     base.Add(-time.Hour),
		To:       base.Add(8 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Journey.SnapshotCount)
}
