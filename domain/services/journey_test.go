package services

import (
	"testing"
	"time"

	"dnacore/domain/core/aggregates"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCharacterizer() *JourneyCharacterizer {
	cfg := testConfig()
	logger := zap.NewNop()
	return NewJourneyCharacterizer(NewDriftAnalyzer(cfg, logger), cfg, logger)
}

// historySnapshot builds one point of a snapshot history from per-dimension
// membership maps
func historySnapshot(
	t *testing.T,
	versions map[string]valueobjects.DimensionVersion,
	capturedAt time.Time,
	dims map[string]map[string]float64,
) *aggregates.Snapshot {
	t.Helper()
	memberships := make(map[string]aggregates.DimensionMembership, len(dims))
	for name, m := range dims {
		memberships[name] = makeMembership(t, versions[name], m)
	}
	return makeSnapshot(t, "entity-1", capturedAt, memberships)
}

func testVersions() map[string]valueobjects.DimensionVersion {
	return map[string]valueobjects.DimensionVersion{
		"engagement": valueobjects.NewDimensionVersion(),
		"spending":   valueobjects.NewDimensionVersion(),
		"activity":   valueobjects.NewDimensionVersion(),
		"social":     valueobjects.NewDimensionVersion(),
	}
}

func TestJourneyCharacterizer_Characterize_StableHistory(t *testing.T) {
	characterizer := newTestCharacterizer()
	versions := testVersions()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var snapshots []*aggregates.Snapshot
	for month := 0; month < 4; month++ {
		snapshots = append(snapshots, historySnapshot(t, versions, base.AddDate(0, month, 0), map[string]map[string]float64{
			"engagement": {"a": 0.7, "b": 0.3},
			"spending":   {"x": 0.5, "y": 0.5},
		}))
	}

	journey, err := characterizer.Characterize(snapshots, nil)
	require.NoError(t, err)

	assert.Equal(t, JourneyStable, journey.Type)
	assert.InDelta(t, 1.0, journey.StabilityScore, 1e-9)
	assert.Empty(t, journey.DominantDimensions)
	assert.Equal(t, 4, journey.SnapshotCount)
	assert.Len(t, journey.Drifts, 3)
}

func TestJourneyCharacterizer_Characterize_ExploratoryHistory(t *testing.T) {
	characterizer := newTestCharacterizer()
	versions := testVersions()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Full segment flips on four distinct dimensions
	first := historySnapshot(t, versions, base, map[string]map[string]float64{
		"engagement": {"a": 1.0},
		"spending":   {"x": 1.0},
		"activity":   {"p": 1.0},
		"social":     {"s": 1.0},
	})
	second := historySnapshot(t, versions, base.AddDate(0, 1, 0), map[string]map[string]float64{
		"engagement": {"b": 1.0},
		"spending":   {"y": 1.0},
		"activity":   {"q": 1.0},
		"social":     {"u": 1.0},
	})

	journey, err := characterizer.Characterize([]*aggregates.Snapshot{first, second}, nil)
	require.NoError(t, err)

	assert.Equal(t, JourneyExploratory, journey.Type)
	assert.Len(t, journey.DominantDimensions, 3)
}

func TestJourneyCharacterizer_Characterize_RegressingHistory(t *testing.T) {
	characterizer := newTestCharacterizer()
	versions := testVersions()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Two dimensions moving steadily while business outcomes worsen
	snapshots := []*aggregates.Snapshot{
		historySnapshot(t, versions, base, map[string]map[string]float64{
			"engagement": {"a": 0.8, "b": 0.2},
			"spending":   {"x": 0.8, "y": 0.2},
		}),
		historySnapshot(t, versions, base.AddDate(0, 1, 0), map[string]map[string]float64{
			"engagement": {"a": 0.5, "b": 0.5},
			"spending":   {"x": 0.5, "y": 0.5},
		}),
		historySnapshot(t, versions, base.AddDate(0, 2, 0), map[string]map[string]float64{
			"engagement": {"a": 0.2, "b": 0.8},
			"spending":   {"x": 0.2, "y": 0.8},
		}),
	}
	metrics := []BusinessMetrics{
		{RiskScore: 0.1, ValueScore: 0.8},
		{RiskScore: 0.4, ValueScore: 0.6},
		{RiskScore: 0.7, ValueScore: 0.3},
	}

	journey, err := characterizer.Characterize(snapshots, metrics)
	require.NoError(t, err)

	assert.Equal(t, JourneyRegressing, journey.Type)
	assert.ElementsMatch(t, []string{"engagement", "spending"}, journey.DominantDimensions)
}

func TestJourneyCharacterizer_Characterize_EvolvingHistory(t *testing.T) {
	characterizer := newTestCharacterizer()
	versions := testVersions()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Moderate movement on one dimension: not stable, not exploratory,
	// and no business metrics to call it regressing
	snapshots := []*aggregates.Snapshot{
		historySnapshot(t, versions, base, map[string]map[string]float64{
			"engagement": {"a": 0.8, "b": 0.2},
		}),
		historySnapshot(t, versions, base.AddDate(0, 1, 0), map[string]map[string]float64{
			"engagement": {"a": 0.5, "b": 0.5},
		}),
		historySnapshot(t, versions, base.AddDate(0, 2, 0), map[string]map[string]float64{
			"engagement": {"a": 0.3, "b": 0.7},
		}),
	}

	journey, err := characterizer.Characterize(snapshots, nil)
	require.NoError(t, err)

	assert.Equal(t, JourneyEvolving, journey.Type)
	assert.Equal(t, []string{"engagement"}, journey.DominantDimensions)
}

func TestJourneyCharacterizer_Characterize_OrdersSnapshotsByTime(t *testing.T) {
	characterizer := newTestCharacterizer()
	versions := testVersions()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	early := historySnapshot(t, versions, base, map[string]map[string]float64{
		"engagement": {"a": 1.0},
	})
	late := historySnapshot(t, versions, base.AddDate(0, 2, 0), map[string]map[string]float64{
		"engagement": {"a": 0.6, "b": 0.4},
	})

	// Out-of-order input is sorted, not rejected
	journey, err := characterizer.Characterize([]*aggregates.Snapshot{late, early}, nil)
	require.NoError(t, err)

	assert.Equal(t, early.CapturedAt(), journey.FirstSnapshot)
	assert.Equal(t, late.CapturedAt(), journey.LastSnapshot)
}

func TestJourneyCharacterizer_Characterize_RequiresHistory(t *testing.T) {
	characterizer := newTestCharacterizer()
	versions := testVersions()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	only := historySnapshot(t, versions, base, map[string]map[string]float64{
		"engagement": {"a": 1.0},
	})

	_, err := characterizer.Characterize([]*aggregates.Snapshot{only}, nil)
	assert.True(t, pkgerrors.IsInsufficientData(err))

	_, err = characterizer.Characterize([]*aggregates.Snapshot{only, only}, []BusinessMetrics{{}})
	assert.True(t, pkgerrors.IsValidation(err))
}
