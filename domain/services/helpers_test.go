package services

import (
	"math/rand"
	"testing"
	"time"

	"dnacore/domain/config"
	"dnacore/domain/core/aggregates"
	"dnacore/domain/core/valueobjects"

	"github.com/stretchr/testify/require"
)

// testConfig returns a deterministic configuration with size floors scaled
// down to synthetic-population sizes
func testConfig() *config.AnalyticsConfig {
	cfg := config.DefaultAnalyticsConfig()
	cfg.RandomSeed = 42
	cfg.MinSegmentSize = 20
	cfg.MinSubsegmentSize = 5
	cfg.MinCalibrationPopulation = 20
	return cfg
}

// makeBlob draws n points around a center with uniform jitter
func makeBlob(rng *rand.Rand, center []float64, n int, spread float64) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		point := make([]float64, len(center))
		for d := range point {
			point[d] = center[d] + (rng.Float64()*2-1)*spread
		}
		points[i] = point
	}
	return points
}

// makeMembership builds a DimensionMembership over the given segments
func makeMembership(t *testing.T, version valueobjects.DimensionVersion, memberships map[string]float64) aggregates.DimensionMembership {
	t.Helper()
	vector, err := valueobjects.NewMembershipVector(memberships)
	require.NoError(t, err)
	return aggregates.DimensionMembership{Vector: vector, Version: version}
}

// makeSnapshot builds a snapshot of one entity at a fixed capture time
func makeSnapshot(
	t *testing.T,
	entityID string,
	capturedAt time.Time,
	memberships map[string]aggregates.DimensionMembership,
) *aggregates.Snapshot {
	t.Helper()

	entity, err := valueobjects.NewEntityIDFromString(entityID)
	require.NoError(t, err)

	dna, err := aggregates.NewBehavioralDNA(entity, memberships, 0.9, 50)
	require.NoError(t, err)

	snapshot, err := aggregates.ReconstructSnapshot(
		"snap-"+entityID+"-"+capturedAt.Format(time.RFC3339),
		dna,
		aggregates.RetentionDaily,
		capturedAt,
	)
	require.NoError(t, err)
	return snapshot
}
