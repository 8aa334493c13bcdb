package services

import (
	"context"
	"math/rand"
	"testing"

	"dnacore/domain/config"
	"dnacore/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSubdivider(cfg *config.AnalyticsConfig) *Subdivider {
	logger := zap.NewNop()
	selector := NewModelSelector(NewFuzzyCMeans(cfg, logger), cfg, logger)
	return NewSubdivider(selector, cfg, logger)
}

// fitTopLevel runs selection the way a calibration does, so subdivision
// tests start from a realistic winning model
func fitTopLevel(t *testing.T, cfg *config.AnalyticsConfig, data [][]float64, kMin, kMax int) *Selection {
	t.Helper()
	logger := zap.NewNop()
	selector := NewModelSelector(NewFuzzyCMeans(cfg, logger), cfg, logger)
	sel, err := selector.SelectK(context.Background(), data, kMin, kMax)
	require.NoError(t, err)
	return sel
}

func TestSubdivider_Build_CompactSegmentsStayLeaves(t *testing.T) {
	cfg := testConfig()
	subdivider := newTestSubdivider(cfg)

	rng := rand.New(rand.NewSource(20))
	data := append(
		makeBlob(rng, []float64{0, 0}, 60, 0.4),
		makeBlob(rng, []float64{8, 8}, 60, 0.4)...,
	)

	sel := fitTopLevel(t, cfg, data, 2, 4)
	segments, err := subdivider.Build(context.Background(), data, sel)
	require.NoError(t, err)

	// Tight balanced blobs give no trigger anything to fire on
	assert.Len(t, segments, sel.K)
	for _, segment := range segments {
		assert.Equal(t, 0, segment.Depth())
		assert.Nil(t, segment.ParentID())
	}
}

func TestSubdivider_Build_SplitsOversizedSegment(t *testing.T) {
	cfg := testConfig()
	subdivider := newTestSubdivider(cfg)

	// One small distinct blob plus a dominant region that itself has two
	// subgroups: the dominant top-level segment exceeds the population
	// share cap and splits
	rng := rand.New(rand.NewSource(21))
	data := makeBlob(rng, []float64{20, 20}, 30, 0.4)
	data = append(data, makeBlob(rng, []float64{0, 0}, 60, 0.4)...)
	data = append(data, makeBlob(rng, []float64{4, 0}, 60, 0.4)...)

	sel := fitTopLevel(t, cfg, data, 2, 2)
	segments, err := subdivider.Build(context.Background(), data, sel)
	require.NoError(t, err)

	// The dominant segment (120 of 150, 80% share) gains children
	assert.Greater(t, len(segments), sel.K)

	children := 0
	for _, segment := range segments {
		if segment.ParentID() != nil {
			children++
			assert.GreaterOrEqual(t, segment.MemberCount(), cfg.MinSubsegmentSize)
		}
	}
	assert.GreaterOrEqual(t, children, 2)
}

func TestSubdivider_Build_RespectsDepthCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDepth = 1
	// Force aggressive splitting
	cfg.VarianceThreshold = 0.01
	cfg.MinSegmentSize = 10
	subdivider := newTestSubdivider(cfg)

	rng := rand.New(rand.NewSource(22))
	data := append(
		makeBlob(rng, []float64{0, 0}, 100, 2.0),
		makeBlob(rng, []float64{10, 10}, 100, 2.0)...,
	)

	sel := fitTopLevel(t, cfg, data, 2, 3)
	segments, err := subdivider.Build(context.Background(), data, sel)
	require.NoError(t, err)

	for _, segment := range segments {
		assert.LessOrEqual(t, segment.Depth(), cfg.MaxDepth)
	}
}

func TestSubdivider_Build_NeverBreaksSizeFloor(t *testing.T) {
	cfg := testConfig()
	cfg.VarianceThreshold = 0.01
	subdivider := newTestSubdivider(cfg)

	rng := rand.New(rand.NewSource(23))
	data := append(
		makeBlob(rng, []float64{0, 0}, 80, 1.5),
		makeBlob(rng, []float64{10, 10}, 80, 1.5)...,
	)

	sel := fitTopLevel(t, cfg, data, 2, 3)
	segments, err := subdivider.Build(context.Background(), data, sel)
	require.NoError(t, err)

	for _, segment := range segments {
		if segment.Depth() > 0 {
			assert.GreaterOrEqual(t, segment.MemberCount(), cfg.MinSubsegmentSize)
		}
	}
}

func TestSubdivider_Build_SmallSegmentsAreNeverSplit(t *testing.T) {
	cfg := testConfig()
	cfg.VarianceThreshold = 0.01
	cfg.MinSegmentSize = 200
	subdivider := newTestSubdivider(cfg)

	rng := rand.New(rand.NewSource(24))
	data := append(
		makeBlob(rng, []float64{0, 0}, 50, 2.0),
		makeBlob(rng, []float64{10, 10}, 50, 2.0)...,
	)

	sel := fitTopLevel(t, cfg, data, 2, 3)
	segments, err := subdivider.Build(context.Background(), data, sel)
	require.NoError(t, err)

	// Every segment sits below the size floor, so the tree stays flat
	for _, segment := range segments {
		assert.Equal(t, 0, segment.Depth())
	}
}

func TestSubdivider_Build_PopulationSharesPartitionTopLevel(t *testing.T) {
	cfg := testConfig()
	subdivider := newTestSubdivider(cfg)

	rng := rand.New(rand.NewSource(25))
	data := append(
		makeBlob(rng, []float64{0, 0}, 70, 0.4),
		makeBlob(rng, []float64{8, 8}, 30, 0.4)...,
	)

	sel := fitTopLevel(t, cfg, data, 2, 2)
	segments, err := subdivider.Build(context.Background(), data, sel)
	require.NoError(t, err)

	topShare := 0.0
	topCount := 0
	for _, segment := range segments {
		if segment.Depth() == 0 {
			topShare += segment.PopulationShare()
			topCount += segment.MemberCount()
		}
	}
	assert.InDelta(t, 1.0, topShare, 1e-9)
	assert.Equal(t, len(data), topCount)
}

func TestSubdivider_Build_ChildrenReferenceParents(t *testing.T) {
	cfg := testConfig()
	subdivider := newTestSubdivider(cfg)

	rng := rand.New(rand.NewSource(26))
	data := makeBlob(rng, []float64{20, 20}, 30, 0.4)
	data = append(data, makeBlob(rng, []float64{0, 0}, 60, 0.4)...)
	data = append(data, makeBlob(rng, []float64{4, 0}, 60, 0.4)...)

	sel := fitTopLevel(t, cfg, data, 2, 2)
	segments, err := subdivider.Build(context.Background(), data, sel)
	require.NoError(t, err)

	byID := make(map[string]*entities.Segment, len(segments))
	for _, segment := range segments {
		byID[segment.ID().String()] = segment
	}
	for _, segment := range segments {
		if parentID := segment.ParentID(); parentID != nil {
			parent, ok := byID[parentID.String()]
			require.True(t, ok, "child references a segment outside the tree")
			assert.Equal(t, parent.Depth()+1, segment.Depth())
		}
	}
}
