package services

import (
	"context"
	"fmt"
	"math"

	"dnacore/domain/config"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// CandidateScore records the evaluation of one candidate cluster count
// during model selection, kept for calibration diagnostics.
type CandidateScore struct {
	K         int
	Cohesion  float64
	Balance   float64
	Combined  float64
	EmptyFree bool
}

// Selection is the winning model for one dimension: the chosen cluster
// count, its fit, and the quality verdict that will be persisted with the
// dimension.
type Selection struct {
	K          int
	Fit        *ClusterFit
	Cohesion   float64
	Balance    float64
	Combined   float64
	Warnings   []string
	Candidates []CandidateScore
}

// ModelSelector picks a cluster count by scoring each candidate on a
// weighted blend of cohesion and population balance. Balance carries the
// heavier weight: a model that parks most of the population in one
// segment scores poorly no matter how tight its clusters are.
type ModelSelector struct {
	clusterer *FuzzyCMeans
	cfg       *config.AnalyticsConfig
	logger    *zap.Logger
}

// NewModelSelector creates a new model selector
func NewModelSelector(clusterer *FuzzyCMeans, cfg *config.AnalyticsConfig, logger *zap.Logger) *ModelSelector {
	return &ModelSelector{
		clusterer: clusterer,
		cfg:       cfg,
		logger:    logger,
	}
}

// SelectK evaluates every candidate cluster count in [kMin, kMax] and
// returns the best-scoring model. Candidates larger than the population
// are skipped.
func (s *ModelSelector) SelectK(ctx context.Context, data [][]float64, kMin, kMax int) (*Selection, error) {
	if kMin < 2 {
		kMin = 2
	}
	if kMax < kMin {
		return nil, pkgerrors.NewValidationError("cluster count range is empty").
			WithDetails(map[string]interface{}{"kMin": kMin, "kMax": kMax})
	}
	if len(data) < kMin {
		return nil, pkgerrors.NewInsufficientDataError("population smaller than minimum cluster count")
	}

	var best *Selection
	candidates := make([]CandidateScore, 0, kMax-kMin+1)

	for k := kMin; k <= kMax; k++ {
		if k > len(data) {
			break
		}

		fit, err := s.clusterer.Fit(ctx, data, k)
		if err != nil {
			return nil, err
		}

		assignments, sizes := dominantAssignments(fit.Memberships, k)
		cohesion := simplifiedSilhouette(data, fit.Centers, assignments)
		balance := populationBalance(sizes)
		combined := s.cfg.CohesionWeight*cohesion + s.cfg.BalanceWeight*balance

		candidate := CandidateScore{
			K:         k,
			Cohesion:  cohesion,
			Balance:   balance,
			Combined:  combined,
			EmptyFree: minSize(sizes) > 0,
		}
		candidates = append(candidates, candidate)

		s.logger.Debug("Scored candidate cluster count",
			zap.Int("k", k),
			zap.Float64("cohesion", cohesion),
			zap.Float64("balance", balance),
			zap.Float64("combined", combined),
		)

		if best == nil || combined > best.Combined {
			best = &Selection{
				K:        k,
				Fit:      fit,
				Cohesion: cohesion,
				Balance:  balance,
				Combined: combined,
			}
		}
	}

	if best == nil {
		return nil, pkgerrors.NewInsufficientDataError("no candidate cluster count could be evaluated")
	}

	best.Candidates = candidates
	best.Warnings = s.qualityWarnings(best)
	return best, nil
}

// qualityWarnings flags a chosen model that scores below the quality
// floors. Selection still proceeds: the warnings travel with the
// dimension so downstream consumers can see a weak calibration.
func (s *ModelSelector) qualityWarnings(sel *Selection) []string {
	var warnings []string
	if sel.Cohesion < s.cfg.MinCohesion {
		warnings = append(warnings, fmt.Sprintf("cohesion %.3f below floor %.3f", sel.Cohesion, s.cfg.MinCohesion))
	}
	if sel.Balance < s.cfg.MinBalance {
		warnings = append(warnings, fmt.Sprintf("balance %.3f below floor %.3f", sel.Balance, s.cfg.MinBalance))
	}
	if sel.Fit.SoftConverged {
		warnings = append(warnings, "clustering hit the iteration cap before converging")
	}
	return warnings
}

// dominantAssignments hardens a membership matrix into one cluster index
// per entity, and returns the resulting cluster sizes. Ties break toward
// the lower cluster index so the assignment is deterministic.
func dominantAssignments(memberships [][]float64, k int) ([]int, []int) {
	assignments := make([]int, len(memberships))
	sizes := make([]int, k)
	for i, row := range memberships {
		bestJ := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[bestJ] {
				bestJ = j
			}
		}
		assignments[i] = bestJ
		sizes[bestJ]++
	}
	return assignments, sizes
}

// simplifiedSilhouette scores cohesion using center distances instead of
// full pairwise distances: a = distance to own center, b = distance to the
// nearest other center. Result is the mean of (b-a)/max(a,b) in [-1, 1].
func simplifiedSilhouette(data [][]float64, centers [][]float64, assignments []int) float64 {
	if len(centers) < 2 || len(data) == 0 {
		return 0
	}

	sum := 0.0
	for i, row := range data {
		own := assignments[i]
		a := euclideanDistance(row, centers[own])

		b := math.Inf(1)
		for j, center := range centers {
			if j == own {
				continue
			}
			if d := euclideanDistance(row, center); d < b {
				b = d
			}
		}

		denom := math.Max(a, b)
		if denom > 0 {
			sum += (b - a) / denom
		}
	}
	return sum / float64(len(data))
}

// populationBalance maps the coefficient of variation of cluster sizes to
// [0, 1]: perfectly even clusters score 1, and a CV at or beyond 1 scores
// 0.
func populationBalance(sizes []int) float64 {
	if len(sizes) == 0 {
		return 0
	}
	values := make([]float64, len(sizes))
	for i, s := range sizes {
		values[i] = float64(s)
	}
	m := mean(values)
	if m == 0 {
		return 0
	}
	cv := stddev(values, m) / m
	return 1 - math.Min(1, cv)
}

func minSize(sizes []int) int {
	min := math.MaxInt
	for _, s := range sizes {
		if s < min {
			min = s
		}
	}
	return min
}
