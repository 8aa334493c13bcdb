package services

import (
	"context"
	"math"

	"dnacore/domain/config"
	"dnacore/domain/core/entities"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// subdivisionTask is one pending worklist item: a segment and the scaled
// rows assigned to it.
type subdivisionTask struct {
	segment *entities.Segment
	indices []int
}

// Subdivider grows the segment tree for a dimension. Top-level segments
// come from the selected clustering; oversized or diffuse segments are
// split further with an explicit worklist, bounded by the depth cap and
// the subsegment size floor.
type Subdivider struct {
	selector *ModelSelector
	cfg      *config.AnalyticsConfig
	logger   *zap.Logger
}

// NewSubdivider creates a new subdivider
func NewSubdivider(selector *ModelSelector, cfg *config.AnalyticsConfig, logger *zap.Logger) *Subdivider {
	return &Subdivider{
		selector: selector,
		cfg:      cfg,
		logger:   logger,
	}
}

// Build turns the winning top-level fit into the full segment tree. The
// returned slice holds every segment, parents before children.
func (s *Subdivider) Build(ctx context.Context, data [][]float64, sel *Selection) ([]*entities.Segment, error) {
	total := len(data)
	if total == 0 {
		return nil, pkgerrors.NewInsufficientDataError("no entities to segment")
	}

	assignments, _ := dominantAssignments(sel.Fit.Memberships, sel.K)
	groups := groupByAssignment(assignments, sel.K)

	segments := make([]*entities.Segment, 0, sel.K)
	worklist := make([]*subdivisionTask, 0, sel.K)

	for j, indices := range groups {
		if len(indices) == 0 {
			continue
		}
		segment, err := s.newTopSegment(data, indices, sel.Fit.Centers[j], total)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
		worklist = append(worklist, &subdivisionTask{segment: segment, indices: indices})
	}

	for len(worklist) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(err, "subdivision cancelled")
		}

		task := worklist[0]
		worklist = worklist[1:]

		children, childIndices, err := s.trySubdivide(ctx, data, task, total)
		if err != nil {
			return nil, err
		}
		for i, child := range children {
			segments = append(segments, child)
			worklist = append(worklist, &subdivisionTask{segment: child, indices: childIndices[i]})
		}
	}

	return segments, nil
}

// newTopSegment builds a depth-zero segment from its member rows and the
// fitted center
func (s *Subdivider) newTopSegment(data [][]float64, indices []int, center []float64, total int) (*entities.Segment, error) {
	centerVec, err := valueobjects.NewFeatureVector(center)
	if err != nil {
		return nil, err
	}
	variance, maxDist := memberDispersion(data, indices, center)
	return entities.NewSegment(centerVec, variance, maxDist, len(indices), float64(len(indices))/float64(total))
}

// trySubdivide checks a segment's split triggers and, when one fires,
// clusters its members into children. A split is abandoned when any child
// would fall below the subsegment size floor; the parent stays a leaf.
func (s *Subdivider) trySubdivide(ctx context.Context, data [][]float64, task *subdivisionTask, total int) ([]*entities.Segment, [][]int, error) {
	segment := task.segment
	count := len(task.indices)

	if segment.Depth() >= s.cfg.MaxDepth {
		return nil, nil, nil
	}
	if count < s.cfg.MinSegmentSize {
		return nil, nil, nil
	}
	if count < 2*s.cfg.MinSubsegmentSize {
		// No split can give every child the floor
		return nil, nil, nil
	}
	if !s.shouldSplit(data, task) {
		return nil, nil, nil
	}

	kMax := count / s.cfg.MinSubsegmentSize
	if kMax > s.cfg.KMax {
		kMax = s.cfg.KMax
	}
	if kMax < 2 {
		return nil, nil, nil
	}

	subset := make([][]float64, count)
	for i, idx := range task.indices {
		subset[i] = data[idx]
	}

	sel, err := s.selector.SelectK(ctx, subset, 2, kMax)
	if err != nil {
		if pkgerrors.IsInsufficientData(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	assignments, sizes := dominantAssignments(sel.Fit.Memberships, sel.K)
	for _, size := range sizes {
		if size < s.cfg.MinSubsegmentSize {
			s.logger.Debug("Abandoned split below subsegment size floor",
				zap.String("segmentId", segment.ID().String()),
				zap.Int("k", sel.K),
				zap.Int("smallestChild", size),
			)
			return nil, nil, nil
		}
	}

	groups := groupByAssignment(assignments, sel.K)
	children := make([]*entities.Segment, 0, sel.K)
	childIndices := make([][]int, 0, sel.K)

	for j, localIndices := range groups {
		if len(localIndices) == 0 {
			continue
		}
		indices := make([]int, len(localIndices))
		for i, local := range localIndices {
			indices[i] = task.indices[local]
		}

		centerVec, err := valueobjects.NewFeatureVector(sel.Fit.Centers[j])
		if err != nil {
			return nil, nil, err
		}
		variance, maxDist := memberDispersion(data, indices, sel.Fit.Centers[j])
		child, err := entities.NewChildSegment(segment, centerVec, variance, maxDist, len(indices), float64(len(indices))/float64(total))
		if err != nil {
			return nil, nil, err
		}
		children = append(children, child)
		childIndices = append(childIndices, indices)
	}

	s.logger.Info("Subdivided segment",
		zap.String("segmentId", segment.ID().String()),
		zap.Int("depth", segment.Depth()),
		zap.Int("children", len(children)),
	)

	return children, childIndices, nil
}

// shouldSplit reports whether any of the three split triggers fires:
// variance above the threshold, a member far outside the bulk of the
// segment, or the segment holding too large a share of the population.
func (s *Subdivider) shouldSplit(data [][]float64, task *subdivisionTask) bool {
	segment := task.segment

	if segment.Variance() > s.cfg.VarianceThreshold {
		return true
	}

	dists := memberDistances(data, task.indices, segment.Center().Values())
	p95 := percentile(dists, 0.95)
	if p95 > 0 && segment.MaxDistance() > s.cfg.DiameterFactor*p95 {
		return true
	}

	if segment.PopulationShare() > s.cfg.MaxSegmentPopulationPct {
		return true
	}

	return false
}

// memberDispersion returns the mean squared member-to-center distance and
// the maximum member-to-center distance
func memberDispersion(data [][]float64, indices []int, center []float64) (variance, maxDist float64) {
	if len(indices) == 0 {
		return 0, 0
	}
	sumSq := 0.0
	for _, idx := range indices {
		dSq := squaredDistance(data[idx], center)
		sumSq += dSq
		if d := math.Sqrt(dSq); d > maxDist {
			maxDist = d
		}
	}
	return sumSq / float64(len(indices)), maxDist
}

func memberDistances(data [][]float64, indices []int, center []float64) []float64 {
	dists := make([]float64, len(indices))
	for i, idx := range indices {
		dists[i] = euclideanDistance(data[idx], center)
	}
	return dists
}

// groupByAssignment collects the row indices of each cluster
func groupByAssignment(assignments []int, k int) [][]int {
	groups := make([][]int, k)
	for i, j := range assignments {
		groups[j] = append(groups[j], i)
	}
	return groups
}
