package services

import (
	"sort"
	"time"

	"dnacore/domain/config"
	"dnacore/domain/core/aggregates"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// JourneyType classifies the shape of an entity's behavioral history
type JourneyType string

const (
	// JourneyStable marks an entity whose fingerprint barely moves
	JourneyStable JourneyType = "stable"
	// JourneyEvolving marks gradual movement without a dominant pattern
	JourneyEvolving JourneyType = "evolving"
	// JourneyExploratory marks heavy movement across many dimensions
	JourneyExploratory JourneyType = "exploratory"
	// JourneyRegressing marks sustained movement paired with degrading
	// business outcomes
	JourneyRegressing JourneyType = "regressing"
)

// Journey summarizes an entity's snapshot history: pairwise drift
// reports, an overall stability score, and a classification.
type Journey struct {
	EntityID string      `json:"entityId"`
	Type     JourneyType `json:"type"`
	// StabilityScore is 1 minus the mean overall drift across consecutive
	// snapshot pairs; 1 means the fingerprint never moved
	StabilityScore float64 `json:"stabilityScore"`
	// DominantDimensions lists the dimensions with the largest cumulative
	// drift, strongest first
	DominantDimensions []string       `json:"dominantDimensions"`
	FirstSnapshot      time.Time      `json:"firstSnapshot"`
	LastSnapshot       time.Time      `json:"lastSnapshot"`
	SnapshotCount      int            `json:"snapshotCount"`
	Drifts             []*DriftReport `json:"drifts"`
}

// JourneyCharacterizer turns a snapshot history into a journey
// classification.
type JourneyCharacterizer struct {
	analyzer *DriftAnalyzer
	cfg      *config.AnalyticsConfig
	logger   *zap.Logger
}

// NewJourneyCharacterizer creates a new journey characterizer
func NewJourneyCharacterizer(analyzer *DriftAnalyzer, cfg *config.AnalyticsConfig, logger *zap.Logger) *JourneyCharacterizer {
	return &JourneyCharacterizer{
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Characterize analyzes consecutive snapshot pairs and classifies the
// journey. metrics is optional; when supplied it must align one-to-one
// with the snapshots, and enables the regressing classification.
func (c *JourneyCharacterizer) Characterize(
	snapshots []*aggregates.Snapshot,
	metrics []BusinessMetrics,
) (*Journey, error) {
	if len(snapshots) < 2 {
		return nil, pkgerrors.NewInsufficientDataError("journey characterization needs at least two snapshots")
	}
	if metrics != nil && len(metrics) != len(snapshots) {
		return nil, pkgerrors.NewValidationError("business metrics must align with snapshots")
	}

	ordered := make([]*aggregates.Snapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CapturedAt().Before(ordered[j].CapturedAt())
	})

	drifts := make([]*DriftReport, 0, len(ordered)-1)
	driftSum := 0.0
	for i := 1; i < len(ordered); i++ {
		var pair *MetricsPair
		if metrics != nil {
			pair = &MetricsPair{From: metrics[i-1], To: metrics[i]}
		}
		report, err := c.analyzer.Analyze(ordered[i-1], ordered[i], pair)
		if err != nil {
			return nil, err
		}
		drifts = append(drifts, report)
		driftSum += report.Overall
	}

	stability := 1 - driftSum/float64(len(drifts))

	journey := &Journey{
		EntityID:           ordered[0].EntityID().String(),
		StabilityScore:     stability,
		DominantDimensions: dominantDimensions(drifts),
		FirstSnapshot:      ordered[0].CapturedAt(),
		LastSnapshot:       ordered[len(ordered)-1].CapturedAt(),
		SnapshotCount:      len(ordered),
		Drifts:             drifts,
	}
	journey.Type = c.classify(journey)

	c.logger.Debug("Characterized journey",
		zap.String("entityId", journey.EntityID),
		zap.String("type", string(journey.Type)),
		zap.Float64("stability", stability),
	)

	return journey, nil
}

// classify applies the journey rules in precedence order: stable wins
// outright, regressing beats exploratory, and evolving is the residual.
func (c *JourneyCharacterizer) classify(journey *Journey) JourneyType {
	if journey.StabilityScore > c.cfg.StableStabilityScore {
		return JourneyStable
	}
	if c.isRegressing(journey.Drifts) {
		return JourneyRegressing
	}
	if c.isExploratory(journey.Drifts) {
		return JourneyExploratory
	}
	return JourneyEvolving
}

// isRegressing checks for degrading business direction on a majority of
// consecutive pairs, with enough distinct dimensions moving in those
// pairs to rule out a single-axis wobble.
func (c *JourneyCharacterizer) isRegressing(drifts []*DriftReport) bool {
	degradingPairs := 0
	movedDims := make(map[string]bool)

	for _, report := range drifts {
		if report.Direction != DirectionDegrading {
			continue
		}
		degradingPairs++
		for _, dim := range report.Dimensions {
			if dim.Severity != SeverityStable {
				movedDims[dim.Dimension] = true
			}
		}
	}

	majority := degradingPairs*2 > len(drifts)
	return majority && len(movedDims) >= c.cfg.RegressingDimensions
}

// isExploratory checks whether significant-or-worse drift touched enough
// distinct dimensions anywhere in the history
func (c *JourneyCharacterizer) isExploratory(drifts []*DriftReport) bool {
	heavyDims := make(map[string]bool)
	for _, report := range drifts {
		for _, dim := range report.Dimensions {
			if dim.Severity == SeveritySignificant || dim.Severity == SeverityMajor {
				heavyDims[dim.Dimension] = true
			}
		}
	}
	return len(heavyDims) >= c.cfg.ExploratoryDimensions
}

// dominantDimensions ranks dimensions by cumulative normalized drift and
// returns the top three movers
func dominantDimensions(drifts []*DriftReport) []string {
	cumulative := make(map[string]float64)
	for _, report := range drifts {
		for _, dim := range report.Dimensions {
			cumulative[dim.Dimension] += dim.Normalized
		}
	}

	type mover struct {
		name  string
		total float64
	}
	movers := make([]mover, 0, len(cumulative))
	for name, total := range cumulative {
		if total > 0 {
			movers = append(movers, mover{name: name, total: total})
		}
	}
	sort.Slice(movers, func(i, j int) bool {
		if movers[i].total != movers[j].total {
			return movers[i].total > movers[j].total
		}
		return movers[i].name < movers[j].name
	})

	limit := 3
	if len(movers) < limit {
		limit = len(movers)
	}
	names := make([]string, limit)
	for i := 0; i < limit; i++ {
		names[i] = movers[i].name
	}
	return names
}
