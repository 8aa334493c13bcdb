package services

import (
	"math"
	"sort"
	"time"

	"dnacore/domain/config"
	"dnacore/domain/core/aggregates"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// maxMembershipDrift is the largest possible Euclidean distance between
// two membership vectors: a full move from one segment to another.
var maxMembershipDrift = math.Sqrt2

// DriftSeverity grades the normalized drift magnitude
type DriftSeverity string

const (
	SeverityStable      DriftSeverity = "stable"
	SeverityMinor       DriftSeverity = "minor"
	SeverityModerate    DriftSeverity = "moderate"
	SeveritySignificant DriftSeverity = "significant"
	SeverityMajor       DriftSeverity = "major"
)

// DriftUrgency grades the drift velocity
type DriftUrgency string

const (
	UrgencyNormal DriftUrgency = "normal"
	UrgencyHigh   DriftUrgency = "high"
	UrgencyUrgent DriftUrgency = "urgent"
)

// DriftDirection qualifies drift with business outcomes. Membership
// movement alone cannot say whether a change is good; direction is only
// assigned when the caller supplies business metrics for both endpoints.
type DriftDirection string

const (
	DirectionImproving DriftDirection = "improving"
	DirectionDegrading DriftDirection = "degrading"
	DirectionNeutral   DriftDirection = "neutral"
	DirectionUnknown   DriftDirection = "unknown"
)

// BusinessMetrics are the outcome measurements paired with a snapshot for
// direction scoring.
type BusinessMetrics struct {
	RiskScore  float64 `json:"riskScore"`
	ValueScore float64 `json:"valueScore"`
}

// MetricsPair carries the business metrics at both endpoints of a drift
// comparison.
type MetricsPair struct {
	From BusinessMetrics
	To   BusinessMetrics
}

// DimensionDrift is the drift of one dimension between two snapshots
type DimensionDrift struct {
	Dimension string `json:"dimension"`
	// Deltas maps each segment in the union of both vectors to its
	// membership change, newer minus older
	Deltas map[string]float64 `json:"deltas"`
	// Magnitude is the raw Euclidean distance between the vectors
	Magnitude float64 `json:"magnitude"`
	// Normalized is Magnitude scaled into [0, 1] by the maximum possible
	// membership move
	Normalized float64       `json:"normalized"`
	Severity   DriftSeverity `json:"severity"`
	// VelocityPerDay is normalized drift per elapsed day
	VelocityPerDay float64      `json:"velocityPerDay"`
	Urgency        DriftUrgency `json:"urgency"`
	// Redefined is set when the dimension was recalibrated between the
	// snapshots; the magnitude then mixes real behavior change with
	// boundary movement and must be read with that caveat
	Redefined bool `json:"redefined"`
}

// DriftReport compares two snapshots of the same entity
type DriftReport struct {
	EntityID    string           `json:"entityId"`
	From        time.Time        `json:"from"`
	To          time.Time        `json:"to"`
	ElapsedDays float64          `json:"elapsedDays"`
	Dimensions  []DimensionDrift `json:"dimensions"`
	// Overall is the mean normalized drift across compared dimensions
	Overall   float64        `json:"overall"`
	Severity  DriftSeverity  `json:"severity"`
	Urgency   DriftUrgency   `json:"urgency"`
	Direction DriftDirection `json:"direction"`
}

// DriftAnalyzer measures how an entity's behavioral fingerprint moved
// between two snapshots.
type DriftAnalyzer struct {
	cfg    *config.AnalyticsConfig
	logger *zap.Logger
}

// NewDriftAnalyzer creates a new drift analyzer
func NewDriftAnalyzer(cfg *config.AnalyticsConfig, logger *zap.Logger) *DriftAnalyzer {
	return &DriftAnalyzer{
		cfg:    cfg,
		logger: logger,
	}
}

// Analyze compares the older snapshot against the newer one. metrics is
// optional; without it the report's direction is unknown.
func (a *DriftAnalyzer) Analyze(from, to *aggregates.Snapshot, metrics *MetricsPair) (*DriftReport, error) {
	if from == nil || to == nil {
		return nil, pkgerrors.NewValidationError("drift analysis requires two snapshots")
	}
	if !from.EntityID().Equals(to.EntityID()) {
		return nil, pkgerrors.NewValidationError("snapshots belong to different entities")
	}
	if to.CapturedAt().Before(from.CapturedAt()) {
		return nil, pkgerrors.NewValidationError("snapshots are out of order")
	}

	elapsedDays := to.CapturedAt().Sub(from.CapturedAt()).Hours() / 24.0

	fromDNA := from.DNA()
	toDNA := to.DNA()

	var dimensions []DimensionDrift
	overallSum := 0.0
	for _, name := range sharedDimensions(fromDNA, toDNA) {
		fromM, _ := fromDNA.MembershipFor(name)
		toM, _ := toDNA.MembershipFor(name)

		drift := a.dimensionDrift(name, fromM, toM, elapsedDays)
		dimensions = append(dimensions, drift)
		overallSum += drift.Normalized
	}

	if len(dimensions) == 0 {
		return nil, pkgerrors.NewInsufficientDataError("snapshots share no dimensions to compare")
	}

	overall := overallSum / float64(len(dimensions))

	report := &DriftReport{
		EntityID:    fromDNA.EntityID().String(),
		From:        from.CapturedAt(),
		To:          to.CapturedAt(),
		ElapsedDays: elapsedDays,
		Dimensions:  dimensions,
		Overall:     overall,
		Severity:    a.severity(overall),
		Urgency:     a.urgency(velocity(overall, elapsedDays)),
		Direction:   a.direction(metrics),
	}

	a.logger.Debug("Analyzed drift",
		zap.String("entityId", report.EntityID),
		zap.Float64("overall", overall),
		zap.String("severity", string(report.Severity)),
		zap.String("direction", string(report.Direction)),
	)

	return report, nil
}

// dimensionDrift measures one dimension's movement between two snapshots
func (a *DriftAnalyzer) dimensionDrift(
	name string,
	from, to aggregates.DimensionMembership,
	elapsedDays float64,
) DimensionDrift {
	deltas := membershipDeltas(from, to)
	magnitude := from.Vector.DistanceTo(to.Vector)
	normalized := math.Min(1, magnitude/maxMembershipDrift)
	v := velocity(normalized, elapsedDays)

	return DimensionDrift{
		Dimension:      name,
		Deltas:         deltas,
		Magnitude:      magnitude,
		Normalized:     normalized,
		Severity:       a.severity(normalized),
		VelocityPerDay: v,
		Urgency:        a.urgency(v),
		Redefined:      !from.Version.Equals(to.Version),
	}
}

// severity grades a normalized drift magnitude
func (a *DriftAnalyzer) severity(normalized float64) DriftSeverity {
	switch {
	case normalized < 0.1:
		return SeverityStable
	case normalized < 0.3:
		return SeverityMinor
	case normalized < 0.5:
		return SeverityModerate
	case normalized < 0.7:
		return SeveritySignificant
	default:
		return SeverityMajor
	}
}

// urgency grades a drift velocity. Thresholds are exclusive: a velocity
// sitting exactly on a threshold stays in the lower tier.
func (a *DriftAnalyzer) urgency(velocityPerDay float64) DriftUrgency {
	switch {
	case velocityPerDay > a.cfg.UrgentVelocityPerDay:
		return UrgencyUrgent
	case velocityPerDay > a.cfg.HighVelocityPerDay:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}

// direction scores business outcomes across the comparison window
func (a *DriftAnalyzer) direction(metrics *MetricsPair) DriftDirection {
	if metrics == nil {
		return DirectionUnknown
	}

	const epsilon = 1e-9
	deltaValue := metrics.To.ValueScore - metrics.From.ValueScore
	deltaRisk := metrics.To.RiskScore - metrics.From.RiskScore
	score := deltaValue - deltaRisk

	switch {
	case score > epsilon:
		return DirectionImproving
	case score < -epsilon:
		return DirectionDegrading
	default:
		return DirectionNeutral
	}
}

// velocity is normalized drift per day; same-instant snapshots have no
// meaningful rate
func velocity(normalized, elapsedDays float64) float64 {
	if elapsedDays <= 0 {
		return 0
	}
	return normalized / elapsedDays
}

// membershipDeltas computes per-segment membership changes over the union
// of both vectors, treating a segment absent from one side as zero
func membershipDeltas(from, to aggregates.DimensionMembership) map[string]float64 {
	deltas := make(map[string]float64)
	for id, v := range from.Vector.Memberships() {
		deltas[id] = -v
	}
	for id, v := range to.Vector.Memberships() {
		deltas[id] += v
	}
	return deltas
}

// sharedDimensions returns the dimensions present in both fingerprints,
// sorted for deterministic report ordering
func sharedDimensions(from, to *aggregates.BehavioralDNA) []string {
	var shared []string
	for _, name := range from.DimensionNames() {
		if _, ok := to.MembershipFor(name); ok {
			shared = append(shared, name)
		}
	}
	sort.Strings(shared)
	return shared
}
