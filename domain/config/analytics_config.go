package config

import (
	"fmt"
	"time"
)

// AnalyticsConfig holds all configurable thresholds for calibration and
// drift analysis. A copy of the config used for a calibration run is stored
// on the resulting dimension version, so every run is reproducible from its
// own diagnostics; there are no ambient tuning globals.
type AnalyticsConfig struct {
	// Fuzzy clustering
	Fuzziness            float64 // membership exponent m, must be > 1
	ConvergenceTolerance float64 // max membership change considered converged
	MaxIterations        int
	RandomRestarts       int
	RandomSeed           int64 // 0 means time-seeded

	// Model selection
	KMin           int // smallest candidate cluster count
	KMax           int // largest candidate cluster count
	CohesionWeight float64
	BalanceWeight  float64
	MinCohesion    float64 // below this at k*, a low-separation warning is emitted
	MinBalance     float64 // below this at k*, an imbalance warning is emitted

	// Hierarchical subdivision
	VarianceThreshold       float64 // mean squared member-to-center distance trigger
	DiameterFactor          float64 // max distance vs. P95 distance trigger multiplier
	MaxSegmentPopulationPct float64 // population share trigger
	MinSegmentSize          int     // below this a segment is never subdivided
	MinSubsegmentSize       int     // candidate children below this stop recursion
	MaxDepth                int

	// Feature preparation
	OutlierShareThreshold float64 // robust scaling above this outlier fraction
	SkewThreshold         float64 // robust scaling above this |skew|

	// Population gates
	MinCalibrationPopulation int // calibration fails closed below this
	MinObservations          int // entities below this are cold-start

	// Calibration cadence
	MinRecalibrationInterval time.Duration // unforced runs are skipped while the current version is younger

	// Drift analysis
	UrgentVelocityPerDay float64
	HighVelocityPerDay   float64

	// Journey characterization
	StableStabilityScore   float64 // stability score above this is "stable"
	ExploratoryDimensions  int     // significant drift on this many dimensions is "exploratory"
	RegressingDimensions   int     // degrading direction on this many dimensions flags "regressing"
	LowConfidenceThreshold float64 // DNA confidence below this is unreliable
}

// DefaultAnalyticsConfig returns the default analytics configuration
func DefaultAnalyticsConfig() *AnalyticsConfig {
	return &AnalyticsConfig{
		// Fuzzy clustering
		Fuzziness:            2.0,
		ConvergenceTolerance: 1e-4,
		MaxIterations:        300,
		RandomRestarts:       5,
		RandomSeed:           0,

		// Model selection
		KMin:           2,
		KMax:           8,
		CohesionWeight: 0.4,
		BalanceWeight:  0.6,
		MinCohesion:    0.3,
		MinBalance:     0.5,

		// Hierarchical subdivision
		VarianceThreshold:       2.0,
		DiameterFactor:          1.5,
		MaxSegmentPopulationPct: 0.6,
		MinSegmentSize:          100,
		MinSubsegmentSize:       30,
		MaxDepth:                3,

		// Feature preparation
		OutlierShareThreshold: 0.05,
		SkewThreshold:         0.5,

		// Population gates
		MinCalibrationPopulation: 100,
		MinObservations:          5,

		// Calibration cadence
		MinRecalibrationInterval: 12 * time.Hour,

		// Drift analysis
		UrgentVelocityPerDay: 0.01,
		HighVelocityPerDay:   0.005,

		// Journey characterization
		StableStabilityScore:   0.8,
		ExploratoryDimensions:  3,
		RegressingDimensions:   2,
		LowConfidenceThreshold: 0.3,
	}
}

// ConservativeAnalyticsConfig returns a configuration tuned for smaller
// populations: subdivision triggers later and the quality gates are stricter.
func ConservativeAnalyticsConfig() *AnalyticsConfig {
	cfg := DefaultAnalyticsConfig()

	cfg.VarianceThreshold = 3.0
	cfg.MinSegmentSize = 250
	cfg.MinSubsegmentSize = 75
	cfg.MaxDepth = 2
	cfg.MinCohesion = 0.4
	cfg.MinBalance = 0.6

	return cfg
}

// LoadAnalyticsConfig loads analytics configuration based on environment
func LoadAnalyticsConfig(environment string) *AnalyticsConfig {
	switch environment {
	case "production":
		return ConservativeAnalyticsConfig()
	default:
		return DefaultAnalyticsConfig()
	}
}

// Validate checks if the configuration is internally consistent
func (c *AnalyticsConfig) Validate() error {
	if c.Fuzziness <= 1.0 {
		return fmt.Errorf("fuzziness must be greater than 1, got %v", c.Fuzziness)
	}
	if c.ConvergenceTolerance <= 0 {
		return fmt.Errorf("convergence tolerance must be positive, got %v", c.ConvergenceTolerance)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.RandomRestarts <= 0 {
		return fmt.Errorf("random restarts must be positive, got %d", c.RandomRestarts)
	}
	if c.KMin < 2 || c.KMax < c.KMin {
		return fmt.Errorf("cluster count range [%d,%d] is invalid", c.KMin, c.KMax)
	}
	if sum := c.CohesionWeight + c.BalanceWeight; sum <= 0 {
		return fmt.Errorf("selection weights must sum to a positive value, got %v", sum)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth cannot be negative, got %d", c.MaxDepth)
	}
	if c.MinSubsegmentSize <= 0 {
		return fmt.Errorf("min subsegment size must be positive, got %d", c.MinSubsegmentSize)
	}
	if c.MinSegmentSize < c.MinSubsegmentSize {
		return fmt.Errorf("min segment size (%d) cannot be below min subsegment size (%d)",
			c.MinSegmentSize, c.MinSubsegmentSize)
	}
	if c.MaxSegmentPopulationPct <= 0 || c.MaxSegmentPopulationPct > 1 {
		return fmt.Errorf("max segment population share must be in (0,1], got %v", c.MaxSegmentPopulationPct)
	}
	if c.MinCalibrationPopulation <= 0 {
		return fmt.Errorf("min calibration population must be positive, got %d", c.MinCalibrationPopulation)
	}
	if c.MinRecalibrationInterval < 0 {
		return fmt.Errorf("min recalibration interval cannot be negative, got %v", c.MinRecalibrationInterval)
	}
	return nil
}

// Clone returns a deep copy so a calibration run can snapshot its parameters
func (c *AnalyticsConfig) Clone() *AnalyticsConfig {
	clone := *c
	return &clone
}
