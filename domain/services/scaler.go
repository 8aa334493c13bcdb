package services

import (
	"math"
	"sort"

	"dnacore/domain/config"
	"dnacore/domain/core/entities"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// Missing marks an absent raw observation in a feature matrix. Missing
// values are imputed with the population median for the feature, never
// silently zero-filled.
var Missing = math.NaN()

// IsMissing reports whether a raw value is the missing marker
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// PreparedFeatures is the output of fitting feature preparation over a
// population: the scaled matrix, the row mapping back into the input, and
// the fitted scaler parameters to persist with the dimension.
type PreparedFeatures struct {
	// Scaled holds one scaled vector per kept entity
	Scaled [][]float64
	// Kept maps each scaled row to its row index in the input matrix
	Kept []int
	// Excluded lists input rows with zero usable features; those entities
	// take no part in calibration and are not categorized against the
	// dimension
	Excluded []int
	// Params are the fitted per-feature scaling parameters
	Params entities.ScalerParams
}

// FeaturePreparer turns raw per-entity feature rows into scaled vectors,
// selecting a scaling strategy per feature from the measured outlier rate
// and skew.
type FeaturePreparer struct {
	cfg    *config.AnalyticsConfig
	logger *zap.Logger
}

// NewFeaturePreparer creates a new feature preparer
func NewFeaturePreparer(cfg *config.AnalyticsConfig, logger *zap.Logger) *FeaturePreparer {
	return &FeaturePreparer{
		cfg:    cfg,
		logger: logger,
	}
}

// Prepare fits scaling parameters on the population and returns the scaled
// matrix. Rows where every feature is missing are excluded rather than
// fabricated.
func (p *FeaturePreparer) Prepare(matrix [][]float64) (*PreparedFeatures, error) {
	if len(matrix) == 0 {
		return nil, pkgerrors.NewInsufficientDataError("feature matrix is empty")
	}

	featureCount := len(matrix[0])
	if featureCount == 0 {
		return nil, pkgerrors.NewInsufficientDataError("feature matrix has zero features")
	}
	for i, row := range matrix {
		if len(row) != featureCount {
			return nil, pkgerrors.NewValidationError("feature matrix rows have inconsistent lengths").
				WithDetails(map[string]interface{}{"row": i})
		}
	}

	kept := make([]int, 0, len(matrix))
	excluded := make([]int, 0)
	for i, row := range matrix {
		if usableFeatures(row) == 0 {
			excluded = append(excluded, i)
		} else {
			kept = append(kept, i)
		}
	}
	if len(kept) == 0 {
		return nil, pkgerrors.NewInsufficientDataError("no entity has any usable feature")
	}

	params := entities.ScalerParams{Features: make([]entities.FeatureScaling, featureCount)}
	for f := 0; f < featureCount; f++ {
		scaling, err := p.fitFeature(matrix, kept, f)
		if err != nil {
			return nil, err
		}
		params.Features[f] = scaling
	}

	scaled := make([][]float64, len(kept))
	for i, rowIdx := range kept {
		vec, err := TransformWithParams(params, matrix[rowIdx])
		if err != nil {
			return nil, err
		}
		scaled[i] = vec
	}

	if len(excluded) > 0 {
		p.logger.Info("Excluded entities without usable features",
			zap.Int("excluded", len(excluded)),
			zap.Int("kept", len(kept)),
		)
	}

	return &PreparedFeatures{
		Scaled:   scaled,
		Kept:     kept,
		Excluded: excluded,
		Params:   params,
	}, nil
}

// TransformWithParams applies fitted scaler parameters to one raw feature
// row, imputing missing values with the stored population median. This is
// the inference-side transform: categorization always applies the exact
// parameters the calibration was fitted with.
func TransformWithParams(params entities.ScalerParams, raw []float64) ([]float64, error) {
	if len(raw) != params.FeatureCount() {
		return nil, pkgerrors.NewValidationError("raw feature row does not match scaler feature count")
	}

	scaled := make([]float64, len(raw))
	for f, v := range raw {
		scaling := params.Features[f]
		if IsMissing(v) {
			v = scaling.Median
		}
		scaled[f] = (v - scaling.Center) / scaling.Scale
	}
	return scaled, nil
}

// fitFeature fits scaling parameters for one feature column
func (p *FeaturePreparer) fitFeature(matrix [][]float64, kept []int, feature int) (entities.FeatureScaling, error) {
	values := make([]float64, 0, len(kept))
	for _, rowIdx := range kept {
		if v := matrix[rowIdx][feature]; !IsMissing(v) {
			values = append(values, v)
		}
	}

	median := 0.0
	if len(values) > 0 {
		median = percentile(values, 0.5)
	}

	// A feature nobody observed scales to a constant zero column; the
	// median imputation then maps every entity to the same value.
	if len(values) == 0 {
		return entities.FeatureScaling{
			Strategy: entities.ScalingStandard,
			Center:   0,
			Scale:    1,
			Median:   0,
		}, nil
	}

	outlierShare := outlierShare(values)
	skew := skewness(values)

	var scaling entities.FeatureScaling
	scaling.Median = median

	if outlierShare > p.cfg.OutlierShareThreshold || math.Abs(skew) > p.cfg.SkewThreshold {
		iqr := percentile(values, 0.75) - percentile(values, 0.25)
		scaling.Strategy = entities.ScalingRobust
		scaling.Center = median
		scaling.Scale = iqr
	} else {
		scaling.Strategy = entities.ScalingStandard
		scaling.Center = mean(values)
		scaling.Scale = stddev(values, scaling.Center)
	}

	// Constant features would otherwise divide by zero
	if scaling.Scale == 0 {
		scaling.Scale = 1
	}

	p.logger.Debug("Fitted feature scaling",
		zap.Int("feature", feature),
		zap.String("strategy", string(scaling.Strategy)),
		zap.Float64("outlierShare", outlierShare),
		zap.Float64("skew", skew),
	)

	return scaling, nil
}

// usableFeatures counts the non-missing values in a row
func usableFeatures(row []float64) int {
	n := 0
	for _, v := range row {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}

// outlierShare returns the fraction of values outside the 1.5×IQR fences
func outlierShare(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	q1 := percentile(values, 0.25)
	q3 := percentile(values, 0.75)
	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	outliers := 0
	for _, v := range values {
		if v < lo || v > hi {
			outliers++
		}
	}
	return float64(outliers) / float64(len(values))
}

// skewness returns the Fisher moment coefficient of skewness
func skewness(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	m := mean(values)
	sd := stddev(values, m)
	if sd == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := (v - m) / sd
		sum += d * d * d
	}
	return sum / float64(len(values))
}

// percentile returns the p-quantile of values using linear interpolation
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
