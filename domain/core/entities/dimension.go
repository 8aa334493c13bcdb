package entities

import (
	"time"

	"dnacore/domain/config"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"
)

// CalibrationQuality holds the diagnostics of the calibration run that
// produced a dimension version.
type CalibrationQuality struct {
	Cohesion      float64  `json:"cohesion"`
	Balance       float64  `json:"balance"`
	CombinedScore float64  `json:"combined_score"`
	SoftConverged bool     `json:"soft_converged"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Dimension is one immutable, versioned calibration artifact for a
// behavioral axis: its discovered segment tree, the fitted scaler
// parameters, and the quality diagnostics of the run that produced it.
// Recalibration never mutates a dimension; it publishes a new version.
type Dimension struct {
	// Private fields ensure encapsulation
	name         string
	version      valueobjects.DimensionVersion
	segments     []*Segment
	scaler       ScalerParams
	quality      CalibrationQuality
	population   int
	calibratedAt time.Time
	params       *config.AnalyticsConfig // snapshot of the run's tunables
}

// NewDimension creates a new dimension version from a completed calibration
func NewDimension(
	name string,
	segments []*Segment,
	scaler ScalerParams,
	quality CalibrationQuality,
	population int,
	params *config.AnalyticsConfig,
) (*Dimension, error) {
	if name == "" {
		return nil, pkgerrors.NewValidationError("dimension name cannot be empty")
	}
	if len(segments) == 0 {
		return nil, pkgerrors.NewValidationError("dimension must have at least one segment")
	}
	if scaler.FeatureCount() == 0 {
		return nil, pkgerrors.NewValidationError("dimension requires fitted scaler parameters")
	}
	if population <= 0 {
		return nil, pkgerrors.NewValidationError("dimension population must be positive")
	}
	if params == nil {
		return nil, pkgerrors.NewValidationError("dimension requires its calibration parameters")
	}

	// The subdivision engine owns the depth/size caps; a segment set that
	// escaped them is an invariant violation, never something to repair here.
	for _, segment := range segments {
		if segment.Depth() > params.MaxDepth {
			return nil, pkgerrors.NewInvariantError("segment depth exceeds the configured maximum")
		}
	}

	return &Dimension{
		name:         name,
		version:      valueobjects.NewDimensionVersion(),
		segments:     copySegments(segments),
		scaler:       scaler,
		quality:      quality,
		population:   population,
		calibratedAt: time.Now(),
		params:       params.Clone(),
	}, nil
}

// ReconstructDimension reconstructs a dimension version from repository data
func ReconstructDimension(
	name string,
	version valueobjects.DimensionVersion,
	segments []*Segment,
	scaler ScalerParams,
	quality CalibrationQuality,
	population int,
	calibratedAt time.Time,
	params *config.AnalyticsConfig,
) (*Dimension, error) {
	if name == "" {
		return nil, pkgerrors.NewValidationError("dimension name cannot be empty")
	}
	if version.IsZero() {
		return nil, pkgerrors.NewValidationError("dimension version cannot be empty")
	}
	if len(segments) == 0 {
		return nil, pkgerrors.NewValidationError("dimension must have at least one segment")
	}

	return &Dimension{
		name:         name,
		version:      version,
		segments:     copySegments(segments),
		scaler:       scaler,
		quality:      quality,
		population:   population,
		calibratedAt: calibratedAt,
		params:       params,
	}, nil
}

// Name returns the dimension's name
func (d *Dimension) Name() string {
	return d.name
}

// Version returns the version of this calibration artifact
func (d *Dimension) Version() valueobjects.DimensionVersion {
	return d.version
}

// Segments returns all segments of this version, including subdivided ones
func (d *Dimension) Segments() []*Segment {
	return copySegments(d.segments)
}

// LeafSegments returns the segments entities are categorized against:
// every segment that was not further subdivided.
func (d *Dimension) LeafSegments() []*Segment {
	leaves := make([]*Segment, 0, len(d.segments))
	for _, segment := range d.segments {
		if segment.IsLeaf(d.segments) {
			leaves = append(leaves, segment)
		}
	}
	return leaves
}

// SegmentByID returns the segment with the given ID
func (d *Dimension) SegmentByID(id valueobjects.SegmentID) (*Segment, error) {
	for _, segment := range d.segments {
		if segment.ID().Equals(id) {
			return segment, nil
		}
	}
	return nil, pkgerrors.NewNotFoundError("segment")
}

// Scaler returns the fitted scaler parameters
func (d *Dimension) Scaler() ScalerParams {
	return d.scaler
}

// Quality returns the calibration diagnostics
func (d *Dimension) Quality() CalibrationQuality {
	return d.quality
}

// Population returns the number of entities the calibration was fitted on
func (d *Dimension) Population() int {
	return d.population
}

// CalibratedAt returns when this version was calibrated
func (d *Dimension) CalibratedAt() time.Time {
	return d.calibratedAt
}

// Params returns the analytics configuration the calibration ran with
func (d *Dimension) Params() *config.AnalyticsConfig {
	return d.params
}

// LowConfidence reports whether the calibration tripped a quality gate
func (d *Dimension) LowConfidence() bool {
	return len(d.quality.Warnings) > 0
}

func copySegments(segments []*Segment) []*Segment {
	copied := make([]*Segment, len(segments))
	copy(copied, segments)
	return copied
}
