package handlers

import (
	"context"
	"time"

	"dnacore/application/commands"
	"dnacore/application/ports"
	"dnacore/domain/config"
	"dnacore/domain/core/entities"
	"dnacore/domain/events"
	"dnacore/domain/services"
	pkgerrors "dnacore/pkg/errors"
	"dnacore/pkg/observability"

	"go.uber.org/zap"
)

// calibrationLockTTL bounds how long a crashed run can block the next one
const calibrationLockTTL = 30 * time.Minute

// CalibrateDimensionHandler runs the full calibration pipeline for one
// dimension: feature preparation, model selection, hierarchical
// subdivision, and atomic publication of the resulting version. Runs for
// the same dimension are serialized through the calibration lock.
type CalibrateDimensionHandler struct {
	dimensionRepo ports.DimensionRepository
	featureSource ports.FeatureSource
	lock          ports.CalibrationLock
	eventBus      ports.EventPublisher
	preparer      *services.FeaturePreparer
	selector      *services.ModelSelector
	subdivider    *services.Subdivider
	cfg           *config.AnalyticsConfig
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	logger        *zap.Logger
}

// NewCalibrateDimensionHandler creates a new handler instance
func NewCalibrateDimensionHandler(
	dimensionRepo ports.DimensionRepository,
	featureSource ports.FeatureSource,
	lock ports.CalibrationLock,
	eventBus ports.EventPublisher,
	preparer *services.FeaturePreparer,
	selector *services.ModelSelector,
	subdivider *services.Subdivider,
	cfg *config.AnalyticsConfig,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *CalibrateDimensionHandler {
	return &CalibrateDimensionHandler{
		dimensionRepo: dimensionRepo,
		featureSource: featureSource,
		lock:          lock,
		eventBus:      eventBus,
		preparer:      preparer,
		selector:      selector,
		subdivider:    subdivider,
		cfg:           cfg,
		metrics:       metrics,
		tracer:        tracer,
		logger:        logger,
	}
}

// Handle executes the calibrate dimension command
func (h *CalibrateDimensionHandler) Handle(ctx context.Context, cmd commands.CalibrateDimensionCommand) (*commands.CalibrationResult, error) {
	if err := h.lock.Acquire(ctx, cmd.Dimension, calibrationLockTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := h.lock.Release(context.WithoutCancel(ctx), cmd.Dimension); err != nil {
			h.logger.Warn("Failed to release calibration lock",
				zap.String("dimension", cmd.Dimension),
				zap.Error(err),
			)
		}
	}()

	start := time.Now()
	h.logger.Info("Starting calibration",
		zap.String("dimension", cmd.Dimension),
		zap.Bool("dryRun", cmd.DryRun),
	)

	var result *commands.CalibrationResult
	err := h.tracer.TraceFunction(ctx, "calibrate_dimension", func(ctx context.Context) error {
		var err error
		result, err = h.calibrate(ctx, cmd)
		return err
	})
	if err != nil {
		h.metrics.RecordError(ctx, "calibration_failed", cmd.Dimension)
		return nil, err
	}

	h.logger.Info("Calibration complete",
		zap.String("dimension", cmd.Dimension),
		zap.String("version", result.Dimension.Version().String()),
		zap.Int("population", result.Population),
		zap.Int("segments", result.SegmentCount),
		zap.Bool("published", result.Published),
		zap.Duration("took", time.Since(start)),
	)

	return result, nil
}

// calibrate runs the pipeline body under the lock and the trace segment
func (h *CalibrateDimensionHandler) calibrate(ctx context.Context, cmd commands.CalibrateDimensionCommand) (*commands.CalibrationResult, error) {
	if fresh := h.freshVersion(ctx, cmd); fresh != nil {
		h.logger.Info("Skipping calibration, current version is still fresh",
			zap.String("dimension", cmd.Dimension),
			zap.String("version", fresh.Version().String()),
			zap.Time("calibratedAt", fresh.CalibratedAt()),
		)
		return &commands.CalibrationResult{
			Dimension:    fresh,
			Population:   fresh.Population(),
			SegmentCount: len(fresh.Segments()),
			Published:    true,
			Skipped:      true,
		}, nil
	}

	entityIDs, matrix, err := h.featureSource.PopulationMatrix(ctx, cmd.Dimension)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load population features")
	}

	// Calibration fails closed: a thin population would produce segments
	// too unstable to publish
	if len(entityIDs) < h.cfg.MinCalibrationPopulation {
		return nil, pkgerrors.NewInsufficientDataError("population below calibration minimum").
			WithDetails(map[string]interface{}{
				"dimension":  cmd.Dimension,
				"population": len(entityIDs),
				"minimum":    h.cfg.MinCalibrationPopulation,
			})
	}

	prepared, err := h.preparer.Prepare(matrix)
	if err != nil {
		return nil, err
	}
	if len(prepared.Kept) < h.cfg.MinCalibrationPopulation {
		return nil, pkgerrors.NewInsufficientDataError("usable population below calibration minimum").
			WithDetails(map[string]interface{}{
				"dimension": cmd.Dimension,
				"usable":    len(prepared.Kept),
				"minimum":   h.cfg.MinCalibrationPopulation,
			})
	}

	kMin, kMax := h.cfg.KMin, h.cfg.KMax
	if cmd.KMin > 0 {
		kMin = cmd.KMin
	}
	if cmd.KMax > 0 {
		kMax = cmd.KMax
	}

	selection, err := h.selector.SelectK(ctx, prepared.Scaled, kMin, kMax)
	if err != nil {
		return nil, err
	}

	segments, err := h.subdivider.Build(ctx, prepared.Scaled, selection)
	if err != nil {
		return nil, err
	}

	quality := entities.CalibrationQuality{
		Cohesion:      selection.Cohesion,
		Balance:       selection.Balance,
		CombinedScore: selection.Combined,
		SoftConverged: selection.Fit.SoftConverged,
		Warnings:      selection.Warnings,
	}

	dimension, err := entities.NewDimension(
		cmd.Dimension,
		segments,
		prepared.Params,
		quality,
		len(prepared.Kept),
		h.cfg,
	)
	if err != nil {
		return nil, err
	}

	result := &commands.CalibrationResult{
		Dimension:    dimension,
		Population:   len(prepared.Kept),
		Excluded:     len(prepared.Excluded),
		SegmentCount: len(segments),
	}

	if cmd.DryRun {
		return result, nil
	}

	if err := h.publish(ctx, dimension); err != nil {
		return nil, err
	}
	result.Published = true

	h.metrics.RecordCalibrationQuality(ctx, cmd.Dimension, quality.Cohesion, quality.Balance, len(segments))
	return result, nil
}

// freshVersion returns the current published version when the run should be
// skipped: unforced, non-dry runs while the current version is younger than
// the minimum recalibration interval. A missing current version never skips.
func (h *CalibrateDimensionHandler) freshVersion(ctx context.Context, cmd commands.CalibrateDimensionCommand) *entities.Dimension {
	if cmd.Force || cmd.DryRun || h.cfg.MinRecalibrationInterval <= 0 {
		return nil
	}

	current, err := h.dimensionRepo.GetCurrent(ctx, cmd.Dimension)
	if err != nil || current == nil {
		return nil
	}
	if time.Since(current.CalibratedAt()) >= h.cfg.MinRecalibrationInterval {
		return nil
	}
	return current
}

// publish persists the version, flips the current pointer, and announces
// the new version. The pointer flip is atomic; readers never observe a
// partially published dimension.
func (h *CalibrateDimensionHandler) publish(ctx context.Context, dimension *entities.Dimension) error {
	if err := h.dimensionRepo.SaveVersion(ctx, dimension); err != nil {
		return pkgerrors.Wrap(err, "failed to save dimension version")
	}
	if err := h.dimensionRepo.Publish(ctx, dimension.Name(), dimension.Version()); err != nil {
		return pkgerrors.Wrap(err, "failed to publish dimension version")
	}

	quality := dimension.Quality()
	event := events.NewDimensionCalibrated(
		dimension.Name(),
		dimension.Version().String(),
		len(dimension.Segments()),
		quality.Cohesion,
		quality.Balance,
		dimension.Population(),
		quality.Warnings,
		dimension.CalibratedAt(),
	)
	if err := h.eventBus.Publish(ctx, event); err != nil {
		// The version is already live; event delivery failing is not a
		// reason to unpublish it
		h.logger.Warn("Failed to publish calibration event",
			zap.String("dimension", dimension.Name()),
			zap.Error(err),
		)
	}
	return nil
}
