// Package main implements the long-running scheduler: nightly snapshot
// captures across the population and weekly recalibration of every
// configured dimension.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"dnacore/application/commands"
	"dnacore/domain/core/aggregates"
	"dnacore/infrastructure/config"
	"dnacore/infrastructure/di"
	pkgerrors "dnacore/pkg/errors"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger
	defer logger.Sync()

	scheduler := rcron.New()

	if _, err := scheduler.AddFunc(cfg.SnapshotCron, func() {
		captureSnapshots(ctx, container, logger)
	}); err != nil {
		logger.Fatal("Invalid snapshot schedule",
			zap.String("cron", cfg.SnapshotCron),
			zap.Error(err))
	}

	if _, err := scheduler.AddFunc(cfg.CalibrationCron, func() {
		calibrateDimensions(ctx, container, logger)
	}); err != nil {
		logger.Fatal("Invalid calibration schedule",
			zap.String("cron", cfg.CalibrationCron),
			zap.Error(err))
	}

	scheduler.Start()
	logger.Info("Scheduler started",
		zap.String("snapshotCron", cfg.SnapshotCron),
		zap.String("calibrationCron", cfg.CalibrationCron),
		zap.Strings("dimensions", cfg.Dimensions))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Scheduler shutting down")
	cancel()
	<-scheduler.Stop().Done()
}

// captureSnapshots appends a daily snapshot for every entity that has
// feature rows in any configured dimension
func captureSnapshots(ctx context.Context, container *di.Container, logger *zap.Logger) {
	entityIDs, err := populationEntityIDs(ctx, container)
	if err != nil {
		logger.Error("Failed to enumerate population", zap.Error(err))
		return
	}

	logger.Info("Starting snapshot sweep", zap.Int("entities", len(entityIDs)))

	captured := 0
	for _, entityID := range entityIDs {
		cmd := commands.CaptureSnapshotCommand{
			EntityID:  entityID,
			Retention: string(aggregates.RetentionDaily),
		}

		if err := container.CommandBus.Send(ctx, cmd); err != nil {
			// Entities without enough usable dimensions are expected in a
			// sweep; anything else is worth surfacing per entity.
			if pkgerrors.IsInsufficientData(err) || pkgerrors.IsNotFound(err) {
				logger.Debug("Skipping entity without a usable fingerprint",
					zap.String("entityID", entityID))
				continue
			}
			logger.Error("Snapshot capture failed",
				zap.String("entityID", entityID),
				zap.Error(err))
			continue
		}
		captured++
	}

	logger.Info("Snapshot sweep completed",
		zap.Int("entities", len(entityIDs)),
		zap.Int("captured", captured))
}

// calibrateDimensions recalibrates every configured dimension in sequence.
// The scheduler favors predictable load over speed; the batch calibrator
// binary is the parallel path.
func calibrateDimensions(ctx context.Context, container *di.Container, logger *zap.Logger) {
	for _, dimension := range container.Config.Dimensions {
		cmd := commands.CalibrateDimensionCommand{Dimension: dimension}

		if err := container.CommandBus.Send(ctx, cmd); err != nil {
			if pkgerrors.IsConflict(err) {
				logger.Warn("Calibration already running elsewhere, skipping",
					zap.String("dimension", dimension))
				continue
			}
			logger.Error("Scheduled calibration failed",
				zap.String("dimension", dimension),
				zap.Error(err))
			continue
		}

		logger.Info("Scheduled calibration completed", zap.String("dimension", dimension))
	}
}

// populationEntityIDs collects the union of entity IDs across every
// configured dimension's feature rows
func populationEntityIDs(ctx context.Context, container *di.Container) ([]string, error) {
	seen := make(map[string]struct{})
	for _, dimension := range container.Config.Dimensions {
		entityIDs, _, err := container.FeatureSource.PopulationMatrix(ctx, dimension)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, entityID := range entityIDs {
			seen[entityID] = struct{}{}
		}
	}

	entityIDs := make([]string, 0, len(seen))
	for entityID := range seen {
		entityIDs = append(entityIDs, entityID)
	}
	sort.Strings(entityIDs)
	return entityIDs, nil
}
