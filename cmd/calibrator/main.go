// Package main implements the batch calibration runner. It recalibrates the
// configured behavioral dimensions against the current population and
// publishes the resulting versions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"dnacore/application/commands"
	"dnacore/infrastructure/config"
	"dnacore/infrastructure/di"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

func main() {
	var (
		dimensionsFlag = flag.String("dimensions", "", "comma-separated dimensions to calibrate (defaults to the configured set)")
		dryRun         = flag.Bool("dry-run", false, "run the full calibration but skip publishing")
		force          = flag.Bool("force", false, "recalibrate even when the current version is younger than the minimum interval")
		kMin           = flag.Int("k-min", 0, "override the smallest candidate segment count")
		kMax           = flag.Int("k-max", 0, "override the largest candidate segment count")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger
	defer logger.Sync()

	dimensions := cfg.Dimensions
	if *dimensionsFlag != "" {
		dimensions = splitDimensions(*dimensionsFlag)
	}
	if len(dimensions) == 0 {
		logger.Fatal("No dimensions to calibrate")
	}

	logger.Info("Starting batch calibration",
		zap.Strings("dimensions", dimensions),
		zap.Bool("dryRun", *dryRun))

	// Dimensions are independent models; calibrate them concurrently.
	// The per-dimension lock still serializes against other runners.
	var wg sync.WaitGroup
	failures := make(chan string, len(dimensions))

	for _, dimension := range dimensions {
		wg.Add(1)
		go func(dimension string) {
			defer wg.Done()

			cmd := commands.CalibrateDimensionCommand{
				Dimension: dimension,
				KMin:      *kMin,
				KMax:      *kMax,
				DryRun:    *dryRun,
				Force:     *force,
			}

			if err := container.CommandBus.Send(ctx, cmd); err != nil {
				switch {
				case pkgerrors.IsConflict(err):
					logger.Warn("Calibration already running elsewhere, skipping",
						zap.String("dimension", dimension))
				case pkgerrors.IsInsufficientData(err):
					logger.Warn("Population below the calibration floor, keeping previous version",
						zap.String("dimension", dimension),
						zap.Error(err))
				default:
					logger.Error("Calibration failed",
						zap.String("dimension", dimension),
						zap.Error(err))
					failures <- dimension
				}
				return
			}

			logger.Info("Calibration completed", zap.String("dimension", dimension))
		}(dimension)
	}

	wg.Wait()
	close(failures)

	var failed []string
	for dimension := range failures {
		failed = append(failed, dimension)
	}
	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "calibration failed for: %s\n", strings.Join(failed, ", "))
		os.Exit(1)
	}
}

func splitDimensions(value string) []string {
	var dimensions []string
	for _, dimension := range strings.Split(value, ",") {
		if dimension = strings.TrimSpace(dimension); dimension != "" {
			dimensions = append(dimensions, dimension)
		}
	}
	return dimensions
}
