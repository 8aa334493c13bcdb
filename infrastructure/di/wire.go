//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"dnacore/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideAnalyticsConfig,
	ProvideDimensionRepository,
	ProvideSnapshotStore,
	ProvideFeatureSource,
	ProvideCalibrationLock,
	ProvideEventBus,
	ProvideEventPublisher,
	ProvideMetrics,
	ProvideTracer,
	ProvideFuzzyCMeans,
	ProvideFeaturePreparer,
	ProvideModelSelector,
	ProvideSubdivider,
	ProvideProfileComposer,
	ProvideDriftAnalyzer,
	ProvideJourneyCharacterizer,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideCategorizationCache,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
