package di

import (
	"dnacore/application/commands/bus"
	"dnacore/application/ports"
	querybus "dnacore/application/queries/bus"
	analytics "dnacore/domain/config"
	"dnacore/infrastructure/config"
	"dnacore/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	AnalyticsConfig *analytics.AnalyticsConfig
	Logger          *zap.Logger
	DimensionRepo   ports.DimensionRepository
	SnapshotStore   ports.SnapshotStore
	FeatureSource   ports.FeatureSource
	CalibrationLock ports.CalibrationLock
	EventBus        ports.EventBus
	CommandBus      *bus.CommandBus
	QueryBus        *querybus.QueryBus
	Cache           ports.Cache
	Metrics         *observability.Metrics
	Tracer          *observability.Tracer
}
