package di

import (
	"context"
	"fmt"
	"time"

	"dnacore/application/commands"
	"dnacore/application/commands/bus"
	commands_handlers "dnacore/application/commands/handlers"
	"dnacore/application/ports"
	"dnacore/application/queries"
	querybus "dnacore/application/queries/bus"
	queries_handlers "dnacore/application/queries/handlers"
	analytics "dnacore/domain/config"
	"dnacore/domain/events"
	"dnacore/domain/services"
	"dnacore/infrastructure/config"
	"dnacore/infrastructure/messaging/eventbridge"
	"dnacore/infrastructure/persistence/dynamodb"
	"dnacore/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideAnalyticsConfig selects the analytics threshold profile
func ProvideAnalyticsConfig(cfg *config.Config) *analytics.AnalyticsConfig {
	return analytics.LoadAnalyticsConfig(cfg.AnalyticsEnvironment)
}

// ProvideDimensionRepository creates the dimension version repository
func ProvideDimensionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DimensionRepository {
	return dynamodb.NewDimensionRepository(client, cfg.DimensionsTable, logger)
}

// ProvideSnapshotStore creates the snapshot store
func ProvideSnapshotStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SnapshotStore {
	return dynamodb.NewSnapshotStore(client, cfg.SnapshotsTable, logger)
}

// ProvideFeatureSource creates the feature source
func ProvideFeatureSource(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.FeatureSource {
	return dynamodb.NewFeatureSource(client, cfg.FeaturesTable, logger)
}

// ProvideCalibrationLock creates the calibration lock
func ProvideCalibrationLock(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.CalibrationLock {
	return dynamodb.NewCalibrationLock(client, cfg.LocksTable, logger)
}

// ProvideEventBus creates an event bus
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	return eventbridge.NewEventBridgePublisher(
		client,
		cfg.EventBusName,
		logger,
	)
}

// ProvideEventPublisher creates an event publisher (adapter for EventBus)
func ProvideEventPublisher(eventBus ports.EventBus) ports.EventPublisher {
	return &eventPublisherAdapter{eventBus: eventBus}
}

// eventPublisherAdapter adapts EventBus to EventPublisher interface
type eventPublisherAdapter struct {
	eventBus ports.EventBus
}

func (a *eventPublisherAdapter) Publish(ctx context.Context, event events.DomainEvent) error {
	return a.eventBus.Publish(ctx, event)
}

func (a *eventPublisherAdapter) PublishBatch(ctx context.Context, events []events.DomainEvent) error {
	return a.eventBus.PublishBatch(ctx, events)
}

// ProvideMetrics creates metrics instance
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("DNACore/%s", cfg.Environment)
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideTracer creates the tracing instance
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer("dnacore")
}

// ProvideFuzzyCMeans creates the fuzzy clustering engine
func ProvideFuzzyCMeans(cfg *analytics.AnalyticsConfig, logger *zap.Logger) *services.FuzzyCMeans {
	return services.NewFuzzyCMeans(cfg, logger)
}

// ProvideFeaturePreparer creates the feature preparation service
func ProvideFeaturePreparer(cfg *analytics.AnalyticsConfig, logger *zap.Logger) *services.FeaturePreparer {
	return services.NewFeaturePreparer(cfg, logger)
}

// ProvideModelSelector creates the balance-aware model selector
func ProvideModelSelector(clusterer *services.FuzzyCMeans, cfg *analytics.AnalyticsConfig, logger *zap.Logger) *services.ModelSelector {
	return services.NewModelSelector(clusterer, cfg, logger)
}

// ProvideSubdivider creates the hierarchical subdivision engine
func ProvideSubdivider(selector *services.ModelSelector, cfg *analytics.AnalyticsConfig, logger *zap.Logger) *services.Subdivider {
	return services.NewSubdivider(selector, cfg, logger)
}

// ProvideProfileComposer creates the fingerprint composer
func ProvideProfileComposer(clusterer *services.FuzzyCMeans, cfg *analytics.AnalyticsConfig, logger *zap.Logger) *services.ProfileComposer {
	return services.NewProfileComposer(clusterer, cfg, logger)
}

// ProvideDriftAnalyzer creates the drift analyzer
func ProvideDriftAnalyzer(cfg *analytics.AnalyticsConfig, logger *zap.Logger) *services.DriftAnalyzer {
	return services.NewDriftAnalyzer(cfg, logger)
}

// ProvideJourneyCharacterizer creates the journey characterizer
func ProvideJourneyCharacterizer(analyzer *services.DriftAnalyzer, cfg *analytics.AnalyticsConfig, logger *zap.Logger) *services.JourneyCharacterizer {
	return services.NewJourneyCharacterizer(analyzer, cfg, logger)
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	dimensionRepo ports.DimensionRepository,
	snapshotStore ports.SnapshotStore,
	featureSource ports.FeatureSource,
	lock ports.CalibrationLock,
	eventPublisher ports.EventPublisher,
	preparer *services.FeaturePreparer,
	selector *services.ModelSelector,
	subdivider *services.Subdivider,
	composer *services.ProfileComposer,
	analyticsCfg *analytics.AnalyticsConfig,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBus()
	pipeline := bus.NewPipeline(
		bus.LoggingMiddleware(&zapLoggerAdapter{logger}),
		bus.ValidationMiddleware(),
		bus.MetricsMiddleware(metrics),
	)

	calibrateHandler := commands_handlers.NewCalibrateDimensionHandler(
		dimensionRepo,
		featureSource,
		lock,
		eventPublisher,
		preparer,
		selector,
		subdivider,
		analyticsCfg,
		metrics,
		tracer,
		logger,
	)
	commandBus.Register(commands.CalibrateDimensionCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			calibrateCmd, ok := cmd.(commands.CalibrateDimensionCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := calibrateHandler.Handle(ctx, calibrateCmd)
			return err
		},
	}))

	captureHandler := commands_handlers.NewCaptureSnapshotHandler(
		dimensionRepo,
		snapshotStore,
		featureSource,
		eventPublisher,
		composer,
		logger,
	)
	commandBus.Register(commands.CaptureSnapshotCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			captureCmd, ok := cmd.(commands.CaptureSnapshotCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := captureHandler.Handle(ctx, captureCmd)
			return err
		},
	}))

	return commandBus
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	dimensionRepo ports.DimensionRepository,
	snapshotStore ports.SnapshotStore,
	featureSource ports.FeatureSource,
	composer *services.ProfileComposer,
	characterizer *services.JourneyCharacterizer,
	eventPublisher ports.EventPublisher,
	analyticsCfg *analytics.AnalyticsConfig,
	cache ports.Cache,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()
	metricsMiddleware := querybus.NewMetricsMiddleware(metrics)

	// Categorization is read-heavy and only changes when a new dimension
	// version is published, so it sits behind the TTL cache.
	caching := querybus.NewCachingMiddleware(cache, cfg.CategorizationCacheTTL)
	categorizeHandler := queries_handlers.NewCategorizeEntityHandler(
		dimensionRepo,
		featureSource,
		composer,
		analyticsCfg,
		logger,
	)
	queryBus.Register(queries.CategorizeEntityQuery{}, caching.Wrap(metricsMiddleware.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			categorizeQuery, ok := query.(queries.CategorizeEntityQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return categorizeHandler.Handle(ctx, categorizeQuery)
		},
	})))

	journeyHandler := queries_handlers.NewGetJourneyHandler(
		snapshotStore,
		characterizer,
		eventPublisher,
		logger,
	)
	queryBus.Register(queries.GetJourneyQuery{}, metricsMiddleware.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			journeyQuery, ok := query.(queries.GetJourneyQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return journeyHandler.Handle(ctx, journeyQuery)
		},
	}))

	return queryBus
}

// ProvideCategorizationCache creates the process-local categorization cache.
// In production, this would be Redis or similar.
func ProvideCategorizationCache() ports.Cache {
	return NewCategorizationCache(time.Minute)
}

// zapLoggerAdapter adapts zap.Logger to the bus.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, _ := fields[i].(string)
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}
	}
	return zapFields
}
