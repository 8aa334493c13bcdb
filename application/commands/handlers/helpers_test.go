package handlers

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"dnacore/domain/config"
	"dnacore/domain/events"
	"dnacore/domain/services"
	"dnacore/infrastructure/persistence/memory"
	"dnacore/pkg/observability"

	"go.uber.org/zap"
)

// testConfig returns a deterministic configuration with size floors scaled
// down to synthetic-population sizes
func testConfig() *config.AnalyticsConfig {
	cfg := config.DefaultAnalyticsConfig()
	cfg.RandomSeed = 42
	cfg.MinSegmentSize = 20
	cfg.MinSubsegmentSize = 5
	cfg.MinCalibrationPopulation = 20
	cfg.MinRecalibrationInterval = 0 // tests recalibrate back to back
	return cfg
}

func floatPtr(v float64) *float64 { return &v }

// recordingEventBus captures published events for assertions
type recordingEventBus struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (b *recordingEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingEventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, batch...)
	return nil
}

func (b *recordingEventBus) byType(eventType string) []events.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []events.DomainEvent
	for _, event := range b.events {
		if event.GetEventType() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// testEnv bundles the in-memory adapters and handlers under test
type testEnv struct {
	cfg       *config.AnalyticsConfig
	repo      *memory.InMemoryDimensionRepository
	store     *memory.InMemorySnapshotStore
	source    *memory.InMemoryFeatureSource
	lock      *memory.InMemoryCalibrationLock
	bus       *recordingEventBus
	calibrate *CalibrateDimensionHandler
	capture   *CaptureSnapshotHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	logger := zap.NewNop()
	repo := memory.NewInMemoryDimensionRepository()
	store := memory.NewInMemorySnapshotStore()
	source := memory.NewInMemoryFeatureSource()
	lock := memory.NewInMemoryCalibrationLock()
	bus := &recordingEventBus{}

	clusterer := services.NewFuzzyCMeans(cfg, logger)
	preparer := services.NewFeaturePreparer(cfg, logger)
	selector := services.NewModelSelector(clusterer, cfg, logger)
	subdivider := services.NewSubdivider(selector, cfg, logger)
	composer := services.NewProfileComposer(clusterer, cfg, logger)

	metrics := observability.NewMetrics("Test", nil, logger)
	tracer := observability.NewTracer("test")

	return &testEnv{
		cfg:    cfg,
		repo:   repo,
		store:  store,
		source: source,
		lock:   lock,
		bus:    bus,
		calibrate: NewCalibrateDimensionHandler(
			repo, source, lock, bus,
			preparer, selector, subdivider,
			cfg, metrics, tracer, logger,
		),
		capture: NewCaptureSnapshotHandler(
			repo, store, source, bus, composer, logger,
		),
	}
}

// seedPopulation loads two well-separated behavioral groups for one
// dimension, with observation counts above the cold-start floor
func (e *testEnv) seedPopulation(dimension string, perGroup int) {
	rng := rand.New(rand.NewSource(7))
	centers := [][]float64{{0.1, 0.1}, {0.9, 0.9}}
	for g, center := range centers {
		for i := 0; i < perGroup; i++ {
			entityID := fmt.Sprintf("entity-%s-%d-%03d", dimension, g, i)
			features := make([]float64, len(center))
			for d := range features {
				features[d] = center[d] + (rng.Float64()*2-1)*0.05
			}
			e.source.LoadFeatures(dimension, entityID, features)
			e.source.LoadObservations(entityID, e.cfg.MinObservations+10)
		}
	}
}
