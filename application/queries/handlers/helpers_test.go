package handlers

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"dnacore/application/ports"
	"dnacore/domain/config"
	"dnacore/domain/core/entities"
	"dnacore/domain/events"
	"dnacore/domain/services"
	"dnacore/infrastructure/persistence/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

// testConfig returns a deterministic configuration with size floors scaled
// down to synthetic-population sizes
func testConfig() *config.AnalyticsConfig {
	cfg := config.DefaultAnalyticsConfig()
	cfg.RandomSeed = 42
	cfg.MinSegmentSize = 20
	cfg.MinSubsegmentSize = 5
	cfg.MinCalibrationPopulation = 20
	return cfg
}

// testEnv bundles the in-memory adapters and handlers under test
type testEnv struct {
	cfg        *config.AnalyticsConfig
	repo       *memory.InMemoryDimensionRepository
	store      *memory.InMemorySnapshotStore
	source     *memory.InMemoryFeatureSource
	bus        *recordingEventBus
	categorize *CategorizeEntityHandler
	journey    *GetJourneyHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	logger := zap.NewNop()
	repo := memory.NewInMemoryDimensionRepository()
	store := memory.NewInMemorySnapshotStore()
	source := memory.NewInMemoryFeatureSource()
	bus := &recordingEventBus{}

	clusterer := services.NewFuzzyCMeans(cfg, logger)
	composer := services.NewProfileComposer(clusterer, cfg, logger)
	analyzer := services.NewDriftAnalyzer(cfg, logger)
	characterizer := services.NewJourneyCharacterizer(analyzer, cfg, logger)

	return &testEnv{
		cfg:        cfg,
		repo:       repo,
		store:      store,
		source:     source,
		bus:        bus,
		categorize: NewCategorizeEntityHandler(repo, source, composer, cfg, logger),
		journey:    NewGetJourneyHandler(store, characterizer, bus, logger),
	}
}

// publishDimension calibrates a synthetic two-group population for one
// dimension and publishes the resulting version
func (e *testEnv) publishDimension(t *testing.T, name string) *entities.Dimension {
	t.Helper()

	logger := zap.NewNop()
	rng := rand.New(rand.NewSource(7))
	matrix := make([][]float64, 0, 60)
	for _, center := range [][]float64{{0.1, 0.1}, {0.9, 0.9}} {
		for i := 0; i < 30; i++ {
			matrix = append(matrix, []float64{
				center[0] + (rng.Float64()*2-1)*0.05,
				center[1] + (rng.Float64()*2-1)*0.05,
			})
		}
	}

	clusterer := services.NewFuzzyCMeans(e.cfg, logger)
	preparer := services.NewFeaturePreparer(e.cfg, logger)
	selector := services.NewModelSelector(clusterer, e.cfg, logger)
	subdivider := services.NewSubdivider(selector, e.cfg, logger)

	prepared, err := preparer.Prepare(matrix)
	require.NoError(t, err)
	selection, err := selector.SelectK(context.Background(), prepared.Scaled, e.cfg.KMin, e.cfg.KMax)
	require.NoError(t, err)
	segments, err := subdivider.Build(context.Background(), prepared.Scaled, selection)
	require.NoError(t, err)

	quality := entities.CalibrationQuality{
		Cohesion:      selection.Cohesion,
		Balance:       selection.Balance,
		CombinedScore: selection.Combined,
		SoftConverged: selection.Fit.SoftConverged,
		Warnings:      selection.Warnings,
	}
	dimension, err := entities.NewDimension(name, segments, prepared.Params, quality, len(prepared.Kept), e.cfg)
	require.NoError(t, err)

	require.NoError(t, e.repo.SaveVersion(context.Background(), dimension))
	require.NoError(t, e.repo.Publish(context.Background(), name, dimension.Version()))
	return dimension
}

func floatPtr(v float64) *float64 { return &v }

// appendSnapshot stores one snapshot record with a single-dimension
// membership state. Nil scores model captures taken without measured
// business outcomes.
func (e *testEnv) appendSnapshot(
	t *testing.T,
	entityID, version string,
	capturedAt time.Time,
	memberships map[string]float64,
	risk, value *float64,
) {
	t.Helper()

	err := e.store.Append(context.Background(), &ports.SnapshotRecord{
		ID:           uuid.New().String(),
		EntityID:     entityID,
		CapturedAt:   capturedAt,
		Retention:    "daily",
		ExpiresAt:    capturedAt.Add(24 * time.Hour),
		Confidence:   0.8,
		Observations: 50,
		Memberships: map[string]ports.MembershipRecord{
			"engagement": {Version: version, Memberships: memberships},
		},
		RiskScore:  risk,
		ValueScore: value,
	})
	require.NoError(t, err)
}
