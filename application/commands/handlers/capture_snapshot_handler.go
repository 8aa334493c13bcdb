package handlers

import (
	"context"

	"dnacore/application/commands"
	"dnacore/application/ports"
	"dnacore/domain/core/aggregates"
	"dnacore/domain/core/entities"
	"dnacore/domain/core/valueobjects"
	"dnacore/domain/services"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// CaptureSnapshotHandler categorizes one entity against every published
// dimension and appends the resulting fingerprint to the snapshot store.
type CaptureSnapshotHandler struct {
	dimensionRepo ports.DimensionRepository
	snapshotStore ports.SnapshotStore
	featureSource ports.FeatureSource
	eventBus      ports.EventPublisher
	composer      *services.ProfileComposer
	logger        *zap.Logger
}

// NewCaptureSnapshotHandler creates a new handler instance
func NewCaptureSnapshotHandler(
	dimensionRepo ports.DimensionRepository,
	snapshotStore ports.SnapshotStore,
	featureSource ports.FeatureSource,
	eventBus ports.EventPublisher,
	composer *services.ProfileComposer,
	logger *zap.Logger,
) *CaptureSnapshotHandler {
	return &CaptureSnapshotHandler{
		dimensionRepo: dimensionRepo,
		snapshotStore: snapshotStore,
		featureSource: featureSource,
		eventBus:      eventBus,
		composer:      composer,
		logger:        logger,
	}
}

// Handle executes the capture snapshot command
func (h *CaptureSnapshotHandler) Handle(ctx context.Context, cmd commands.CaptureSnapshotCommand) (*aggregates.Snapshot, error) {
	entityID, err := valueobjects.NewEntityIDFromString(cmd.EntityID)
	if err != nil {
		return nil, err
	}

	dimensions, err := h.dimensionRepo.ListCurrent(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list published dimensions")
	}
	if len(dimensions) == 0 {
		return nil, pkgerrors.NewNotFoundError("no dimensions are published yet")
	}

	dna, err := h.composeFingerprint(ctx, entityID, dimensions)
	if err != nil {
		return nil, err
	}

	snapshot, err := aggregates.NewSnapshot(dna, aggregates.RetentionClass(cmd.Retention))
	if err != nil {
		return nil, err
	}

	record := snapshotRecord(snapshot, cmd.RiskScore, cmd.ValueScore)
	if err := h.snapshotStore.Append(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to append snapshot")
	}

	if err := h.eventBus.PublishBatch(ctx, snapshot.GetUncommittedEvents()); err != nil {
		// The snapshot is durably stored; event delivery can be retried
		h.logger.Warn("Failed to publish snapshot events",
			zap.String("entityId", cmd.EntityID),
			zap.Error(err),
		)
	}
	snapshot.MarkEventsAsCommitted()

	h.logger.Info("Captured snapshot",
		zap.String("entityId", cmd.EntityID),
		zap.String("snapshotId", snapshot.ID()),
		zap.String("retention", cmd.Retention),
		zap.Float64("confidence", dna.Confidence()),
	)

	return snapshot, nil
}

// composeFingerprint gathers the entity's features across all published
// dimensions and composes its behavioral DNA
func (h *CaptureSnapshotHandler) composeFingerprint(
	ctx context.Context,
	entityID valueobjects.EntityID,
	dimensions []*entities.Dimension,
) (*aggregates.BehavioralDNA, error) {
	inputs := make(map[string]services.DimensionInput, len(dimensions))
	for _, dimension := range dimensions {
		features, err := h.featureSource.EntityFeatures(ctx, dimension.Name(), entityID)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				// No observations on this axis; coverage drops instead
				continue
			}
			return nil, pkgerrors.Wrap(err, "failed to load entity features")
		}
		inputs[dimension.Name()] = services.DimensionInput{
			Dimension:   dimension,
			RawFeatures: features,
		}
	}

	observations, err := h.featureSource.ObservationCount(ctx, entityID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load observation count")
	}

	return h.composer.Compose(entityID, inputs, len(dimensions), observations)
}

// snapshotRecord flattens a snapshot aggregate into its persistence shape
func snapshotRecord(snapshot *aggregates.Snapshot, riskScore, valueScore *float64) *ports.SnapshotRecord {
	dna := snapshot.DNA()

	memberships := make(map[string]ports.MembershipRecord, len(dna.Memberships()))
	for name, membership := range dna.Memberships() {
		memberships[name] = ports.MembershipRecord{
			Version:     membership.Version.String(),
			Memberships: membership.Vector.Memberships(),
		}
	}

	return &ports.SnapshotRecord{
		ID:           snapshot.ID(),
		EntityID:     snapshot.EntityID().String(),
		CapturedAt:   snapshot.CapturedAt(),
		Retention:    string(snapshot.Retention()),
		ExpiresAt:    snapshot.ExpiresAt(),
		Confidence:   dna.Confidence(),
		Observations: dna.ObservationCount(),
		Memberships:  memberships,
		RiskScore:    riskScore,
		ValueScore:   valueScore,
	}
}
