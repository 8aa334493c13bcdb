package handlers

import (
	"context"
	"sort"
	"time"

	"dnacore/application/ports"
	"dnacore/application/queries"
	"dnacore/domain/core/aggregates"
	"dnacore/domain/core/valueobjects"
	"dnacore/domain/events"
	"dnacore/domain/services"
	pkgerrors "dnacore/pkg/errors"

	"go.uber.org/zap"
)

// GetJourneyHandler loads an entity's snapshot history and characterizes
// its behavioral journey.
type GetJourneyHandler struct {
	snapshotStore ports.SnapshotStore
	characterizer *services.JourneyCharacterizer
	eventBus      ports.EventPublisher
	logger        *zap.Logger
}

// NewGetJourneyHandler creates a new handler instance
func NewGetJourneyHandler(
	snapshotStore ports.SnapshotStore,
	characterizer *services.JourneyCharacterizer,
	eventBus ports.EventPublisher,
	logger *zap.Logger,
) *GetJourneyHandler {
	return &GetJourneyHandler{
		snapshotStore: snapshotStore,
		characterizer: characterizer,
		eventBus:      eventBus,
		logger:        logger,
	}
}

// Handle executes the get journey query
func (h *GetJourneyHandler) Handle(ctx context.Context, query queries.GetJourneyQuery) (*queries.JourneyResult, error) {
	entityID, err := valueobjects.NewEntityIDFromString(query.EntityID)
	if err != nil {
		return nil, err
	}

	from := query.From
	to := query.To
	if to.IsZero() {
		to = time.Now()
	}

	records, err := h.snapshotStore.Range(ctx, entityID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load snapshot history")
	}
	if len(records) < 2 {
		return nil, pkgerrors.NewInsufficientDataError("entity has fewer than two snapshots in the window").
			WithDetails(map[string]interface{}{
				"entityId":  query.EntityID,
				"snapshots": len(records),
			})
	}

	snapshots := make([]*aggregates.Snapshot, len(records))
	for i, record := range records {
		snapshot, err := rehydrateSnapshot(record)
		if err != nil {
			return nil, err
		}
		snapshots[i] = snapshot
	}
	metrics := businessMetrics(records)

	journey, err := h.characterizer.Characterize(snapshots, metrics)
	if err != nil {
		return nil, err
	}

	h.announceDrift(ctx, journey)

	return &queries.JourneyResult{
		Journey:             journey,
		RedefinedDimensions: redefinedDimensions(journey.Drifts),
	}, nil
}

// businessMetrics aligns the stored outcome scores with the snapshots.
// Direction scoring needs outcomes at both ends of every comparison, so
// any capture without them drops the series entirely; absent scores must
// read as unknown direction, never as flat ones.
func businessMetrics(records []*ports.SnapshotRecord) []services.BusinessMetrics {
	metrics := make([]services.BusinessMetrics, len(records))
	for i, record := range records {
		if record.RiskScore == nil || record.ValueScore == nil {
			return nil
		}
		metrics[i] = services.BusinessMetrics{
			RiskScore:  *record.RiskScore,
			ValueScore: *record.ValueScore,
		}
	}
	return metrics
}

// announceDrift publishes a DriftDetected event for each dimension that
// moved above the stable tier in the window's latest comparison, so
// alerting collaborators can react without polling journeys themselves
func (h *GetJourneyHandler) announceDrift(ctx context.Context, journey *services.Journey) {
	if h.eventBus == nil || len(journey.Drifts) == 0 {
		return
	}

	latest := journey.Drifts[len(journey.Drifts)-1]
	var detected []events.DomainEvent
	for _, dim := range latest.Dimensions {
		if dim.Severity == services.SeverityStable {
			continue
		}
		detected = append(detected, events.NewDriftDetected(
			journey.EntityID,
			dim.Dimension,
			dim.Normalized,
			string(dim.Severity),
			string(dim.Urgency),
			latest.To,
		))
	}
	if len(detected) == 0 {
		return
	}

	if err := h.eventBus.PublishBatch(ctx, detected); err != nil {
		// The journey result is still valid; alerting is best effort
		h.logger.Warn("Failed to publish drift events",
			zap.String("entityId", journey.EntityID),
			zap.Error(err),
		)
	}
}

// rehydrateSnapshot rebuilds the snapshot aggregate from its persistence
// shape
func rehydrateSnapshot(record *ports.SnapshotRecord) (*aggregates.Snapshot, error) {
	entityID, err := valueobjects.NewEntityIDFromString(record.EntityID)
	if err != nil {
		return nil, err
	}

	memberships := make(map[string]aggregates.DimensionMembership, len(record.Memberships))
	for name, m := range record.Memberships {
		vector, err := valueobjects.NewMembershipVector(m.Memberships)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "stored membership vector is invalid")
		}
		version, err := valueobjects.NewDimensionVersionFromString(m.Version)
		if err != nil {
			return nil, err
		}
		memberships[name] = aggregates.DimensionMembership{
			Vector:  vector,
			Version: version,
		}
	}

	dna, err := aggregates.ReconstructBehavioralDNA(
		entityID,
		memberships,
		record.Confidence,
		record.Observations,
		record.CapturedAt,
	)
	if err != nil {
		return nil, err
	}

	return aggregates.ReconstructSnapshot(
		record.ID,
		dna,
		aggregates.RetentionClass(record.Retention),
		record.CapturedAt,
	)
}

// redefinedDimensions collects the dimensions whose calibration version
// changed anywhere inside the window
func redefinedDimensions(drifts []*services.DriftReport) []string {
	seen := make(map[string]bool)
	for _, report := range drifts {
		for _, dim := range report.Dimensions {
			if dim.Redefined {
				seen[dim.Dimension] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
