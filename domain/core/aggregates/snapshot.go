package aggregates

import (
	"time"

	"dnacore/domain/core/valueobjects"
	"dnacore/domain/events"
	pkgerrors "dnacore/pkg/errors"

	"github.com/google/uuid"
)

// RetentionClass tags a snapshot with the retention tier that governs how
// long it is kept. Expiry itself is enforced by the store's retention
// policy, not by the analyzers.
type RetentionClass string

const (
	RetentionDaily     RetentionClass = "daily"
	RetentionWeekly    RetentionClass = "weekly"
	RetentionMonthly   RetentionClass = "monthly"
	RetentionQuarterly RetentionClass = "quarterly"
	RetentionYearly    RetentionClass = "yearly"
)

// Period returns how long snapshots of this class are retained
func (c RetentionClass) Period() time.Duration {
	switch c {
	case RetentionDaily:
		return 30 * 24 * time.Hour
	case RetentionWeekly:
		return 180 * 24 * time.Hour
	case RetentionMonthly:
		return 2 * 365 * 24 * time.Hour
	case RetentionQuarterly:
		return 5 * 365 * 24 * time.Hour
	case RetentionYearly:
		return 10 * 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// Valid reports whether the retention class is one of the known tiers
func (c RetentionClass) Valid() bool {
	switch c {
	case RetentionDaily, RetentionWeekly, RetentionMonthly, RetentionQuarterly, RetentionYearly:
		return true
	}
	return false
}

// Snapshot is an immutable, timestamped capture of one entity's behavioral
// DNA. Snapshots are append-only: duplicates for the same entity and
// timestamp are tolerated, and nothing ever edits one in place.
type Snapshot struct {
	// Private fields ensure encapsulation
	id         string
	entityID   valueobjects.EntityID
	dna        *BehavioralDNA
	retention  RetentionClass
	capturedAt time.Time

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewSnapshot captures a behavioral DNA as a new snapshot
func NewSnapshot(dna *BehavioralDNA, retention RetentionClass) (*Snapshot, error) {
	if dna == nil {
		return nil, pkgerrors.NewValidationError("snapshot requires a behavioral DNA")
	}
	if !retention.Valid() {
		return nil, pkgerrors.NewValidationError("unknown retention class: " + string(retention))
	}

	now := time.Now()
	snapshot := &Snapshot{
		id:         uuid.New().String(),
		entityID:   dna.EntityID(),
		dna:        dna,
		retention:  retention,
		capturedAt: now,
		events:     []events.DomainEvent{},
	}

	snapshot.addEvent(events.NewSnapshotCaptured(
		snapshot.id,
		dna.EntityID().String(),
		string(retention),
		dna.Confidence(),
		now,
	))

	return snapshot, nil
}

// ReconstructSnapshot reconstructs a snapshot from repository data
func ReconstructSnapshot(
	id string,
	dna *BehavioralDNA,
	retention RetentionClass,
	capturedAt time.Time,
) (*Snapshot, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("snapshot ID cannot be empty")
	}
	if dna == nil {
		return nil, pkgerrors.NewValidationError("snapshot requires a behavioral DNA")
	}

	return &Snapshot{
		id:         id,
		entityID:   dna.EntityID(),
		dna:        dna,
		retention:  retention,
		capturedAt: capturedAt,
		events:     []events.DomainEvent{},
	}, nil
}

// ID returns the snapshot's unique identifier
func (s *Snapshot) ID() string {
	return s.id
}

// EntityID returns the profiled entity's ID
func (s *Snapshot) EntityID() valueobjects.EntityID {
	return s.entityID
}

// DNA returns the captured behavioral DNA
func (s *Snapshot) DNA() *BehavioralDNA {
	return s.dna
}

// Retention returns the snapshot's retention class
func (s *Snapshot) Retention() RetentionClass {
	return s.retention
}

// CapturedAt returns when the snapshot was taken
func (s *Snapshot) CapturedAt() time.Time {
	return s.capturedAt
}

// ExpiresAt returns when the snapshot leaves its retention window
func (s *Snapshot) ExpiresAt() time.Time {
	return s.capturedAt.Add(s.retention.Period())
}

// GetUncommittedEvents returns all uncommitted domain events
func (s *Snapshot) GetUncommittedEvents() []events.DomainEvent {
	return s.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (s *Snapshot) MarkEventsAsCommitted() {
	s.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (s *Snapshot) addEvent(event events.DomainEvent) {
	s.events = append(s.events, event)
}
