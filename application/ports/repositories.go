package ports

import (
	"context"
	"time"

	"dnacore/domain/core/entities"
	"dnacore/domain/core/valueobjects"
	"dnacore/domain/events"
)

// DimensionRepository defines the interface for dimension version persistence.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation.
//
// Dimension versions are immutable once saved. Publishing flips the current
// pointer atomically, so readers either see the previous complete version or
// the new complete version, never a mix.
type DimensionRepository interface {
	// SaveVersion persists a new immutable dimension version without
	// making it current
	SaveVersion(ctx context.Context, dimension *entities.Dimension) error

	// Publish atomically makes the given version the current one for its
	// dimension name
	Publish(ctx context.Context, name string, version valueobjects.DimensionVersion) error

	// GetCurrent retrieves the current published version of a dimension
	GetCurrent(ctx context.Context, name string) (*entities.Dimension, error)

	// GetVersion retrieves one specific dimension version
	GetVersion(ctx context.Context, name string, version valueobjects.DimensionVersion) (*entities.Dimension, error)

	// ListCurrent retrieves the current version of every published dimension
	ListCurrent(ctx context.Context) ([]*entities.Dimension, error)
}

// SnapshotStore defines the interface for snapshot persistence. The store
// is append-only: snapshots are never edited in place, and duplicate
// captures for the same entity and timestamp are tolerated.
type SnapshotStore interface {
	// Append persists a new snapshot
	Append(ctx context.Context, snapshot *SnapshotRecord) error

	// Latest retrieves the most recent snapshot for an entity
	Latest(ctx context.Context, entityID valueobjects.EntityID) (*SnapshotRecord, error)

	// Range retrieves the entity's snapshots captured within [from, to],
	// oldest first
	Range(ctx context.Context, entityID valueobjects.EntityID, from, to time.Time) ([]*SnapshotRecord, error)
}

// SnapshotRecord is the persistence shape of one snapshot, paired with the
// optional business metrics measured at capture time
type SnapshotRecord struct {
	ID         string
	EntityID   string
	CapturedAt time.Time
	Retention  string
	ExpiresAt  time.Time
	Confidence float64
	// Observations is the raw observation count behind the fingerprint
	Observations int
	// Memberships maps dimension name to its membership state at capture
	Memberships map[string]MembershipRecord
	// RiskScore and ValueScore are the business outcomes paired with the
	// capture, used for drift direction scoring. They are nil when the
	// caller supplied no outcomes; an absent score is not a zero score.
	RiskScore  *float64
	ValueScore *float64
}

// MembershipRecord is the persistence shape of one dimension membership
type MembershipRecord struct {
	Version     string
	Memberships map[string]float64
}

// FeatureSource defines the interface for reading raw behavioral features.
// Implementations sit over whatever observation pipeline feeds the system;
// calibration and categorization only ever see feature rows.
type FeatureSource interface {
	// PopulationMatrix retrieves the raw feature matrix for a dimension
	// across the whole population. Missing values carry NaN. The returned
	// entity IDs align row-for-row with the matrix.
	PopulationMatrix(ctx context.Context, dimension string) ([]string, [][]float64, error)

	// EntityFeatures retrieves one entity's raw feature row for a dimension
	EntityFeatures(ctx context.Context, dimension string, entityID valueobjects.EntityID) ([]float64, error)

	// ObservationCount retrieves how many raw observations back the
	// entity's features
	ObservationCount(ctx context.Context, entityID valueobjects.EntityID) (int, error)
}

// CalibrationLock defines the interface for serializing calibration runs.
// At most one calibration per dimension may run at a time; concurrent
// attempts fail fast rather than queue.
type CalibrationLock interface {
	// Acquire takes the lock for a dimension, failing with a conflict if
	// another run holds it
	Acquire(ctx context.Context, dimension string, ttl time.Duration) error

	// Release frees the lock for a dimension
	Release(ctx context.Context, dimension string) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
