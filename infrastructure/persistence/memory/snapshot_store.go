package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dnacore/application/ports"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"
)

// InMemorySnapshotStore provides an in-memory implementation of SnapshotStore
// for tests and local development. Appends keep per-entity history sorted by
// capture time, matching the read order of the DynamoDB store.
type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string][]*ports.SnapshotRecord // entity ID -> snapshots, oldest first
}

// NewInMemorySnapshotStore creates a new in-memory snapshot store
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{
		snapshots: make(map[string][]*ports.SnapshotRecord),
	}
}

// Append persists a new snapshot
func (s *InMemorySnapshotStore) Append(ctx context.Context, snapshot *ports.SnapshotRecord) error {
	if snapshot == nil {
		return pkgerrors.NewValidationError("snapshot cannot be nil")
	}
	if snapshot.EntityID == "" {
		return pkgerrors.NewValidationError("snapshot entity ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.snapshots[snapshot.EntityID], snapshot)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CapturedAt.Before(history[j].CapturedAt)
	})
	s.snapshots[snapshot.EntityID] = history

	return nil
}

// Latest retrieves the most recent snapshot for an entity
func (s *InMemorySnapshotStore) Latest(ctx context.Context, entityID valueobjects.EntityID) (*ports.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.snapshots[entityID.String()]
	if len(history) == 0 {
		return nil, pkgerrors.NewNotFoundError("snapshot")
	}

	return history[len(history)-1], nil
}

// Range retrieves the entity's snapshots captured within [from, to],
// oldest first
func (s *InMemorySnapshotStore) Range(ctx context.Context, entityID valueobjects.EntityID, from, to time.Time) ([]*ports.SnapshotRecord, error) {
	if to.Before(from) {
		return nil, pkgerrors.NewValidationError("range end cannot precede range start")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*ports.SnapshotRecord
	for _, snapshot := range s.snapshots[entityID.String()] {
		if snapshot.CapturedAt.Before(from) || snapshot.CapturedAt.After(to) {
			continue
		}
		records = append(records, snapshot)
	}

	return records, nil
}

var _ ports.SnapshotStore = (*InMemorySnapshotStore)(nil)
