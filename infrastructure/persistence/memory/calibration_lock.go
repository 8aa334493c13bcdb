package memory

import (
	"context"
	"sync"
	"time"

	"dnacore/application/ports"
	pkgerrors "dnacore/pkg/errors"
)

// InMemoryCalibrationLock provides an in-memory implementation of
// CalibrationLock for tests and single-process deployments. Expired locks
// are stolen on the next acquisition, mirroring the DynamoDB implementation.
type InMemoryCalibrationLock struct {
	mu    sync.Mutex
	locks map[string]time.Time // dimension -> expiry
}

// NewInMemoryCalibrationLock creates a new in-memory calibration lock
func NewInMemoryCalibrationLock() *InMemoryCalibrationLock {
	return &InMemoryCalibrationLock{
		locks: make(map[string]time.Time),
	}
}

// Acquire takes the lock for a dimension, failing with a conflict if
// another run holds an unexpired lock
func (l *InMemoryCalibrationLock) Acquire(ctx context.Context, dimension string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.locks[dimension]; held && time.Now().Before(expiry) {
		return pkgerrors.NewConflictError("calibration already running for dimension " + dimension)
	}

	l.locks[dimension] = time.Now().Add(ttl)
	return nil
}

// Release frees the lock for a dimension
func (l *InMemoryCalibrationLock) Release(ctx context.Context, dimension string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, dimension)
	return nil
}

var _ ports.CalibrationLock = (*InMemoryCalibrationLock)(nil)
