package memory

import (
	"context"
	"sync"
	"time"

	pkgerrors "chatarchive/pkg/errors"
)

// DetectionLock serializes detection per entry inside one process.
type DetectionLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewDetectionLock creates an empty lock table
func NewDetectionLock() *DetectionLock {
	return &DetectionLock{held: make(map[string]struct{})}
}

// Acquire takes the lock for entryID or fails with a conflict. The ttl is
// not needed in process: the lock lives until release is called.
func (l *DetectionLock) Acquire(ctx context.Context, entryID string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[entryID]; busy {
		return nil, pkgerrors.NewConflictError("detection already running for entry " + entryID)
	}
	l.held[entryID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, entryID)
			l.mu.Unlock()
		})
	}, nil
}
