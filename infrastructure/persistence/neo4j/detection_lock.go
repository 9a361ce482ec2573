package neo4j

import (
	"context"
	"time"

	pkgerrors "chatarchive/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const releaseTimeout = 5 * time.Second

// acquireLock claims the lock node for an entry. Touching the node first takes
// its write lock, so the expiry check below cannot race another acquirer.
// No row comes back while someone else holds a live lock.
const acquireLock = `
MERGE (l:DetectionLock {entryId: $entryId})
ON CREATE SET l.expiresAt = 0
SET l.touchedAt = $now
WITH l
WHERE l.expiresAt < $now
SET l.lockId = $lockId, l.owner = $owner, l.expiresAt = $expiresAt
RETURN l.lockId AS lockId`

const releaseLock = `
MATCH (l:DetectionLock {entryId: $entryId, lockId: $lockId})
DELETE l
RETURN count(*) AS released`

// DetectionLock serializes detection per entry across processes with one
// (:DetectionLock) node per entry. Expired nodes can be taken over.
type DetectionLock struct {
	runner Runner
	owner  string
	logger *zap.Logger
	now    func() time.Time
}

// NewDetectionLock creates a new DetectionLock
func NewDetectionLock(runner Runner, logger *zap.Logger) *DetectionLock {
	return &DetectionLock{
		runner: runner,
		owner:  uuid.NewString(),
		logger: logger,
		now:    time.Now,
	}
}

// Acquire takes the lock for entryID for at most ttl. A live lock held by
// anyone else yields a CONFLICT AppError.
func (l *DetectionLock) Acquire(ctx context.Context, entryID string, ttl time.Duration) (func(), error) {
	lockID := uuid.NewString()
	now := l.now()

	result, err := l.runner.Run(ctx, acquireLock, map[string]any{
		"entryId":   entryID,
		"lockId":    lockID,
		"owner":     l.owner,
		"now":       now.UnixMilli(),
		"expiresAt": now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		return nil, classifyError("acquire detection lock", err)
	}
	if len(result.Records) == 0 {
		l.logger.Debug("Detection lock already held", zap.String("entryID", entryID))
		return nil, pkgerrors.NewConflictError("detection already running for entry " + entryID)
	}

	l.logger.Debug("Detection lock acquired",
		zap.String("entryID", entryID),
		zap.String("lockID", lockID),
		zap.Duration("ttl", ttl),
	)
	return func() { l.release(entryID, lockID) }, nil
}

// release deletes the node if it is still ours, on its own context so a
// cancelled request still frees the lock.
func (l *DetectionLock) release(entryID, lockID string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	result, err := l.runner.Run(ctx, releaseLock, map[string]any{"entryId": entryID, "lockId": lockID})
	if err != nil {
		l.logger.Error("Failed to release detection lock",
			zap.String("entryID", entryID),
			zap.String("lockID", lockID),
			zap.Error(err),
		)
		return
	}
	released := int64(0)
	if len(result.Records) > 0 {
		if v, ok := result.Records[0].Get("released"); ok {
			released, _ = v.(int64)
		}
	}
	if released == 0 {
		l.logger.Warn("Detection lock expired and was taken over",
			zap.String("entryID", entryID),
			zap.String("lockID", lockID),
		)
	}
}
