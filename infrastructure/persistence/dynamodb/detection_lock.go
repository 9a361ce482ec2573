package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"time"

	pkgerrors "chatarchive/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockPrefix = "LOCK#detect#"
	lockSK     = "LOCK"

	releaseTimeout = 5 * time.Second
)

// DetectionLock serializes detection per entry across processes using a
// conditional write on a lock row. Expired rows can be taken over, and the
// TTL attribute lets DynamoDB sweep abandoned ones.
type DetectionLock struct {
	client    API
	tableName string
	owner     string
	logger    *zap.Logger
	now       func() time.Time
}

// NewDetectionLock creates a new lock bound to the archive table
func NewDetectionLock(client API, tableName string, logger *zap.Logger) *DetectionLock {
	return &DetectionLock{
		client:    client,
		tableName: tableName,
		owner:     uuid.NewString(),
		logger:    logger,
		now:       time.Now,
	}
}

// Acquire takes the lock for entryID for at most ttl. A live lock held by
// anyone else yields a CONFLICT AppError.
func (l *DetectionLock) Acquire(ctx context.Context, entryID string, ttl time.Duration) (func(), error) {
	lockID := uuid.NewString()
	now := l.now()
	expiresAt := now.Add(ttl)

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"PK":         &types.AttributeValueMemberS{Value: lockPrefix + entryID},
			"SK":         &types.AttributeValueMemberS{Value: lockSK},
			"LockID":     &types.AttributeValueMemberS{Value: lockID},
			"Owner":      &types.AttributeValueMemberS{Value: l.owner},
			"AcquiredAt": &types.AttributeValueMemberS{Value: formatTime(now)},
			"ExpiresAt":  &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.UnixMilli(), 10)},
			"TTL":        &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			l.logger.Debug("Detection lock already held", zap.String("entryID", entryID))
			return nil, pkgerrors.NewConflictError("detection already running for entry " + entryID)
		}
		return nil, classifyError("acquire detection lock", err)
	}

	l.logger.Debug("Detection lock acquired",
		zap.String("entryID", entryID),
		zap.String("lockID", lockID),
		zap.Duration("ttl", ttl),
	)
	return func() { l.release(entryID, lockID) }, nil
}

// release deletes the row if it is still ours. It runs on its own context so
// a cancelled request still frees the lock.
func (l *DetectionLock) release(entryID, lockID string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: lockPrefix + entryID},
			"SK": &types.AttributeValueMemberS{Value: lockSK},
		},
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			l.logger.Warn("Detection lock expired and was taken over",
				zap.String("entryID", entryID),
				zap.String("lockID", lockID),
			)
			return
		}
		l.logger.Error("Failed to release detection lock",
			zap.String("entryID", entryID),
			zap.String("lockID", lockID),
			zap.Error(err),
		)
	}
}
