package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgerrors "dnacore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CalibrationLock serializes calibration runs per dimension using DynamoDB
// conditional writes. A crashed run never wedges the dimension: the lock
// record carries an expiry, and a new acquisition steals any expired lock.
type CalibrationLock struct {
	client    *dynamodb.Client
	tableName string
	ownerID   string
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]string // dimension -> lock ID held by this process
}

// lockRecord represents a lock record in DynamoDB
type lockRecord struct {
	PK         string `dynamodbav:"PK"` // LOCK#<dimension>
	SK         string `dynamodbav:"SK"` // LOCK
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"` // RFC3339 timestamp
	ExpiresAt  string `dynamodbav:"ExpiresAt"`  // RFC3339 timestamp
	TTL        int64  `dynamodbav:"TTL"`        // Unix timestamp for DynamoDB TTL
}

// NewCalibrationLock creates a new calibration lock instance
func NewCalibrationLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *CalibrationLock {
	return &CalibrationLock{
		client:    client,
		tableName: tableName,
		ownerID:   uuid.New().String(),
		logger:    logger,
		locks:     make(map[string]string),
	}
}

// Acquire takes the calibration lock for a dimension. A concurrent run
// holding an unexpired lock makes this fail with a conflict; callers are
// expected to give up, not queue.
func (cl *CalibrationLock) Acquire(ctx context.Context, dimension string, ttl time.Duration) error {
	lockID := fmt.Sprintf("%s_%d", cl.ownerID, time.Now().UnixNano())
	now := time.Now()
	expiresAt := now.Add(ttl)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: lockKey(dimension)},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"Owner":      &types.AttributeValueMemberS{Value: cl.ownerID},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(cl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := cl.client.PutItem(ctx, input); err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			cl.logger.Debug("Calibration already running for dimension",
				zap.String("dimension", dimension),
			)
			return pkgerrors.NewConflictError("calibration already running for dimension " + dimension)
		}
		return pkgerrors.NewDatabaseError("acquire calibration lock", err)
	}

	cl.mu.Lock()
	cl.locks[dimension] = lockID
	cl.mu.Unlock()

	cl.logger.Debug("Calibration lock acquired",
		zap.String("dimension", dimension),
		zap.String("lockID", lockID),
		zap.Duration("ttl", ttl),
	)

	return nil
}

// Release frees the lock for a dimension. Only the lock this process
// acquired is deleted; a lock stolen after expiry stays with its new owner.
func (cl *CalibrationLock) Release(ctx context.Context, dimension string) error {
	cl.mu.Lock()
	lockID, held := cl.locks[dimension]
	delete(cl.locks, dimension)
	cl.mu.Unlock()

	if !held {
		return nil
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(cl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: lockKey(dimension)},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId AND #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
			":owner":  &types.AttributeValueMemberS{Value: cl.ownerID},
		},
	}

	if _, err := cl.client.DeleteItem(ctx, input); err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			// The lock expired and someone else took it; nothing to free
			cl.logger.Warn("Calibration lock was already taken over",
				zap.String("dimension", dimension),
				zap.String("lockID", lockID),
			)
			return nil
		}
		return pkgerrors.NewDatabaseError("release calibration lock", err)
	}

	cl.logger.Debug("Calibration lock released",
		zap.String("dimension", dimension),
		zap.String("lockID", lockID),
	)

	return nil
}

func lockKey(dimension string) string {
	return "LOCK#" + dimension
}
