package dynamodb

import (
	"context"
	"fmt"
	"time"

	"dnacore/application/ports"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// SnapshotStore implements ports.SnapshotStore using DynamoDB.
//
// Storage layout (single table):
//
//	PK=ENTITY#<entity_id>  SK=SNAPSHOT#<captured_at>#<snapshot_id>
//
// The store is append-only: items are never updated, so Range queries read a
// stable history. The sort key orders snapshots chronologically, and a
// trailing snapshot ID keeps duplicate captures at the same instant from
// colliding. Retention is enforced by the table's TTL on the ExpireTTL
// attribute, derived from each snapshot's retention class.
type SnapshotStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSnapshotStore creates a new DynamoDB snapshot store
func NewSnapshotStore(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.SnapshotStore {
	return &SnapshotStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// snapshotItem represents how snapshots are stored in DynamoDB
type snapshotItem struct {
	PK           string                    `dynamodbav:"PK"` // ENTITY#<entity_id>
	SK           string                    `dynamodbav:"SK"` // SNAPSHOT#<captured_at>#<snapshot_id>
	SnapshotID   string                    `dynamodbav:"SnapshotID"`
	EntityID     string                    `dynamodbav:"EntityID"`
	CapturedAt   string                    `dynamodbav:"CapturedAt"` // fixed-width UTC timestamp
	Retention    string                    `dynamodbav:"Retention"`
	ExpiresAt    string                    `dynamodbav:"ExpiresAt"` // RFC3339 timestamp
	Confidence   float64                   `dynamodbav:"Confidence"`
	Observations int                       `dynamodbav:"Observations"`
	Memberships  map[string]membershipItem `dynamodbav:"Memberships"`
	RiskScore    *float64                  `dynamodbav:"RiskScore,omitempty"`
	ValueScore   *float64                  `dynamodbav:"ValueScore,omitempty"`
	ExpireTTL    int64                     `dynamodbav:"ExpireTTL,omitempty"` // Unix timestamp for DynamoDB TTL
}

// membershipItem represents one dimension's membership state within a snapshot
type membershipItem struct {
	Version     string             `dynamodbav:"Version"`
	Memberships map[string]float64 `dynamodbav:"Memberships"`
}

// Append persists a new snapshot. Appends are unconditional puts: the sort
// key includes the snapshot ID, so a retried capture lands as its own item
// instead of overwriting anything.
func (s *SnapshotStore) Append(ctx context.Context, snapshot *ports.SnapshotRecord) error {
	if snapshot == nil {
		return pkgerrors.NewValidationError("snapshot cannot be nil")
	}
	if snapshot.EntityID == "" {
		return pkgerrors.NewValidationError("snapshot entity ID cannot be empty")
	}

	item, err := attributevalue.MarshalMap(s.recordToItem(snapshot))
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal snapshot", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("append snapshot", err)
	}

	s.logger.Debug("Snapshot appended",
		zap.String("entityID", snapshot.EntityID),
		zap.String("snapshotID", snapshot.ID),
		zap.String("retention", snapshot.Retention),
		zap.Time("capturedAt", snapshot.CapturedAt))

	return nil
}

// Latest retrieves the most recent snapshot for an entity
func (s *SnapshotStore) Latest(ctx context.Context, entityID valueobjects.EntityID) (*ports.SnapshotRecord, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: entityPartitionKey(entityID.String())},
			":prefix": &types.AttributeValueMemberS{Value: "SNAPSHOT#"},
		},
		ScanIndexForward: aws.Bool(false), // newest first
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query latest snapshot", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("snapshot")
	}

	var item snapshotItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal snapshot", err)
	}

	return s.itemToRecord(&item)
}

// Range retrieves the entity's snapshots captured within [from, to],
// oldest first
func (s *SnapshotStore) Range(ctx context.Context, entityID valueobjects.EntityID, from, to time.Time) ([]*ports.SnapshotRecord, error) {
	if to.Before(from) {
		return nil, pkgerrors.NewValidationError("range end cannot precede range start")
	}

	// The sort key embeds fixed-width timestamps, so lexicographic BETWEEN
	// is chronological. The upper bound gets a high suffix to keep the
	// boundary capture (and its ID suffix) inside the window.
	keyEx := expression.Key("PK").Equal(expression.Value(entityPartitionKey(entityID.String()))).
		And(expression.Key("SK").Between(
			expression.Value("SNAPSHOT#"+from.UTC().Format(sortKeyTimeFormat)),
			expression.Value("SNAPSHOT#"+to.UTC().Format(sortKeyTimeFormat)+"#~")))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("build range query", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	}

	var records []*ports.SnapshotRecord

	// Handle pagination
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query snapshot range", err)
		}

		for _, raw := range result.Items {
			var item snapshotItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, pkgerrors.NewDatabaseError("unmarshal snapshot", err)
			}

			record, err := s.itemToRecord(&item)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return records, nil
}

// recordToItem converts a snapshot record to its DynamoDB item
func (s *SnapshotStore) recordToItem(record *ports.SnapshotRecord) *snapshotItem {
	memberships := make(map[string]membershipItem, len(record.Memberships))
	for dimension, membership := range record.Memberships {
		memberships[dimension] = membershipItem{
			Version:     membership.Version,
			Memberships: membership.Memberships,
		}
	}

	item := &snapshotItem{
		PK:           entityPartitionKey(record.EntityID),
		SK:           snapshotSortKey(record.CapturedAt, record.ID),
		SnapshotID:   record.ID,
		EntityID:     record.EntityID,
		CapturedAt:   record.CapturedAt.UTC().Format(sortKeyTimeFormat),
		Retention:    record.Retention,
		ExpiresAt:    record.ExpiresAt.Format(time.RFC3339),
		Confidence:   record.Confidence,
		Observations: record.Observations,
		Memberships:  memberships,
		RiskScore:    record.RiskScore,
		ValueScore:   record.ValueScore,
	}
	if !record.ExpiresAt.IsZero() {
		item.ExpireTTL = record.ExpiresAt.Unix()
	}
	return item
}

// itemToRecord converts a DynamoDB item back to a snapshot record
func (s *SnapshotStore) itemToRecord(item *snapshotItem) (*ports.SnapshotRecord, error) {
	capturedAt, err := time.Parse(time.RFC3339Nano, item.CapturedAt) // accepts the fixed-width form too
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored snapshot has an invalid capture timestamp")
	}

	expiresAt, err := time.Parse(time.RFC3339, item.ExpiresAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored snapshot has an invalid expiry timestamp")
	}

	memberships := make(map[string]ports.MembershipRecord, len(item.Memberships))
	for dimension, membership := range item.Memberships {
		memberships[dimension] = ports.MembershipRecord{
			Version:     membership.Version,
			Memberships: membership.Memberships,
		}
	}

	return &ports.SnapshotRecord{
		ID:           item.SnapshotID,
		EntityID:     item.EntityID,
		CapturedAt:   capturedAt,
		Retention:    item.Retention,
		ExpiresAt:    expiresAt,
		Confidence:   item.Confidence,
		Observations: item.Observations,
		Memberships:  memberships,
		RiskScore:    item.RiskScore,
		ValueScore:   item.ValueScore,
	}, nil
}

func entityPartitionKey(entityID string) string {
	return fmt.Sprintf("ENTITY#%s", entityID)
}

// sortKeyTimeFormat is a fixed-width UTC timestamp. RFC3339Nano trims
// trailing zeros, which breaks the lexicographic-equals-chronological
// property the sort key depends on; every digit here is always present.
const sortKeyTimeFormat = "2006-01-02T15:04:05.000000000Z"

func snapshotSortKey(capturedAt time.Time, snapshotID string) string {
	return fmt.Sprintf("SNAPSHOT#%s#%s", capturedAt.UTC().Format(sortKeyTimeFormat), snapshotID)
}
