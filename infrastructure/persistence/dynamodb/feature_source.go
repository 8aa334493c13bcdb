package dynamodb

import (
	"context"
	"fmt"
	"math"

	"dnacore/application/ports"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// FeatureSource implements ports.FeatureSource over the feature table that
// the upstream observation pipeline writes into.
//
// Storage layout (single table):
//
//	PK=FEATURES#<dimension>  SK=ENTITY#<entity_id>  (one feature row)
//	PK=OBSERVATIONS          SK=ENTITY#<entity_id>  (raw observation count)
//
// Feature values may be absent for an entity; absent slots are stored as
// NULL attributes and surface as NaN, which the feature preparer imputes.
type FeatureSource struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewFeatureSource creates a new DynamoDB feature source
func NewFeatureSource(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.FeatureSource {
	return &FeatureSource{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// featureItem represents one entity's feature row for a dimension
type featureItem struct {
	PK       string     `dynamodbav:"PK"`
	SK       string     `dynamodbav:"SK"`
	EntityID string     `dynamodbav:"EntityID"`
	Features []*float64 `dynamodbav:"Features"` // nil slots mean missing values
}

// observationItem represents an entity's raw observation count
type observationItem struct {
	PK    string `dynamodbav:"PK"`
	SK    string `dynamodbav:"SK"`
	Count int    `dynamodbav:"Count"`
}

// PopulationMatrix retrieves the raw feature matrix for a dimension across
// the whole population, rows aligned with the returned entity IDs
func (s *FeatureSource) PopulationMatrix(ctx context.Context, dimension string) ([]string, [][]float64, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: featurePartitionKey(dimension)},
		},
		ScanIndexForward: aws.Bool(true), // entity ID order, reproducible runs
	}

	var entityIDs []string
	var matrix [][]float64

	// Handle pagination
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, nil, pkgerrors.NewDatabaseError("query population features", err)
		}

		for _, raw := range result.Items {
			var item featureItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, nil, pkgerrors.NewDatabaseError("unmarshal feature row", err)
			}

			entityIDs = append(entityIDs, item.EntityID)
			matrix = append(matrix, rowFromItem(item.Features))
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	if len(entityIDs) == 0 {
		return nil, nil, pkgerrors.NewNotFoundError("dimension features")
	}

	s.logger.Debug("Population features loaded",
		zap.String("dimension", dimension),
		zap.Int("entities", len(entityIDs)))

	return entityIDs, matrix, nil
}

// EntityFeatures retrieves one entity's raw feature row for a dimension
func (s *FeatureSource) EntityFeatures(ctx context.Context, dimension string, entityID valueobjects.EntityID) ([]float64, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: featurePartitionKey(dimension)},
			"SK": &types.AttributeValueMemberS{Value: featureSortKey(entityID.String())},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get entity features", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("entity features")
	}

	var item featureItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal feature row", err)
	}

	return rowFromItem(item.Features), nil
}

// ObservationCount retrieves how many raw observations back the entity's
// features. An entity without a count item has zero observations.
func (s *FeatureSource) ObservationCount(ctx context.Context, entityID valueobjects.EntityID) (int, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "OBSERVATIONS"},
			"SK": &types.AttributeValueMemberS{Value: featureSortKey(entityID.String())},
		},
	})
	if err != nil {
		return 0, pkgerrors.NewDatabaseError("get observation count", err)
	}
	if result.Item == nil {
		return 0, nil
	}

	var item observationItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return 0, pkgerrors.NewDatabaseError("unmarshal observation count", err)
	}

	return item.Count, nil
}

// rowFromItem converts stored feature slots to a raw row, nil slots to NaN
func rowFromItem(slots []*float64) []float64 {
	row := make([]float64, len(slots))
	for i, slot := range slots {
		if slot == nil {
			row[i] = math.NaN()
			continue
		}
		row[i] = *slot
	}
	return row
}

func featurePartitionKey(dimension string) string {
	return fmt.Sprintf("FEATURES#%s", dimension)
}

func featureSortKey(entityID string) string {
	return fmt.Sprintf("ENTITY#%s", entityID)
}
