package dynamodb

import (
	"context"
	"fmt"
	"time"

	"dnacore/application/ports"
	"dnacore/domain/config"
	"dnacore/domain/core/entities"
	"dnacore/domain/core/valueobjects"
	pkgerrors "dnacore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DimensionRepository implements ports.DimensionRepository using DynamoDB.
//
// Storage layout (single table):
//
//	PK=DIMENSION#<name>  SK=VERSION#<version>  (one immutable item per version)
//	PK=DIMENSION#<name>  SK=CURRENT            (pointer to the published version)
//
// The pointer items carry GSI1PK=DIMENSION#CURRENT so ListCurrent is a single
// GSI query instead of a scan. Version items are write-once: SaveVersion
// refuses to overwrite, and Publish only repoints.
type DimensionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewDimensionRepository creates a new DynamoDB dimension repository
func NewDimensionRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.DimensionRepository {
	return &DimensionRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// dimensionRecord represents a dimension version item in DynamoDB
type dimensionRecord struct {
	PK           string                  `dynamodbav:"PK"`
	SK           string                  `dynamodbav:"SK"`
	Name         string                  `dynamodbav:"Name"`
	Version      string                  `dynamodbav:"Version"`
	Segments     []segmentRecord         `dynamodbav:"Segments"`
	Scaler       entities.ScalerParams   `dynamodbav:"Scaler"`
	Quality      qualityRecord           `dynamodbav:"Quality"`
	Population   int                     `dynamodbav:"Population"`
	CalibratedAt string                  `dynamodbav:"CalibratedAt"` // RFC3339 timestamp
	Params       *config.AnalyticsConfig `dynamodbav:"Params"`
}

// segmentRecord represents one segment of a version item
type segmentRecord struct {
	ID              string    `dynamodbav:"ID"`
	Center          []float64 `dynamodbav:"Center"`
	Variance        float64   `dynamodbav:"Variance"`
	MaxDistance     float64   `dynamodbav:"MaxDistance"`
	MemberCount     int       `dynamodbav:"MemberCount"`
	PopulationShare float64   `dynamodbav:"PopulationShare"`
	ParentID        string    `dynamodbav:"ParentID,omitempty"`
	Depth           int       `dynamodbav:"Depth"`
}

// qualityRecord represents the calibration diagnostics of a version item
type qualityRecord struct {
	Cohesion      float64  `dynamodbav:"Cohesion"`
	Balance       float64  `dynamodbav:"Balance"`
	CombinedScore float64  `dynamodbav:"CombinedScore"`
	SoftConverged bool     `dynamodbav:"SoftConverged"`
	Warnings      []string `dynamodbav:"Warnings,omitempty"`
}

// currentPointerRecord represents the published-version pointer item
type currentPointerRecord struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"` // DIMENSION#CURRENT
	GSI1SK      string `dynamodbav:"GSI1SK"` // <dimension name>
	Name        string `dynamodbav:"Name"`
	Version     string `dynamodbav:"Version"`
	PublishedAt string `dynamodbav:"PublishedAt"` // RFC3339 timestamp
}

const (
	currentSortKey  = "CURRENT"
	currentIndexKey = "DIMENSION#CURRENT"
)

// SaveVersion persists a new immutable dimension version without publishing it
func (r *DimensionRepository) SaveVersion(ctx context.Context, dimension *entities.Dimension) error {
	if dimension == nil {
		return pkgerrors.NewValidationError("dimension cannot be nil")
	}

	record := r.dimensionToRecord(dimension)
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal dimension version", err)
	}

	// Versions are write-once. A duplicate version ID means something is
	// generating non-unique versions, which must surface, not overwrite.
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return pkgerrors.NewConflictError(
				fmt.Sprintf("dimension version %s already exists for %s",
					dimension.Version().String(), dimension.Name()))
		}
		return pkgerrors.NewDatabaseError("save dimension version", err)
	}

	r.logger.Info("Dimension version saved",
		zap.String("dimension", dimension.Name()),
		zap.String("version", dimension.Version().String()),
		zap.Int("segments", len(dimension.Segments())),
		zap.Int("population", dimension.Population()))

	return nil
}

// Publish atomically repoints the current pointer to the given version.
// The transaction condition-checks that the version item exists, so a
// pointer can never reference a version that was not saved.
func (r *DimensionRepository) Publish(ctx context.Context, name string, version valueobjects.DimensionVersion) error {
	if name == "" {
		return pkgerrors.NewValidationError("dimension name cannot be empty")
	}
	if version.IsZero() {
		return pkgerrors.NewValidationError("dimension version cannot be empty")
	}

	pointer := currentPointerRecord{
		PK:          dimensionPartitionKey(name),
		SK:          currentSortKey,
		GSI1PK:      currentIndexKey,
		GSI1SK:      name,
		Name:        name,
		Version:     version.String(),
		PublishedAt: time.Now().Format(time.RFC3339),
	}

	pointerItem, err := attributevalue.MarshalMap(pointer)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal current pointer", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				ConditionCheck: &types.ConditionCheck{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: dimensionPartitionKey(name)},
						"SK": &types.AttributeValueMemberS{Value: versionSortKey(version.String())},
					},
					ConditionExpression: aws.String("attribute_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(r.tableName),
					Item:      pointerItem,
				},
			},
		},
	})
	if err != nil {
		if isTransactionConditionFailed(err) {
			return pkgerrors.NewNotFoundError("dimension version")
		}
		return pkgerrors.NewDatabaseError("publish dimension version", err)
	}

	r.logger.Info("Dimension version published",
		zap.String("dimension", name),
		zap.String("version", version.String()))

	return nil
}

// GetCurrent retrieves the current published version of a dimension
func (r *DimensionRepository) GetCurrent(ctx context.Context, name string) (*entities.Dimension, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: dimensionPartitionKey(name)},
			"SK": &types.AttributeValueMemberS{Value: currentSortKey},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get current pointer", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("dimension")
	}

	var pointer currentPointerRecord
	if err := attributevalue.UnmarshalMap(result.Item, &pointer); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal current pointer", err)
	}

	version, err := valueobjects.NewDimensionVersionFromString(pointer.Version)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "current pointer holds an invalid version")
	}

	return r.GetVersion(ctx, name, version)
}

// GetVersion retrieves one specific dimension version
func (r *DimensionRepository) GetVersion(ctx context.Context, name string, version valueobjects.DimensionVersion) (*entities.Dimension, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: dimensionPartitionKey(name)},
			"SK": &types.AttributeValueMemberS{Value: versionSortKey(version.String())},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get dimension version", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("dimension version")
	}

	var record dimensionRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal dimension version", err)
	}

	return r.recordToDimension(&record)
}

// ListCurrent retrieves the current version of every published dimension
func (r *DimensionRepository) ListCurrent(ctx context.Context) ([]*entities.Dimension, error) {
	keyEx := expression.Key("GSI1PK").Equal(expression.Value(currentIndexKey))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("build list query", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("GSI1"),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var dimensions []*entities.Dimension

	// Handle pagination
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("list current dimensions", err)
		}

		for _, item := range result.Items {
			var pointer currentPointerRecord
			if err := attributevalue.UnmarshalMap(item, &pointer); err != nil {
				return nil, pkgerrors.NewDatabaseError("unmarshal current pointer", err)
			}

			version, err := valueobjects.NewDimensionVersionFromString(pointer.Version)
			if err != nil {
				return nil, pkgerrors.Wrap(err, "current pointer holds an invalid version")
			}

			dimension, err := r.GetVersion(ctx, pointer.Name, version)
			if err != nil {
				// A pointer can briefly outlive a TTL-reaped version item;
				// that dimension is unusable until recalibrated, not fatal.
				if pkgerrors.IsNotFound(err) {
					r.logger.Warn("Current pointer references a missing version",
						zap.String("dimension", pointer.Name),
						zap.String("version", pointer.Version))
					continue
				}
				return nil, err
			}

			dimensions = append(dimensions, dimension)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return dimensions, nil
}

// dimensionToRecord converts a dimension entity to its DynamoDB record
func (r *DimensionRepository) dimensionToRecord(dimension *entities.Dimension) *dimensionRecord {
	segments := dimension.Segments()
	segmentRecords := make([]segmentRecord, 0, len(segments))
	for _, segment := range segments {
		rec := segmentRecord{
			ID:              segment.ID().String(),
			Center:          segment.Center().Values(),
			Variance:        segment.Variance(),
			MaxDistance:     segment.MaxDistance(),
			MemberCount:     segment.MemberCount(),
			PopulationShare: segment.PopulationShare(),
			Depth:           segment.Depth(),
		}
		if parentID := segment.ParentID(); parentID != nil {
			rec.ParentID = parentID.String()
		}
		segmentRecords = append(segmentRecords, rec)
	}

	quality := dimension.Quality()

	return &dimensionRecord{
		PK:       dimensionPartitionKey(dimension.Name()),
		SK:       versionSortKey(dimension.Version().String()),
		Name:     dimension.Name(),
		Version:  dimension.Version().String(),
		Segments: segmentRecords,
		Scaler:   dimension.Scaler(),
		Quality: qualityRecord{
			Cohesion:      quality.Cohesion,
			Balance:       quality.Balance,
			CombinedScore: quality.CombinedScore,
			SoftConverged: quality.SoftConverged,
			Warnings:      quality.Warnings,
		},
		Population:   dimension.Population(),
		CalibratedAt: dimension.CalibratedAt().Format(time.RFC3339),
		Params:       dimension.Params(),
	}
}

// recordToDimension converts a DynamoDB record back to a dimension entity
func (r *DimensionRepository) recordToDimension(record *dimensionRecord) (*entities.Dimension, error) {
	version, err := valueobjects.NewDimensionVersionFromString(record.Version)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored dimension has an invalid version")
	}

	segments := make([]*entities.Segment, 0, len(record.Segments))
	for _, rec := range record.Segments {
		segment, err := r.recordToSegment(rec)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}

	calibratedAt, err := time.Parse(time.RFC3339, record.CalibratedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored dimension has an invalid calibration timestamp")
	}

	return entities.ReconstructDimension(
		record.Name,
		version,
		segments,
		record.Scaler,
		entities.CalibrationQuality{
			Cohesion:      record.Quality.Cohesion,
			Balance:       record.Quality.Balance,
			CombinedScore: record.Quality.CombinedScore,
			SoftConverged: record.Quality.SoftConverged,
			Warnings:      record.Quality.Warnings,
		},
		record.Population,
		calibratedAt,
		record.Params,
	)
}

func (r *DimensionRepository) recordToSegment(rec segmentRecord) (*entities.Segment, error) {
	id, err := valueobjects.NewSegmentIDFromString(rec.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored segment has an invalid ID")
	}

	center, err := valueobjects.NewFeatureVector(rec.Center)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stored segment has an invalid center")
	}

	var parentID *valueobjects.SegmentID
	if rec.ParentID != "" {
		parsed, err := valueobjects.NewSegmentIDFromString(rec.ParentID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "stored segment has an invalid parent ID")
		}
		parentID = &parsed
	}

	return entities.ReconstructSegment(
		id,
		center,
		rec.Variance,
		rec.MaxDistance,
		rec.MemberCount,
		rec.PopulationShare,
		parentID,
		rec.Depth,
	)
}

func dimensionPartitionKey(name string) string {
	return fmt.Sprintf("DIMENSION#%s", name)
}

func versionSortKey(version string) string {
	return fmt.Sprintf("VERSION#%s", version)
}
