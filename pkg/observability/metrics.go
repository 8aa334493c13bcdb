package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metrics handles application metrics and monitoring
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// RecordCommandExecution records metrics for command execution
func (m *Metrics) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	if m.client == nil {
		return // Skip if no client configured
	}

	status := "success"
	if err != nil {
		status = "failure"
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("CommandExecution"),
			Dimensions: []types.Dimension{
				{Name: aws.String("CommandName"), Value: aws.String(commandName)},
				{Name: aws.String("Status"), Value: aws.String(status)},
			},
			Value:     aws.Float64(float64(duration.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("CommandCount"),
			Dimensions: []types.Dimension{
				{Name: aws.String("CommandName"), Value: aws.String(commandName)},
				{Name: aws.String("Status"), Value: aws.String(status)},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

// RecordCalibrationQuality records the quality scores of a completed
// calibration so segment-quality trends can be charted per dimension.
func (m *Metrics) RecordCalibrationQuality(ctx context.Context, dimensionName string, cohesion, balance float64, segmentCount int) {
	if m.client == nil {
		return
	}

	dims := []types.Dimension{
		{Name: aws.String("DimensionName"), Value: aws.String(dimensionName)},
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("CalibrationCohesion"),
			Dimensions: dims,
			Value:      aws.Float64(cohesion),
			Unit:       types.StandardUnitNone,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("CalibrationBalance"),
			Dimensions: dims,
			Value:      aws.Float64(balance),
			Unit:       types.StandardUnitNone,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("SegmentCount"),
			Dimensions: dims,
			Value:      aws.Float64(float64(segmentCount)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

// RecordLatency records latency for any operation
func (m *Metrics) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	if m.client == nil {
		return
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("OperationLatency"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Operation"), Value: aws.String(operation)},
			},
			Value:     aws.Float64(float64(latency.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

// RecordError records error occurrences
func (m *Metrics) RecordError(ctx context.Context, errorType string, operation string) {
	if m.client == nil {
		return
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("ErrorCount"),
			Dimensions: []types.Dimension{
				{Name: aws.String("ErrorType"), Value: aws.String(errorType)},
				{Name: aws.String("Operation"), Value: aws.String(operation)},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

// put sends metric data to CloudWatch; failures are logged, never propagated
func (m *Metrics) put(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		if m.logger != nil {
			m.logger.Warn("Failed to send metrics", zap.Error(err))
		}
	}
}
