package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatchAPI is the subset of the CloudWatch client used here.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics pushes detection metrics to CloudWatch. Failures are
// logged and never reach the caller.
type CloudWatchMetrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger
}

// NewCloudWatchMetrics creates a new metrics sink
func NewCloudWatchMetrics(namespace string, client CloudWatchAPI, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{namespace: namespace, client: client, logger: logger}
}

// RecordDetection implements ports.DetectionMetrics
func (m *CloudWatchMetrics) RecordDetection(ctx context.Context, compared, linked, removed int, took time.Duration, err error) {
	now := aws.Time(time.Now())
	dims := []types.Dimension{{Name: aws.String("Outcome"), Value: aws.String(outcome(err))}}

	data := []types.MetricDatum{
		{MetricName: aws.String("DetectionLatency"), Dimensions: dims, Value: aws.Float64(float64(took.Milliseconds())), Unit: types.StandardUnitMilliseconds, Timestamp: now},
		{MetricName: aws.String("DetectionCount"), Dimensions: dims, Value: aws.Float64(1), Unit: types.StandardUnitCount, Timestamp: now},
		{MetricName: aws.String("EntriesCompared"), Value: aws.Float64(float64(compared)), Unit: types.StandardUnitCount, Timestamp: now},
		{MetricName: aws.String("EdgesLinked"), Value: aws.Float64(float64(linked)), Unit: types.StandardUnitCount, Timestamp: now},
		{MetricName: aws.String("EdgesRemoved"), Value: aws.Float64(float64(removed)), Unit: types.StandardUnitCount, Timestamp: now},
	}

	// the detection context may already be past its deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if _, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}); err != nil {
		m.logger.Warn("Failed to send metrics", zap.Error(err))
	}
}

// MultiMetrics fans detection metrics out to several sinks
type MultiMetrics []interface {
	RecordDetection(ctx context.Context, compared, linked, removed int, took time.Duration, err error)
}

// RecordDetection implements ports.DetectionMetrics
func (mm MultiMetrics) RecordDetection(ctx context.Context, compared, linked, removed int, took time.Duration, err error) {
	for _, m := range mm {
		m.RecordDetection(ctx, compared, linked, removed, took, err)
	}
}
