package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatchAPI is the subset of the CloudWatch client used for metrics.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics publishes command metrics to CloudWatch. A nil client turns every
// call into a no-op.
type Metrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger
	now       func() time.Time
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client CloudWatchAPI, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordCommandExecution records duration and count of a command, split by
// success or failure.
func (m *Metrics) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	if m == nil || m.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	dimensions := []types.Dimension{
		{Name: aws.String("CommandName"), Value: aws.String(commandName)},
		{Name: aws.String("Status"), Value: aws.String(status)},
	}
	ts := aws.Time(m.now())

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("CommandExecution"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  ts,
		},
		{
			MetricName: aws.String("CommandCount"),
			Dimensions: dimensions,
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  ts,
		},
	})
}

// RecordTopicActivity counts a topic level business event such as
// "TopicCreated" or "NodeAdded".
func (m *Metrics) RecordTopicActivity(ctx context.Context, activity string) {
	if m == nil || m.client == nil {
		return
	}
	m.put(ctx, []types.MetricDatum{{
		MetricName: aws.String("TopicActivity"),
		Dimensions: []types.Dimension{{Name: aws.String("Activity"), Value: aws.String(activity)}},
		Value:      aws.Float64(1),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(m.now()),
	}})
}

func (m *Metrics) put(ctx context.Context, data []types.MetricDatum) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil && m.logger != nil {
		m.logger.Warn("Failed to send metrics", zap.String("namespace", m.namespace), zap.Error(err))
	}
}
