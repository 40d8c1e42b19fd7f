package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

type fakeCloudWatch struct {
	input  *cloudwatch.GetMetricStatisticsInput
	output *cloudwatch.GetMetricStatisticsOutput
	err    error
}

func (f *fakeCloudWatch) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

var cwTarget = models.ServiceTarget{
	ServiceID:   "converter",
	TargetGroup: "targetgroup/converter/0123456789abcdef",
}

func TestCloudWatchSource_RequestCountQuery(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeCloudWatch{output: &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: []types.Datapoint{
			{Timestamp: aws.Time(now.Add(-5 * time.Minute)), Sum: aws.Float64(7)},
			{Timestamp: aws.Time(now.Add(-15 * time.Minute)), Sum: aws.Float64(3)},
		},
	}}
	src := newCloudWatchSource(fake, "prod")
	src.now = func() time.Time { return now }

	points, err := src.Query(context.Background(), Query{
		Target:    cwTarget,
		Metric:    models.MetricRequestCount,
		Window:    15 * time.Minute,
		Period:    5 * time.Minute,
		Statistic: models.StatisticSum,
	})
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, 3.0, points[0].Value, "datapoints sorted ascending")
	assert.Equal(t, 7.0, points[1].Value)

	assert.Equal(t, "AWS/ApplicationELB", aws.ToString(fake.input.Namespace))
	assert.Equal(t, "RequestCount", aws.ToString(fake.input.MetricName))
	assert.Equal(t, int32(300), aws.ToInt32(fake.input.Period))
	assert.Equal(t, now.Add(-15*time.Minute), aws.ToTime(fake.input.StartTime))
	assert.Equal(t, []types.Statistic{types.StatisticSum}, fake.input.Statistics)
	require.Len(t, fake.input.Dimensions, 1)
	assert.Equal(t, "TargetGroup", aws.ToString(fake.input.Dimensions[0].Name))
}

func TestCloudWatchSource_CPUQueryUsesClusterAndService(t *testing.T) {
	fake := &fakeCloudWatch{output: &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: []types.Datapoint{{Timestamp: aws.Time(time.Now()), Average: aws.Float64(12.5)}},
	}}
	src := newCloudWatchSource(fake, "prod")

	points, err := src.Query(context.Background(), Query{
		Target:    cwTarget,
		Metric:    models.MetricCPUUtilization,
		Window:    15 * time.Minute,
		Period:    5 * time.Minute,
		Statistic: models.StatisticAverage,
	})
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.Equal(t, 12.5, points[0].Value)
	assert.Equal(t, "AWS/ECS", aws.ToString(fake.input.Namespace))
	require.Len(t, fake.input.Dimensions, 2)
	assert.Equal(t, "prod", aws.ToString(fake.input.Dimensions[0].Value))
	assert.Equal(t, "converter", aws.ToString(fake.input.Dimensions[1].Value))
}

func TestCloudWatchSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target models.ServiceTarget
		metric models.MetricName
		stat   models.Statistic
		apiErr error
	}{
		{name: "missing target group", target: models.ServiceTarget{ServiceID: "converter"}, metric: models.MetricRequestCount, stat: models.StatisticSum},
		{name: "unsupported statistic", target: cwTarget, metric: models.MetricRequestCount, stat: "Maximum"},
		{name: "api failure", target: cwTarget, metric: models.MetricCPUUtilization, stat: models.StatisticAverage, apiErr: errors.New("throttled")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newCloudWatchSource(&fakeCloudWatch{err: tt.apiErr, output: &cloudwatch.GetMetricStatisticsOutput{}}, "prod")

			_, err := src.Query(context.Background(), Query{
				Target: tt.target, Metric: tt.metric, Window: 15 * time.Minute, Period: 5 * time.Minute, Statistic: tt.stat,
			})

			assert.ErrorIs(t, err, ErrMetricsUnavailable)
		})
	}
}
