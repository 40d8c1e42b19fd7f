package telemetry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

const (
	namespaceALB = "AWS/ApplicationELB"
	namespaceECS = "AWS/ECS"
)

type cloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// CloudWatchSource reads request counts from the load balancer target group
// and CPU utilization from the ECS service.
type CloudWatchSource struct {
	client  cloudWatchAPI
	cluster string
	now     func() time.Time
}

type CloudWatchSourceConfig struct {
	AWS     aws.Config
	Cluster string
}

func NewCloudWatchSource(cfg CloudWatchSourceConfig) *CloudWatchSource {
	return newCloudWatchSource(cloudwatch.NewFromConfig(cfg.AWS), cfg.Cluster)
}

func newCloudWatchSource(client cloudWatchAPI, cluster string) *CloudWatchSource {
	return &CloudWatchSource{
		client:  client,
		cluster: cluster,
		now:     time.Now,
	}
}

func (s *CloudWatchSource) Query(ctx context.Context, q Query) ([]models.Datapoint, error) {
	input, err := s.buildInput(q)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetMetricStatistics(ctx, input)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}

	points := make([]models.Datapoint, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		var value float64
		switch q.Statistic {
		case models.StatisticSum:
			value = aws.ToFloat64(dp.Sum)
		default:
			value = aws.ToFloat64(dp.Average)
		}
		points = append(points, models.Datapoint{
			Timestamp: aws.ToTime(dp.Timestamp),
			Value:     value,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	logger.WithService(q.Target.ServiceID).Debugf(
		"CloudWatch returned %d datapoints for %s", len(points), q.Metric,
	)

	return points, nil
}

func (s *CloudWatchSource) buildInput(q Query) (*cloudwatch.GetMetricStatisticsInput, error) {
	end := s.now()
	input := &cloudwatch.GetMetricStatisticsInput{
		MetricName: aws.String(string(q.Metric)),
		StartTime:  aws.Time(end.Add(-q.Window)),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(int32(q.Period.Seconds())),
	}

	switch q.Statistic {
	case models.StatisticSum:
		input.Statistics = []types.Statistic{types.StatisticSum}
	case models.StatisticAverage:
		input.Statistics = []types.Statistic{types.StatisticAverage}
	default:
		return nil, fmt.Errorf("%w: unsupported statistic %q", ErrMetricsUnavailable, q.Statistic)
	}

	switch q.Metric {
	case models.MetricRequestCount:
		if q.Target.TargetGroup == "" {
			return nil, fmt.Errorf("%w: no target group configured for %s", ErrMetricsUnavailable, q.Target.ServiceID)
		}
		input.Namespace = aws.String(namespaceALB)
		input.Dimensions = []types.Dimension{
			{Name: aws.String("TargetGroup"), Value: aws.String(q.Target.TargetGroup)},
		}
	case models.MetricCPUUtilization:
		cluster := q.Target.Cluster
		if cluster == "" {
			cluster = s.cluster
		}
		input.Namespace = aws.String(namespaceECS)
		input.Dimensions = []types.Dimension{
			{Name: aws.String("ClusterName"), Value: aws.String(cluster)},
			{Name: aws.String("ServiceName"), Value: aws.String(q.Target.ServiceID)},
		}
	default:
		return nil, fmt.Errorf("%w: unsupported metric %q", ErrMetricsUnavailable, q.Metric)
	}

	return input, nil
}

// HealthCheck issues a cheap statistics query against the ECS namespace
func (s *CloudWatchSource) HealthCheck(ctx context.Context) error {
	end := s.now()
	_, err := s.client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(namespaceECS),
		MetricName: aws.String(string(models.MetricCPUUtilization)),
		StartTime:  aws.Time(end.Add(-5 * time.Minute)),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(300),
		Statistics: []types.Statistic{types.StatisticAverage},
	})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (s *CloudWatchSource) Close() error {
	return nil
}
