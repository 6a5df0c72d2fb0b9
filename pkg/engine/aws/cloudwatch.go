package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/DrSkyle/reaper/pkg/idle"
)

type CloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// CloudWatchClient retrieves metric series for idleness analysis.
type CloudWatchClient struct {
	Client CloudWatchAPI

	// Window is the trailing span of history fetched per call.
	Window time.Duration
	// Period is the aggregation period of each datapoint.
	Period time.Duration
}

func NewCloudWatchClient(cfg aws.Config, window, period time.Duration) *CloudWatchClient {
	return &CloudWatchClient{
		Client: cloudwatch.NewFromConfig(cfg),
		Window: window,
		Period: period,
	}
}

// InstanceSeries fetches per-period averages of one AWS/EC2 metric for one
// instance over the trailing window. An empty slice means CloudWatch has no
// data for the metric; callers map that to an Unknown idle result.
func (c *CloudWatchClient) InstanceSeries(ctx context.Context, instanceID, metricName string, unit types.StandardUnit) ([]idle.Sample, error) {
	endTime := time.Now().UTC()
	startTime := endTime.Add(-c.Window)

	input := &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/EC2"),
		MetricName: aws.String(metricName),
		Dimensions: []types.Dimension{
			{Name: aws.String("InstanceId"), Value: aws.String(instanceID)},
		},
		StartTime:  aws.Time(startTime),
		EndTime:    aws.Time(endTime),
		Period:     aws.Int32(int32(c.Period.Seconds())),
		Statistics: []types.Statistic{types.StatisticAverage},
		Unit:       unit,
	}

	result, err := c.Client.GetMetricStatistics(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get metric statistics for %s: %w", metricName, err)
	}

	samples := make([]idle.Sample, 0, len(result.Datapoints))
	for _, dp := range result.Datapoints {
		if dp.Average == nil || dp.Timestamp == nil {
			continue
		}
		samples = append(samples, idle.Sample{Timestamp: *dp.Timestamp, Value: *dp.Average})
	}

	// CloudWatch returns datapoints in random order; sort by timestamp.
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	return samples, nil
}
