package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// NoName is reported when a resource carries no Name tag.
const NoName = "<No Name>"

// runningStateCode is the EC2 state code for a running instance.
const runningStateCode = 16

type EC2Client interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

// InstanceSummary is an immutable snapshot of one instance, taken at listing
// time and held for the duration of the pass.
type InstanceSummary struct {
	ID         string
	Type       string
	State      string
	StateCode  int32
	LaunchTime time.Time
	Tags       map[string]string
}

// Name returns the Name tag, or the NoName sentinel.
func (i InstanceSummary) Name() string {
	if n, ok := i.Tags["Name"]; ok {
		return n
	}
	return NoName
}

// IsRunning reports whether the instance is in the running state.
func (i InstanceSummary) IsRunning() bool { return i.StateCode == runningStateCode }

// VolumeSummary is an immutable snapshot of one EBS volume.
type VolumeSummary struct {
	ID         string
	State      string
	Type       string
	SizeGB     int32
	CreateTime time.Time
	Tags       map[string]string
}

// Name returns the Name tag, or the NoName sentinel.
func (v VolumeSummary) Name() string {
	if n, ok := v.Tags["Name"]; ok {
		return n
	}
	return NoName
}

// Available reports whether the volume is unattached.
func (v VolumeSummary) Available() bool { return v.State == string(types.VolumeStateAvailable) }

// Lister enumerates instances and volumes, draining pagination fully.
type Lister struct {
	Client EC2Client
}

func NewLister(cfg aws.Config) *Lister {
	return &Lister{Client: ec2.NewFromConfig(cfg)}
}

// ListInstances returns every instance in the region.
func (l *Lister) ListInstances(ctx context.Context) ([]InstanceSummary, error) {
	var out []InstanceSummary

	paginator := ec2.NewDescribeInstancesPaginator(l.Client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}

		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				summary := InstanceSummary{
					ID:   aws.ToString(inst.InstanceId),
					Type: string(inst.InstanceType),
					Tags: parseTags(inst.Tags),
				}
				if inst.State != nil {
					summary.State = string(inst.State.Name)
					summary.StateCode = aws.ToInt32(inst.State.Code)
				}
				if inst.LaunchTime != nil {
					summary.LaunchTime = *inst.LaunchTime
				}
				out = append(out, summary)
			}
		}
	}

	return out, nil
}

// ListVolumes returns every in-use or available volume in the region.
func (l *Lister) ListVolumes(ctx context.Context) ([]VolumeSummary, error) {
	var out []VolumeSummary

	input := &ec2.DescribeVolumesInput{
		Filters: []types.Filter{
			{
				Name:   aws.String("status"),
				Values: []string{"in-use", "available"},
			},
		},
	}
	paginator := ec2.NewDescribeVolumesPaginator(l.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes: %w", err)
		}

		for _, vol := range page.Volumes {
			summary := VolumeSummary{
				ID:     aws.ToString(vol.VolumeId),
				State:  string(vol.State),
				Type:   string(vol.VolumeType),
				SizeGB: aws.ToInt32(vol.Size),
				Tags:   parseTags(vol.Tags),
			}
			if vol.CreateTime != nil {
				summary.CreateTime = *vol.CreateTime
			}
			out = append(out, summary)
		}
	}

	return out, nil
}

func parseTags(tags []types.Tag) map[string]string {
	out := make(map[string]string)
	for _, t := range tags {
		if t.Key != nil && t.Value != nil {
			out[*t.Key] = *t.Value
		}
	}
	return out
}
