package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// MockEC2Client implements EC2Client for testing.
type MockEC2Client struct {
	DescribeInstancesFunc func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumesFunc   func(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	StopInstancesFunc     func(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

func (m *MockEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if m.DescribeInstancesFunc != nil {
		return m.DescribeInstancesFunc(ctx, params, optFns...)
	}
	return &ec2.DescribeInstancesOutput{}, nil
}

func (m *MockEC2Client) DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
	if m.DescribeVolumesFunc != nil {
		return m.DescribeVolumesFunc(ctx, params, optFns...)
	}
	return &ec2.DescribeVolumesOutput{}, nil
}

func (m *MockEC2Client) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	if m.StopInstancesFunc != nil {
		return m.StopInstancesFunc(ctx, params, optFns...)
	}
	return &ec2.StopInstancesOutput{}, nil
}

func runningInstance(id, name string) types.Instance {
	inst := types.Instance{
		InstanceId:   aws.String(id),
		InstanceType: types.InstanceTypeM5Large,
		State: &types.InstanceState{
			Name: types.InstanceStateNameRunning,
			Code: aws.Int32(16),
		},
	}
	if name != "" {
		inst.Tags = []types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}}
	}
	return inst
}

func TestListInstances_DrainsPagination(t *testing.T) {
	mock := &MockEC2Client{
		DescribeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			if params.NextToken == nil {
				return &ec2.DescribeInstancesOutput{
					Reservations: []types.Reservation{
						{Instances: []types.Instance{runningInstance("i-aaa", "web-1")}},
					},
					NextToken: aws.String("page-2"),
				}, nil
			}
			return &ec2.DescribeInstancesOutput{
				Reservations: []types.Reservation{
					{Instances: []types.Instance{runningInstance("i-bbb", "")}},
				},
			}, nil
		},
	}

	lister := &Lister{Client: mock}
	instances, err := lister.ListInstances(context.Background())
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}

	if len(instances) != 2 {
		t.Fatalf("Expected 2 instances across pages, got %d", len(instances))
	}
	if instances[0].ID != "i-aaa" || instances[1].ID != "i-bbb" {
		t.Errorf("Unexpected IDs: %s, %s", instances[0].ID, instances[1].ID)
	}
	if instances[0].Name() != "web-1" {
		t.Errorf("Expected Name tag 'web-1', got %q", instances[0].Name())
	}
	if instances[1].Name() != NoName {
		t.Errorf("Expected %q sentinel for untagged instance, got %q", NoName, instances[1].Name())
	}
	if !instances[0].IsRunning() {
		t.Error("Expected state code 16 to report running")
	}
}

func TestListInstances_ListingFailureIsFatal(t *testing.T) {
	mock := &MockEC2Client{
		DescribeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	lister := &Lister{Client: mock}
	if _, err := lister.ListInstances(context.Background()); err == nil {
		t.Fatal("Expected listing error to propagate")
	}
}

func TestListVolumes_FiltersAndStates(t *testing.T) {
	var gotFilters []types.Filter
	mock := &MockEC2Client{
		DescribeVolumesFunc: func(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
			gotFilters = params.Filters
			return &ec2.DescribeVolumesOutput{
				Volumes: []types.Volume{
					{
						VolumeId: aws.String("vol-zombie"),
						State:    types.VolumeStateAvailable,
						Size:     aws.Int32(50),
					},
					{
						VolumeId: aws.String("vol-busy"),
						State:    types.VolumeStateInUse,
						Size:     aws.Int32(500),
						Tags:     []types.Tag{{Key: aws.String("Name"), Value: aws.String("data-primary")}},
					},
				},
			}, nil
		},
	}

	lister := &Lister{Client: mock}
	volumes, err := lister.ListVolumes(context.Background())
	if err != nil {
		t.Fatalf("ListVolumes failed: %v", err)
	}

	if len(gotFilters) != 1 || *gotFilters[0].Name != "status" {
		t.Fatalf("Expected a status filter, got %+v", gotFilters)
	}

	if len(volumes) != 2 {
		t.Fatalf("Expected 2 volumes, got %d", len(volumes))
	}
	if !volumes[0].Available() {
		t.Error("Expected vol-zombie to be available")
	}
	if volumes[0].Name() != NoName {
		t.Errorf("Expected %q for untagged volume, got %q", NoName, volumes[0].Name())
	}
	if volumes[1].Name() != "data-primary" {
		t.Errorf("Expected Name tag, got %q", volumes[1].Name())
	}
	if volumes[1].SizeGB != 500 {
		t.Errorf("Expected 500 GB, got %d", volumes[1].SizeGB)
	}
}

func TestStopInstance_AcceptsARN(t *testing.T) {
	var gotIDs []string
	mock := &MockEC2Client{
		StopInstancesFunc: func(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
			gotIDs = params.InstanceIds
			return &ec2.StopInstancesOutput{}, nil
		},
	}

	stopper := &Stopper{Client: mock}
	if err := stopper.StopInstance(context.Background(), "arn:aws:ec2:region:account:instance/i-ccc"); err != nil {
		t.Fatalf("StopInstance failed: %v", err)
	}
	if len(gotIDs) != 1 || gotIDs[0] != "i-ccc" {
		t.Errorf("Expected bare ID i-ccc, got %v", gotIDs)
	}
}
