package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// Stopper executes stop actions decided by the evaluator.
type Stopper struct {
	Client EC2Client
}

func NewStopper(cfg aws.Config) *Stopper {
	return &Stopper{Client: ec2.NewFromConfig(cfg)}
}

// StopInstance stops a single instance. Accepts a bare ID or a full ARN.
func (s *Stopper) StopInstance(ctx context.Context, id string) error {
	if strings.HasPrefix(id, "arn:") {
		parts := strings.Split(id, "/")
		id = parts[len(parts)-1]
	}

	_, err := s.Client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return fmt.Errorf("failed to stop instance %s: %w", id, err)
	}
	return nil
}
