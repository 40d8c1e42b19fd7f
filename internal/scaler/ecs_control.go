package scaler

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

type ecsAPI interface {
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
}

// ECSControl drives the desired count of ECS services in one cluster
type ECSControl struct {
	client  ecsAPI
	cluster string
}

type ECSControlConfig struct {
	AWS     aws.Config
	Cluster string
}

func NewECSControl(cfg ECSControlConfig) *ECSControl {
	return &ECSControl{
		client:  ecs.NewFromConfig(cfg.AWS),
		cluster: cfg.Cluster,
	}
}

func (c *ECSControl) GetServiceState(ctx context.Context, serviceID string) (*models.ServiceState, error) {
	out, err := c.client.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(c.cluster),
		Services: []string{serviceID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe service %s: %w", serviceID, err)
	}

	if len(out.Services) == 0 {
		if len(out.Failures) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, aws.ToString(out.Failures[0].Reason))
		}
		return nil, ErrServiceNotFound
	}

	svc := out.Services[0]
	state := &models.ServiceState{
		ServiceID:    serviceID,
		DesiredCount: int(svc.DesiredCount),
		RunningCount: int(svc.RunningCount),
		PendingCount: int(svc.PendingCount),
		LastModified: aws.ToTime(svc.CreatedAt),
	}
	for _, d := range svc.Deployments {
		if updated := aws.ToTime(d.UpdatedAt); updated.After(state.LastModified) {
			state.LastModified = updated
		}
	}
	return state, nil
}

func (c *ECSControl) SetDesiredCount(ctx context.Context, serviceID string, count int) error {
	if count < 0 {
		return ErrInvalidTarget
	}

	start := time.Now()
	_, err := c.client.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(c.cluster),
		Service:      aws.String(serviceID),
		DesiredCount: aws.Int32(int32(count)),
	})
	if err != nil {
		return fmt.Errorf("failed to update service %s: %w", serviceID, err)
	}

	logger.WithService(serviceID).Infof("ECS desired count set to %d in %v", count, time.Since(start))
	return nil
}

func (c *ECSControl) Close() error {
	return nil
}
