package scaler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeECS struct {
	describe  *ecs.DescribeServicesOutput
	updateErr error
	updated   *ecs.UpdateServiceInput
}

func (f *fakeECS) DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, _ ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	return f.describe, nil
}

func (f *fakeECS) UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, _ ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	f.updated = params
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &ecs.UpdateServiceOutput{}, nil
}

func TestECSControl_GetServiceState(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deployed := created.Add(48 * time.Hour)
	fake := &fakeECS{describe: &ecs.DescribeServicesOutput{
		Services: []types.Service{{
			ServiceName:  aws.String("converter"),
			DesiredCount: 3,
			RunningCount: 2,
			PendingCount: 1,
			CreatedAt:    aws.Time(created),
			Deployments:  []types.Deployment{{UpdatedAt: aws.Time(deployed)}},
		}},
	}}
	control := &ECSControl{client: fake, cluster: "prod"}

	state, err := control.GetServiceState(context.Background(), "converter")
	require.NoError(t, err)

	assert.Equal(t, 3, state.DesiredCount)
	assert.Equal(t, 2, state.RunningCount)
	assert.Equal(t, 1, state.PendingCount)
	assert.Equal(t, deployed, state.LastModified)
}

func TestECSControl_MissingService(t *testing.T) {
	fake := &fakeECS{describe: &ecs.DescribeServicesOutput{
		Failures: []types.Failure{{Reason: aws.String("MISSING")}},
	}}
	control := &ECSControl{client: fake, cluster: "prod"}

	_, err := control.GetServiceState(context.Background(), "converter")

	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.Contains(t, err.Error(), "MISSING")
}

func TestECSControl_SetDesiredCount(t *testing.T) {
	fake := &fakeECS{}
	control := &ECSControl{client: fake, cluster: "prod"}

	require.NoError(t, control.SetDesiredCount(context.Background(), "converter", 0))
	assert.Equal(t, "prod", aws.ToString(fake.updated.Cluster))
	assert.Equal(t, "converter", aws.ToString(fake.updated.Service))
	assert.Equal(t, int32(0), aws.ToInt32(fake.updated.DesiredCount))

	fake.updateErr = errors.New("AccessDenied")
	err := control.SetDesiredCount(context.Background(), "converter", 2)
	assert.ErrorContains(t, err, "AccessDenied")
}
