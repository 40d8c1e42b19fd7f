package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/capacity-controller/internal/events"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

var notice = models.ZeroBoundaryNotice{
	ServiceID: "converter",
	Action:    models.ActionScaleToZero,
	Reason:    "no_traffic_and_low_cpu",
	Timestamp: time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC),
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSNotifier_PublishesNotice(t *testing.T) {
	fake := &fakeSNS{}
	n := &SNSNotifier{client: fake, topicARN: "arn:aws:sns:us-east-1:123456789012:capacity"}

	require.NoError(t, n.Notify(context.Background(), notice))

	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:capacity", aws.ToString(fake.input.TopicArn))
	var body models.ZeroBoundaryNotice
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(fake.input.Message)), &body))
	assert.Equal(t, notice, body)
	assert.Equal(t, "SCALE_TO_ZERO", aws.ToString(fake.input.MessageAttributes["action"].StringValue))
}

func TestSNSNotifier_Failure(t *testing.T) {
	n := &SNSNotifier{client: &fakeSNS{err: errors.New("denied")}, topicARN: "arn"}

	err := n.Notify(context.Background(), notice)

	assert.ErrorIs(t, err, ErrNotifyFailed)
}

func TestBusNotifier_PublishesEvent(t *testing.T) {
	bus := events.NewEventBus(1)
	defer bus.Close()
	ch := bus.Subscribe(models.EventTypeZeroBoundary)

	require.NoError(t, NewBusNotifier(events.NewPublisher(bus)).Notify(context.Background(), notice))

	e := <-ch
	assert.Equal(t, notice, e.Data)
}

type failing struct{}

func (failing) Notify(context.Context, models.ZeroBoundaryNotice) error { return errors.New("down") }

func TestMulti_JoinsErrors(t *testing.T) {
	assert.NoError(t, Multi{LogNotifier{}}.Notify(context.Background(), notice))

	err := Multi{LogNotifier{}, failing{}}.Notify(context.Background(), notice)
	assert.EqualError(t, err, "down")
}
