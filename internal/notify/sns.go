package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes {action, reason, timestamp} to an SNS topic
type SNSNotifier struct {
	client   snsAPI
	topicARN string
}

type SNSNotifierConfig struct {
	AWS      aws.Config
	TopicARN string
}

func NewSNSNotifier(cfg SNSNotifierConfig) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg.AWS),
		topicARN: cfg.TopicARN,
	}
}

func (n *SNSNotifier) Notify(ctx context.Context, notice models.ZeroBoundaryNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(fmt.Sprintf("%s %s", notice.ServiceID, notice.Action)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"action": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(notice.Action)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}

	logger.WithService(notice.ServiceID).Debugf("Published zero-boundary notice %s", aws.ToString(out.MessageId))
	return nil
}
