package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoLedger stores one item per counter keyed by "usage:<user>:<period>".
// Table TTL on expires_at removes old periods; reads filter expired items
// because TTL deletion is lazy. Period keys embed the date, so an expired
// item is never incremented again.
type DynamoLedger struct {
	client dynamoAPI
	table  string
	now    func() time.Time
}

type DynamoLedgerConfig struct {
	AWS   aws.Config
	Table string
}

func NewDynamoLedger(cfg DynamoLedgerConfig) *DynamoLedger {
	return &DynamoLedger{
		client: dynamodb.NewFromConfig(cfg.AWS),
		table:  cfg.Table,
		now:    time.Now,
	}
}

func (l *DynamoLedger) itemKey(key models.UsageKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key.String()},
	}
}

func (l *DynamoLedger) Get(ctx context.Context, key models.UsageKey) (*models.UsageRecord, error) {
	out, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.table),
		Key:            l.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	record := &models.UsageRecord{
		UserID:    key.UserID,
		Tier:      models.Tier(stringAttr(out.Item, "tier")),
		PeriodKey: key.PeriodKey,
	}
	if record.Count, err = numberAttr(out.Item, "count"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if expires, err := numberAttr(out.Item, "expires_at"); err == nil && expires > 0 {
		t := time.Unix(expires, 0).UTC()
		record.ExpiresAt = &t
	}
	if updated, err := numberAttr(out.Item, "updated_at"); err == nil {
		record.UpdatedAt = time.Unix(updated, 0).UTC()
	}
	if record.IsExpired(l.now()) {
		return nil, ErrNotFound
	}
	return record, nil
}

func (l *DynamoLedger) IncrementAndGet(ctx context.Context, key models.UsageKey, expiresAt time.Time) (int64, error) {
	out, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(l.table),
		Key:              l.itemKey(key),
		UpdateExpression: aws.String("SET #count = if_not_exists(#count, :zero) + :one, #tier = :tier, #user = :user, #period = :period, #expires = :expires, #updated = :now"),
		ExpressionAttributeNames: map[string]string{
			"#count":   "count",
			"#tier":    "tier",
			"#user":    "user_id",
			"#period":  "period_key",
			"#expires": "expires_at",
			"#updated": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero":    &types.AttributeValueMemberN{Value: "0"},
			":one":     &types.AttributeValueMemberN{Value: "1"},
			":tier":    &types.AttributeValueMemberS{Value: string(key.Tier)},
			":user":    &types.AttributeValueMemberS{Value: key.UserID},
			":period":  &types.AttributeValueMemberS{Value: key.PeriodKey},
			":expires": &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Unix(), 10)},
			":now":     &types.AttributeValueMemberN{Value: strconv.FormatInt(l.now().Unix(), 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, err := numberAttr(out.Attributes, "count")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (l *DynamoLedger) Decrement(ctx context.Context, key models.UsageKey) error {
	_, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(l.table),
		Key:                 l.itemKey(key),
		UpdateExpression:    aws.String("SET #count = #count - :one, #updated = :now"),
		ConditionExpression: aws.String("#count > :zero AND #expires > :now"),
		ExpressionAttributeNames: map[string]string{
			"#count":   "count",
			"#expires": "expires_at",
			"#updated": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":one":  &types.AttributeValueMemberN{Value: "1"},
			":now":  &types.AttributeValueMemberN{Value: strconv.FormatInt(l.now().Unix(), 10)},
		},
	})

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (l *DynamoLedger) Close() error {
	return nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func numberAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("missing numeric attribute " + name)
	}
	return strconv.ParseInt(v.Value, 10, 64)
}
