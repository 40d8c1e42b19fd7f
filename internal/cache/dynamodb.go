package cache

import (
	"context"
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
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type DynamoCacheConfig struct {
	AWS   aws.Config
	Table string
}

// DynamoCache stores one item per fingerprint with expires_at as the
// table TTL attribute. Expired items are filtered on read.
type DynamoCache struct {
	client dynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoCache(cfg DynamoCacheConfig) *DynamoCache {
	return &DynamoCache{
		client: dynamodb.NewFromConfig(cfg.AWS),
		table:  cfg.Table,
		now:    time.Now,
	}
}

func (c *DynamoCache) Get(ctx context.Context, fingerprint string) (*models.CacheEntry, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: fingerprint},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrMiss
	}

	entry := &models.CacheEntry{Fingerprint: fingerprint}
	if v, ok := out.Item["payload"].(*types.AttributeValueMemberB); ok {
		entry.Payload = v.Value
	}
	if v, ok := out.Item["tier"].(*types.AttributeValueMemberS); ok {
		entry.Tier = models.Tier(v.Value)
	}
	entry.StoredAt = unixAttr(out.Item, "stored_at")
	entry.ExpiresAt = unixAttr(out.Item, "expires_at")

	if entry.IsExpired(c.now()) {
		return nil, ErrMiss
	}
	return entry, nil
}

func (c *DynamoCache) Put(ctx context.Context, entry *models.CacheEntry, ttl time.Duration) error {
	if err := validate(entry, ttl); err != nil {
		return err
	}
	stored := stamp(entry, c.now(), ttl)

	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]types.AttributeValue{
			"pk":         &types.AttributeValueMemberS{Value: stored.Fingerprint},
			"payload":    &types.AttributeValueMemberB{Value: stored.Payload},
			"tier":       &types.AttributeValueMemberS{Value: string(stored.Tier)},
			"stored_at":  &types.AttributeValueMemberN{Value: strconv.FormatInt(stored.StoredAt.Unix(), 10)},
			"expires_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(stored.ExpiresAt.Unix(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (c *DynamoCache) Close() error {
	return nil
}

func unixAttr(item map[string]types.AttributeValue, name string) time.Time {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
