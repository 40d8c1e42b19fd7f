package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pk := params.Key["pk"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[pk]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pk := params.Item["pk"].(*types.AttributeValueMemberS).Value
	f.items[pk] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func newTestDynamoCache() (*DynamoCache, *fakeDynamo) {
	fake := &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
	return &DynamoCache{client: fake, table: "result_cache", now: func() time.Time { return testNow }}, fake
}

func TestDynamoCache_PutGet(t *testing.T) {
	c, fake := newTestDynamoCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, newEntry("abc"), 30*time.Minute))
	require.Contains(t, fake.items, "abc")

	entry, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("converted"), entry.Payload)
	assert.Equal(t, testNow.Add(30*time.Minute), entry.ExpiresAt)
}

func TestDynamoCache_MissAndExpiry(t *testing.T) {
	c, _ := newTestDynamoCache()
	ctx := context.Background()

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Put(ctx, newEntry("abc"), time.Minute))
	c.now = func() time.Time { return testNow.Add(2 * time.Minute) }

	_, err = c.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestDynamoCache_StoreError(t *testing.T) {
	c, fake := newTestDynamoCache()
	fake.err = errors.New("throttled")

	_, err := c.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, c.Put(context.Background(), newEntry("abc"), time.Minute), ErrStoreUnavailable)
}
