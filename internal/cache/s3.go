package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

const (
	metaExpiresAt = "expires-at"
	metaStoredAt  = "stored-at"
	metaTier      = "tier"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3CacheConfig struct {
	AWS    aws.Config
	Bucket string
	Prefix string
}

// S3Cache writes one object per fingerprint under Prefix. Expiry lives in
// object metadata; a bucket lifecycle rule reclaims old objects.
type S3Cache struct {
	client s3API
	bucket string
	prefix string
	now    func() time.Time
}

func NewS3Cache(cfg S3CacheConfig) *S3Cache {
	return &S3Cache{
		client: s3.NewFromConfig(cfg.AWS, func(o *s3.Options) {
			o.UsePathStyle = true
		}),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		now:    time.Now,
	}
}

func (c *S3Cache) objectKey(fingerprint string) string {
	return path.Join(c.prefix, fingerprint)
}

func (c *S3Cache) Get(ctx context.Context, fingerprint string) (*models.CacheEntry, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.objectKey(fingerprint)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer out.Body.Close()

	expires, err := metaTime(out.Metadata, metaExpiresAt)
	if err != nil || !c.now().Before(expires) {
		return nil, ErrMiss
	}

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	stored, _ := metaTime(out.Metadata, metaStoredAt)
	return &models.CacheEntry{
		Fingerprint: fingerprint,
		Payload:     payload,
		Tier:        models.Tier(out.Metadata[metaTier]),
		StoredAt:    stored,
		ExpiresAt:   expires,
	}, nil
}

func (c *S3Cache) Put(ctx context.Context, entry *models.CacheEntry, ttl time.Duration) error {
	if err := validate(entry, ttl); err != nil {
		return err
	}
	stored := stamp(entry, c.now(), ttl)

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.objectKey(stored.Fingerprint)),
		Body:        bytes.NewReader(stored.Payload),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			metaExpiresAt: strconv.FormatInt(stored.ExpiresAt.Unix(), 10),
			metaStoredAt:  strconv.FormatInt(stored.StoredAt.Unix(), 10),
			metaTier:      string(stored.Tier),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (c *S3Cache) Close() error {
	return nil
}

func metaTime(meta map[string]string, key string) (time.Time, error) {
	raw, ok := meta[key]
	if !ok {
		return time.Time{}, fmt.Errorf("missing metadata %q", key)
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
