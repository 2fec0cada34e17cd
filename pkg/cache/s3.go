package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// expiresMetaKey is the object metadata key holding the RFC 3339 expiry.
const expiresMetaKey = "expires-at"

// S3Options configures an S3Cache. Endpoint and PathStyle are needed for
// S3-compatible stores such as MinIO.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// S3Cache stores one object per key in a single bucket. The expiry travels
// in the object metadata; a bucket lifecycle rule is expected to delete
// stale objects eventually.
type S3Cache struct {
	client *s3.Client
	bucket string
}

// NewS3Cache creates a cache using the default AWS credential chain.
func NewS3Cache(ctx context.Context, opts S3Options) (*S3Cache, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewS3CacheFromClient(client, opts.Bucket), nil
}

// NewS3CacheFromClient wraps an existing client.
func NewS3CacheFromClient(client *s3.Client, bucket string) *S3Cache {
	return &S3Cache{client: client, bucket: bucket}
}

// Get retrieves a value from the cache.
func (c *S3Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &c.bucket, Key: &key})
	if isS3NotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, networkError("s3 get", err)
	}
	defer out.Body.Close()

	if v, ok := out.Metadata[expiresMetaKey]; ok {
		if exp, err := time.Parse(time.RFC3339Nano, v); err == nil && time.Now().After(exp) {
			return nil, false, nil
		}
	}
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, networkError("s3 read", err)
	}
	return data, true, nil
}

// Set stores a value in the cache, replacing any previous object.
func (c *S3Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	input := &s3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/xml"),
	}
	if ttl > 0 {
		input.Metadata = map[string]string{
			expiresMetaKey: time.Now().Add(ttl).UTC().Format(time.RFC3339Nano),
		}
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return networkError("s3 put", err)
	}
	return nil
}

// Delete removes a value from the cache.
func (c *S3Cache) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &c.bucket, Key: &key})
	if err != nil && !isS3NotFound(err) {
		return networkError("s3 delete", err)
	}
	return nil
}

// Close does nothing; the S3 client holds no resources that need release.
func (c *S3Cache) Close() error {
	return nil
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

var _ Cache = (*S3Cache)(nil)
