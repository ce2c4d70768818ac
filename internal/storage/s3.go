package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror archives uploads to a bucket under the uploads/ prefix.
type S3Mirror struct {
	client  ObjectPutter
	bucket  string
	prefix  string
	timeout time.Duration
}

func NewS3Mirror(ctx context.Context, bucket, region string) (*S3Mirror, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config for S3: %w", err)
	}
	return newS3Mirror(s3.NewFromConfig(cfg), bucket), nil
}

func newS3Mirror(client ObjectPutter, bucket string) *S3Mirror {
	return &S3Mirror{
		client:  client,
		bucket:  bucket,
		prefix:  "uploads",
		timeout: 15 * time.Second,
	}
}

func (m *S3Mirror) Put(ctx context.Context, name, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(path.Join(m.prefix, name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}
