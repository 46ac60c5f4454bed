// Package archive stores exported audit chain ranges in S3-compatible object storage.
package archive

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

const contentType = "application/x-ndjson"

// S3API is the subset of the S3 client used by S3Uploader.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes archive objects to one bucket under a key prefix.
type S3Uploader struct {
	client S3API
	bucket string
	prefix string
}

// PutObject uploads body as key below the configured prefix.
func (u *S3Uploader) PutObject(
	ctx context.Context,
	key string,
	body io.ReadSeeker,
	metadata map[string]string,
) error {
	if u.bucket == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "archive bucket is not configured")
	}
	if key == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "archive object key is required")
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.objectKey(key)),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return apperrors.Wrap(err, "failed to upload audit archive")
	}
	return nil
}

func (u *S3Uploader) objectKey(key string) string {
	prefix := strings.Trim(u.prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + strings.TrimPrefix(key, "/")
}

// NewS3Uploader creates an uploader backed by client.
func NewS3Uploader(client S3API, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds an S3 client from the default AWS credential chain. A
// non-empty endpoint targets an S3-compatible store such as MinIO and switches
// to path-style addressing.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load AWS config")
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
