package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
)

// S3API is the subset of the S3 client used for documents
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config configures the S3 backend
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3FileStorage implements port.FileStorage on an S3 bucket
type S3FileStorage struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Client builds an S3 client from static credentials or the default chain
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3FileStorage creates an S3-backed file storage
func NewS3FileStorage(client S3API, bucket, prefix string, logger *zap.Logger) *S3FileStorage {
	return &S3FileStorage{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

func (s *S3FileStorage) key(p string) string {
	return path.Join(s.prefix, p)
}

// Save uploads content
func (s *S3FileStorage) Save(ctx context.Context, p string, content []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(p)),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		s.logger.Error("Failed to upload object", zap.String("key", s.key(p)), zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Read downloads content; port.ErrFileNotFound when the key does not exist
func (s *S3FileStorage) Read(ctx context.Context, p string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", port.ErrFileNotFound, p)
		}
		s.logger.Error("Failed to download object", zap.String("key", s.key(p)), zap.Error(err))
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return content, nil
}

// Exists reports whether the key exists
func (s *S3FileStorage) Exists(ctx context.Context, p string) bool {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	})
	if err == nil {
		return true
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "NotFound" {
		s.logger.Warn("Failed to check object", zap.String("key", s.key(p)), zap.Error(err))
	}
	return false
}

// Delete removes the key; S3 deletes are idempotent
func (s *S3FileStorage) Delete(ctx context.Context, p string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(p)),
	}); err != nil {
		s.logger.Error("Failed to delete object", zap.String("key", s.key(p)), zap.Error(err))
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

var _ port.FileStorage = (*S3FileStorage)(nil)
