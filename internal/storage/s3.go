package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the settings for the S3 (or MinIO) asset bucket.
type S3Config struct {
	Region        string
	Endpoint      string // empty for AWS proper; set for MinIO and friends
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string // base the returned object URLs are built on
}

// S3Storage stores assets in an S3-compatible bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
	base   string
}

var _ ObjectStorage = (*S3Storage)(nil)

// NewS3Storage builds an S3 client from static credentials.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client: client,
		bucket: cfg.Bucket,
		base:   strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Save uploads the stream and returns the object's public URL.
func (s *S3Storage) Save(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	key := objectKey(path.Ext(filename))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: uploading %s: %w", key, err)
	}

	return s.base + "/" + key, nil
}
