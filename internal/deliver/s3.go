package deliver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"itinerary-pdf/internal/config"
)

// PutObjectAPI is the part of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Saver uploads artifacts to a bucket under an optional key prefix.
type S3Saver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Saver wraps an existing client.
func NewS3Saver(client PutObjectAPI, bucket, prefix string) *S3Saver {
	return &S3Saver{client: client, bucket: bucket, prefix: prefix}
}

// OpenS3 builds an S3 client from cfg. Static credentials are used when an
// access key is configured, otherwise the default AWS credential chain.
func OpenS3(ctx context.Context, cfg config.S3Config) (*S3Saver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3Saver(client, cfg.Bucket, cfg.Prefix), nil
}

// Key returns the object key for filename.
func (s *S3Saver) Key(filename string) string {
	return path.Join(s.prefix, path.Base(filename))
}

// Save uploads a and returns its s3:// URI.
func (s *S3Saver) Save(ctx context.Context, a Artifact) (string, error) {
	key := s.Key(a.Filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(a.Data),
		ContentLength: aws.Int64(int64(len(a.Data))),
		ContentType:   aws.String(ContentTypePDF),
		Metadata:      map[string]string{"pages": strconv.Itoa(a.Pages)},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
