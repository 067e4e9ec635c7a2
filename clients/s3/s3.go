package s3

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/artie-labs/starsync/lib/blob"
	"github.com/artie-labs/starsync/lib/config"
)

type Store struct {
	client *s3.Client
	bucket string
}

func NewStore(client *s3.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

func LoadStore(ctx context.Context, cfg config.S3) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cmp.Or(cfg.Region, os.Getenv("AWS_REGION"))),
	}

	if cfg.AwsAccessKeyID != "" && cfg.AwsSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AwsAccessKeyID, cfg.AwsSecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed loading s3 config: %w", err)
	}

	return NewStore(s3.NewFromConfig(awsCfg), cfg.Bucket), nil
}

func (s *Store) ReadText(ctx context.Context, key string) (string, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", s.wrapErr("get", key, err)
	}
	defer output.Body.Close()

	bytes, err := io.ReadAll(output.Body)
	if err != nil {
		return "", s.wrapErr("read", key, err)
	}

	return string(bytes), nil
}

func (s *Store) WriteText(ctx context.Context, key, value string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(value),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return s.wrapErr("put", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}

	return false
}

func (s *Store) wrapErr(action, key string, err error) error {
	if isNotFound(err) {
		err = fmt.Errorf("%w: %w", blob.ErrNotFound, err)
	}
	return fmt.Errorf("failed to %s s3://%s/%s: %w", action, s.bucket, key, err)
}
