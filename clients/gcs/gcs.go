package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/artie-labs/starsync/lib/blob"
	"github.com/artie-labs/starsync/lib/config"
)

type Store struct {
	client *storage.Client
	bucket string
}

func NewStore(client *storage.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

func LoadStore(ctx context.Context, cfg config.GCS) (*Store, error) {
	var opts []option.ClientOption
	if cfg.PathToCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PathToCredentials))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return NewStore(client, cfg.Bucket), nil
}

func (s *Store) ReadText(ctx context.Context, key string) (string, error) {
	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return "", s.wrapErr("open", key, err)
	}
	defer reader.Close()

	bytes, err := io.ReadAll(reader)
	if err != nil {
		return "", s.wrapErr("read", key, err)
	}

	return string(bytes), nil
}

func (s *Store) WriteText(ctx context.Context, key, value string) error {
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "text/plain"

	if _, err := io.WriteString(writer, value); err != nil {
		writer.Close()
		return s.wrapErr("write", key, err)
	}

	// The object is only committed once the writer is closed.
	if err := writer.Close(); err != nil {
		return s.wrapErr("close writer for", key, err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) wrapErr(action, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		err = fmt.Errorf("%w: %w", blob.ErrNotFound, err)
	}
	return fmt.Errorf("failed to %s gs://%s/%s: %w", action, s.bucket, key, err)
}
