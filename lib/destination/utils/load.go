package utils

import (
	"context"
	"fmt"

	"github.com/artie-labs/starsync/clients/bigquery"
	"github.com/artie-labs/starsync/clients/file"
	"github.com/artie-labs/starsync/clients/gcs"
	"github.com/artie-labs/starsync/clients/redis"
	"github.com/artie-labs/starsync/clients/s3"
	"github.com/artie-labs/starsync/clients/sqlite"
	"github.com/artie-labs/starsync/lib/blob"
	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/destination"
	"github.com/artie-labs/starsync/lib/lock"
)

type ClosableWarehouse interface {
	destination.Warehouse
	Close() error
}

// LoadWarehouse returns the warehouse selected by [cfg.Warehouse].
func LoadWarehouse(ctx context.Context, cfg config.Config) (ClosableWarehouse, error) {
	switch cfg.Warehouse {
	case constants.BigQuery:
		if cfg.BigQuery == nil {
			return nil, fmt.Errorf("bigquery config is nil")
		}
		return bigquery.LoadStore(ctx, *cfg.BigQuery)
	case constants.SQLite:
		if cfg.SQLite == nil {
			return nil, fmt.Errorf("sqlite config is nil")
		}
		return sqlite.LoadStore(ctx, *cfg.SQLite)
	}

	return nil, fmt.Errorf("invalid warehouse: %q", cfg.Warehouse)
}

// LoadBlobStore returns the store holding the watermark. Stores that hold a client also implement [io.Closer].
func LoadBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.WatermarkStore {
	case constants.GCS:
		if cfg.GCS == nil {
			return nil, fmt.Errorf("gcs config is nil")
		}
		return gcs.LoadStore(ctx, *cfg.GCS)
	case constants.S3:
		if cfg.S3 == nil {
			return nil, fmt.Errorf("s3 config is nil")
		}
		return s3.LoadStore(ctx, *cfg.S3)
	case constants.File:
		if cfg.File == nil {
			return nil, fmt.Errorf("file config is nil")
		}
		return file.NewStore(cfg.File.Directory)
	}

	return nil, fmt.Errorf("invalid watermark store: %q", cfg.WatermarkStore)
}

func LoadLocker(ctx context.Context, cfg config.Config) (lock.Locker, error) {
	switch cfg.Lock {
	case constants.LocalLock, "":
		return lock.NewLocal(), nil
	case constants.RedisLock:
		return redis.LoadLock(ctx, cfg)
	}

	return nil, fmt.Errorf("invalid lock: %q", cfg.Lock)
}
