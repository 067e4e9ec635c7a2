package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/artie-labs/starsync/lib/config/constants"
)

const (
	defaultParallelism      = 4
	defaultBigQueryBatch    = 500
	defaultInsertsPerSecond = 10
	defaultRedisLockKey     = "starsync:run-lock"
	defaultRedisLockTTL     = 5 * 60

	// BigQuery caps streaming insert requests at 50k rows.
	maxBigQueryBatch = 50_000
)

func readFileToConfig(pathToConfig string) (*Config, error) {
	bytes, err := os.ReadFile(pathToConfig)
	if err != nil {
		return nil, err
	}

	var config Config
	if err = yaml.Unmarshal(bytes, &config); err != nil {
		return nil, err
	}

	config.setDefaults()
	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Pipeline.Parallelism == 0 {
		c.Pipeline.Parallelism = defaultParallelism
	}

	if c.WatermarkKey == "" {
		c.WatermarkKey = constants.DefaultWatermarkKey
	}

	if c.Lock == "" {
		c.Lock = constants.LocalLock
	}

	if c.BigQuery != nil {
		if c.BigQuery.WriteMethod == "" {
			c.BigQuery.WriteMethod = constants.LoadJob
		}

		if c.BigQuery.BatchSize == 0 {
			c.BigQuery.BatchSize = defaultBigQueryBatch
		}

		if c.BigQuery.InsertsPerSecond == 0 {
			c.BigQuery.InsertsPerSecond = defaultInsertsPerSecond
		}
	}

	if c.Redis != nil {
		if c.Redis.LockKey == "" {
			c.Redis.LockKey = defaultRedisLockKey
		}

		if c.Redis.LockTTLSeconds == 0 {
			c.Redis.LockTTLSeconds = defaultRedisLockTTL
		}
	}
}

// Validate checks that every section the selected backends need is present and sane.
// The clients themselves are loaded and checked by their own packages.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config is invalid: %w", err)
	}

	if err := c.validateWarehouse(); err != nil {
		return err
	}

	if err := c.validateWatermarkStore(); err != nil {
		return err
	}

	if err := c.validateLock(); err != nil {
		return err
	}

	if c.Pipeline.Dataset == "" {
		return fmt.Errorf("pipeline dataset is empty")
	}

	if c.Pipeline.Parallelism <= 0 {
		return fmt.Errorf("pipeline parallelism must be positive, got: %d", c.Pipeline.Parallelism)
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("schedule %q is invalid: %w", c.Schedule, err)
		}
	}

	if c.Telemetry.Metrics.Provider != "" && c.Telemetry.Metrics.Provider != constants.Datadog {
		return fmt.Errorf("metrics provider %q is not supported", c.Telemetry.Metrics.Provider)
	}

	return nil
}

func (s Source) Validate() error {
	if !slices.Contains([]constants.SourceKind{constants.Postgres, constants.MySQL}, s.Driver) {
		return fmt.Errorf("driver %q is not supported", s.Driver)
	}

	if s.Host == "" || s.Database == "" {
		return fmt.Errorf("host and database are required")
	}

	if s.Port <= 0 {
		return fmt.Errorf("invalid port: %d", s.Port)
	}

	return nil
}

func (c *Config) validateWarehouse() error {
	switch c.Warehouse {
	case constants.BigQuery:
		if c.BigQuery == nil {
			return fmt.Errorf("bigquery config is nil")
		}

		if c.BigQuery.ProjectID == "" {
			return fmt.Errorf("bigquery project ID is empty")
		}

		if !slices.Contains([]constants.BigQueryWriteMethod{constants.LoadJob, constants.StreamingInsert}, c.BigQuery.WriteMethod) {
			return fmt.Errorf("bigquery write method %q is not supported", c.BigQuery.WriteMethod)
		}

		if c.BigQuery.BatchSize <= 0 || c.BigQuery.BatchSize > maxBigQueryBatch {
			return fmt.Errorf("bigquery batch size must be between 1 and %d, got: %d", maxBigQueryBatch, c.BigQuery.BatchSize)
		}
	case constants.SQLite:
		if c.SQLite == nil || c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is empty")
		}
	default:
		return fmt.Errorf("warehouse %q is not supported", c.Warehouse)
	}

	return nil
}

func (c *Config) validateWatermarkStore() error {
	switch c.WatermarkStore {
	case constants.GCS:
		if c.GCS == nil || c.GCS.Bucket == "" {
			return fmt.Errorf("gcs bucket is empty")
		}
	case constants.S3:
		if c.S3 == nil || c.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is empty")
		}
	case constants.File:
		if c.File == nil || c.File.Directory == "" {
			return fmt.Errorf("file directory is empty")
		}
	default:
		return fmt.Errorf("watermark store %q is not supported", c.WatermarkStore)
	}

	return nil
}

func (c *Config) validateLock() error {
	switch c.Lock {
	case constants.LocalLock:
		return nil
	case constants.RedisLock:
		if c.Redis == nil {
			return fmt.Errorf("redis config is nil")
		}

		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is empty")
		}

		if c.Redis.Port <= 0 {
			return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
		}

		return nil
	default:
		return fmt.Errorf("lock %q is not supported", c.Lock)
	}
}
