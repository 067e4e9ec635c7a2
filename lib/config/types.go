package config

import (
	"github.com/artie-labs/starsync/lib/config/constants"
)

type Sentry struct {
	DSN string `yaml:"dsn"`
}

type Reporting struct {
	Sentry *Sentry `yaml:"sentry"`
}

type Metrics struct {
	Provider constants.ExporterKind `yaml:"provider"`
	Settings map[string]any         `yaml:"settings,omitempty"`
}

type Telemetry struct {
	Metrics Metrics `yaml:"metrics"`
}

// Source is the operational database rows are extracted from.
type Source struct {
	Driver     constants.SourceKind `yaml:"driver"`
	Host       string               `yaml:"host"`
	Port       int                  `yaml:"port"`
	Database   string               `yaml:"database"`
	Username   string               `yaml:"username"`
	Password   string               `yaml:"password"`
	DisableSSL bool                 `yaml:"disableSSL"`
	// MaxOpenConns caps the connection pool, extractions each hold one connection for the duration of their query.
	MaxOpenConns int `yaml:"maxOpenConns,omitempty"`
}

type BigQuery struct {
	// PathToCredentials is _optional_ if you have GOOGLE_APPLICATION_CREDENTIALS set as an env var
	// Links to credentials: https://cloud.google.com/docs/authentication/application-default-credentials#GAC
	PathToCredentials string `yaml:"pathToCredentials"`
	ProjectID         string `yaml:"projectID"`
	Location          string `yaml:"location"`

	WriteMethod constants.BigQueryWriteMethod `yaml:"writeMethod,omitempty"`
	// BatchSize is the number of rows per streaming insert request.
	BatchSize int `yaml:"batchSize,omitempty"`
	// InsertsPerSecond throttles streaming insert requests.
	InsertsPerSecond float64 `yaml:"insertsPerSecond,omitempty"`
}

type SQLite struct {
	// Path to the database file, ":memory:" keeps everything in memory.
	Path string `yaml:"path"`
}

type GCS struct {
	Bucket            string `yaml:"bucket"`
	ProjectID         string `yaml:"projectID"`
	PathToCredentials string `yaml:"pathToCredentials"`
}

type S3 struct {
	Bucket             string `yaml:"bucket"`
	Region             string `yaml:"region"`
	AwsAccessKeyID     string `yaml:"awsAccessKeyID"`
	AwsSecretAccessKey string `yaml:"awsSecretAccessKey"`
}

type File struct {
	Directory string `yaml:"directory"`
}

type Redis struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
	// LockKey is the key holding the run lock.
	LockKey string `yaml:"lockKey,omitempty"`
	// LockTTLSeconds bounds how long a crashed run can keep the lock, a live run renews it.
	LockTTLSeconds int `yaml:"lockTTLSeconds,omitempty"`
}

type Pipeline struct {
	// Dataset holds the target tables, staging tables live in [Dataset] + "_staging".
	Dataset     string `yaml:"dataset"`
	Parallelism int    `yaml:"parallelism,omitempty"`
	// AdvanceOnMergeFailure - when nil, defaults to true.
	AdvanceOnMergeFailure *bool `yaml:"advanceOnMergeFailure,omitempty"`
	// Tables restricts a run to these tables, empty means every registered table.
	Tables []string `yaml:"tables,omitempty"`
}

func (p Pipeline) StagingDataset() string {
	return p.Dataset + constants.StagingDatasetSuffix
}

func (p Pipeline) ShouldAdvanceOnMergeFailure() bool {
	if p.AdvanceOnMergeFailure == nil {
		return true
	}
	return *p.AdvanceOnMergeFailure
}

type Config struct {
	Source    Source                  `yaml:"source"`
	Warehouse constants.WarehouseKind `yaml:"warehouse"`
	BigQuery  *BigQuery               `yaml:"bigquery"`
	SQLite    *SQLite                 `yaml:"sqlite"`

	WatermarkStore constants.BlobStoreKind `yaml:"watermarkStore"`
	WatermarkKey   string                  `yaml:"watermarkKey,omitempty"`
	GCS            *GCS                    `yaml:"gcs"`
	S3             *S3                     `yaml:"s3"`
	File           *File                   `yaml:"file"`

	Lock  constants.LockKind `yaml:"lock,omitempty"`
	Redis *Redis             `yaml:"redis"`

	Pipeline Pipeline `yaml:"pipeline"`
	// Schedule is a standard cron expression, when empty the pipeline runs once and exits.
	Schedule string `yaml:"schedule,omitempty"`

	Reporting Reporting `yaml:"reporting"`
	Telemetry Telemetry `yaml:"telemetry"`
}
