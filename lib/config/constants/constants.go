package constants

const (
	StarsyncPrefix = "__starsync"
	// StagingSequenceColumn is written by the stager so the merge can keep the last row per primary key in extraction order.
	StagingSequenceColumn = StarsyncPrefix + "_seq"
	// RowNumberColumn is only used inside generated dedupe subqueries.
	RowNumberColumn = StarsyncPrefix + "_rn"

	StagingDatasetSuffix = "_staging"
	DefaultWatermarkKey  = "last_run.txt"
)

type TableAlias string

const (
	TargetAlias  TableAlias = "tgt"
	StagingAlias TableAlias = "stg"
)

// ExporterKind is used for the Telemetry package
type ExporterKind string

const (
	Datadog ExporterKind = "datadog"
)

type WarehouseKind string

const (
	BigQuery WarehouseKind = "bigquery"
	SQLite   WarehouseKind = "sqlite"
)

type SourceKind string

const (
	Postgres SourceKind = "postgres"
	MySQL    SourceKind = "mysql"
)

type BlobStoreKind string

const (
	GCS  BlobStoreKind = "gcs"
	S3   BlobStoreKind = "s3"
	File BlobStoreKind = "file"
)

type LockKind string

const (
	LocalLock LockKind = "local"
	RedisLock LockKind = "redis"
)

type BigQueryWriteMethod string

const (
	// LoadJob writes staging rows with a load job, which avoids the streaming buffer.
	LoadJob BigQueryWriteMethod = "load"
	// StreamingInsert writes staging rows through the legacy insertAll API.
	StreamingInsert BigQueryWriteMethod = "stream"
)
