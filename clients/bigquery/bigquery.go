package bigquery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/artie-labs/starsync/clients/bigquery/converters"
	"github.com/artie-labs/starsync/clients/bigquery/dialect"
	"github.com/artie-labs/starsync/lib/batch"
	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/destination"
	"github.com/artie-labs/starsync/lib/retry"
	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/source"
	"github.com/artie-labs/starsync/lib/sql"
)

// Load jobs accept much larger payloads, this keeps a single request comfortably small.
const maxLoadChunkBytes = 10 << 20

type Store struct {
	client   *bigquery.Client
	cfg      config.BigQuery
	retryCfg retry.RetryConfig
	limiter  *rate.Limiter
}

func LoadStore(ctx context.Context, cfg config.BigQuery) (*Store, error) {
	var opts []option.ClientOption
	if cfg.PathToCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PathToCredentials))
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}

	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return newStore(client, cfg), nil
}

func newStore(client *bigquery.Client, cfg config.BigQuery) *Store {
	return &Store{
		client: client,
		cfg:    cfg,
		retryCfg: retry.NewRetryConfig(retry.NewRetryConfigArgs{
			JitterBaseMs:   500,
			JitterMaxMs:    10_000,
			MaxAttempts:    5,
			IsRetryableErr: isRetryableError,
		}),
		limiter: rate.NewLimiter(rate.Limit(max(cfg.InsertsPerSecond, 1)), 1),
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Dialect() sql.Dialect {
	return dialect.BigQueryDialect{}
}

func (s *Store) IdentifierFor(dataset, table string) sql.TableIdentifier {
	return dialect.NewTableIdentifier(s.cfg.ProjectID, dataset, table)
}

func (s *Store) table(tableID sql.TableIdentifier) *bigquery.Table {
	return s.client.DatasetInProject(s.cfg.ProjectID, tableID.Dataset()).Table(tableID.Table())
}

func (s *Store) CreateDataset(ctx context.Context, name string, existsOK bool) error {
	err := s.client.DatasetInProject(s.cfg.ProjectID, name).Create(ctx, &bigquery.DatasetMetadata{Location: s.cfg.Location})
	if err != nil {
		if existsOK && isAlreadyExistsErr(err) {
			return nil
		}
		return fmt.Errorf("failed to create dataset %q: %w", name, err)
	}

	slog.Info("Created dataset", slog.String("dataset", name))
	return nil
}

func (s *Store) DeleteDataset(ctx context.Context, name string, deleteContents, notFoundOK bool) error {
	ds := s.client.DatasetInProject(s.cfg.ProjectID, name)

	var err error
	if deleteContents {
		err = ds.DeleteWithContents(ctx)
	} else {
		err = ds.Delete(ctx)
	}

	if err != nil {
		if notFoundOK && isNotFoundErr(err) {
			return nil
		}
		return fmt.Errorf("failed to delete dataset %q: %w", name, err)
	}

	return nil
}

func (s *Store) GetOrCreateTable(ctx context.Context, tableID sql.TableIdentifier, table schema.TableDescriptor) error {
	tbl := s.table(tableID)
	if _, err := tbl.Metadata(ctx); err == nil {
		return nil
	} else if !isNotFoundErr(err) {
		return fmt.Errorf("failed to get table %s: %w", tableID.FullyQualifiedName(), err)
	}

	bqSchema, err := converters.ToSchema(table)
	if err != nil {
		return err
	}

	if err = tbl.Create(ctx, &bigquery.TableMetadata{Schema: bqSchema}); err != nil {
		if isAlreadyExistsErr(err) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", tableID.FullyQualifiedName(), err)
	}

	slog.Info("Created table", slog.String("table", tableID.FullyQualifiedName()))
	return nil
}

func (s *Store) WriteRows(ctx context.Context, tableID sql.TableIdentifier, table schema.TableDescriptor, rows []source.Row, mode destination.WriteMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	switch s.cfg.WriteMethod {
	case constants.StreamingInsert:
		return s.streamRows(ctx, tableID, table, rows)
	default:
		return s.loadRows(ctx, tableID, table, rows)
	}
}

func (s *Store) loadRows(ctx context.Context, tableID sql.TableIdentifier, table schema.TableDescriptor, rows []source.Row) error {
	bqSchema, err := converters.ToSchema(table)
	if err != nil {
		return err
	}

	encode := func(row source.Row) ([]byte, error) {
		return converters.EncodeJSONRow(table, row)
	}

	return batch.BySize(rows, maxLoadChunkBytes, encode, func(chunk [][]byte) error {
		payload := bytes.Join(chunk, nil)
		return s.retryCfg.WithRetries(ctx, func(_ int, _ error) error {
			src := bigquery.NewReaderSource(bytes.NewReader(payload))
			src.SourceFormat = bigquery.JSON
			src.Schema = bqSchema

			loader := s.table(tableID).LoaderFrom(src)
			loader.WriteDisposition = bigquery.WriteAppend
			loader.CreateDisposition = bigquery.CreateNever

			job, err := loader.Run(ctx)
			if err != nil {
				return fmt.Errorf("failed to start load job into %s: %w", tableID.FullyQualifiedName(), err)
			}

			return waitForJob(ctx, job)
		})
	})
}

func (s *Store) streamRows(ctx context.Context, tableID sql.TableIdentifier, table schema.TableDescriptor, rows []source.Row) error {
	bqSchema, err := converters.ToSchema(table)
	if err != nil {
		return err
	}

	savers := make([]*bigquery.ValuesSaver, len(rows))
	for i, row := range rows {
		values, err := converters.ToValues(table, row)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}

		// The insert ID lets BigQuery drop duplicates when a request is retried.
		savers[i] = &bigquery.ValuesSaver{Schema: bqSchema, InsertID: uuid.NewString(), Row: values}
	}

	inserter := s.table(tableID).Inserter()
	return batch.ByCount(savers, s.cfg.BatchSize, func(chunk []*bigquery.ValuesSaver) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		return s.retryCfg.WithRetries(ctx, func(_ int, _ error) error {
			if err := inserter.Put(ctx, chunk); err != nil {
				return fmt.Errorf("failed to insert rows into %s: %w", tableID.FullyQualifiedName(), err)
			}
			return nil
		})
	})
}

func (s *Store) ExecuteStatement(ctx context.Context, query string) error {
	slog.Debug("Executing...", slog.String("query", query))
	return s.retryCfg.WithRetries(ctx, func(_ int, _ error) error {
		job, err := s.client.Query(query).Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
		return waitForJob(ctx, job)
	})
}

func waitForJob(ctx context.Context, job *bigquery.Job) error {
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for job %q: %w", job.ID(), err)
	}

	if err = status.Err(); err != nil {
		return fmt.Errorf("job %q failed: %w", job.ID(), err)
	}

	return nil
}
