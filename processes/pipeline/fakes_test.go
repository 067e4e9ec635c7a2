package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	bqdialect "github.com/artie-labs/starsync/clients/bigquery/dialect"
	"github.com/artie-labs/starsync/clients/sqlite"
	"github.com/artie-labs/starsync/lib/destination"
	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/source"
	"github.com/artie-labs/starsync/lib/sql"
	"github.com/artie-labs/starsync/lib/watermark"
)

// fakeQueries uses the table name as query text and binds the watermark.
type fakeQueries struct{}

func (fakeQueries) Query(table string, wm watermark.Watermark) (source.Query, error) {
	return source.NewQuery(table, wm.Time()), nil
}

type sourceRow struct {
	modifiedAt time.Time
	row        source.Row
}

// fakeSource returns the rows of a table modified after the bound watermark, in insertion order.
type fakeSource struct {
	mu    sync.Mutex
	rows  map[string][]sourceRow
	errs  map[string]error
	calls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		rows:  make(map[string][]sourceRow),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeSource) add(table string, modifiedAt time.Time, rows ...source.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		f.rows[table] = append(f.rows[table], sourceRow{modifiedAt: modifiedAt, row: row})
	}
}

func (f *fakeSource) fail(table string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[table] = err
}

func (f *fakeSource) callCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[table]
}

func (f *fakeSource) Execute(_ context.Context, query source.Query) ([]source.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := query.Text
	f.calls[table]++
	if err := f.errs[table]; err != nil {
		return nil, err
	}

	since := query.Args[0].(time.Time)
	var out []source.Row
	for _, row := range f.rows[table] {
		if row.modifiedAt.After(since) {
			out = append(out, row.row)
		}
	}
	return out, nil
}

// faultyWarehouse is a SQLite warehouse with failure injection.
type faultyWarehouse struct {
	*sqlite.Store

	mu               sync.Mutex
	createDatasetErr error
	writeErrs        map[string]error
	mergeErrs        map[string]error
}

func newFaultyWarehouse(store *sqlite.Store) *faultyWarehouse {
	return &faultyWarehouse{
		Store:     store,
		writeErrs: make(map[string]error),
		mergeErrs: make(map[string]error),
	}
}

func (f *faultyWarehouse) CreateDataset(ctx context.Context, name string, existsOK bool) error {
	f.mu.Lock()
	err := f.createDatasetErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.CreateDataset(ctx, name, existsOK)
}

func (f *faultyWarehouse) WriteRows(ctx context.Context, tableID sql.TableIdentifier, table schema.TableDescriptor, rows []source.Row, mode destination.WriteMode) error {
	f.mu.Lock()
	err := f.writeErrs[tableID.Table()]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.WriteRows(ctx, tableID, table, rows, mode)
}

func (f *faultyWarehouse) ExecuteStatement(ctx context.Context, query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for table, err := range f.mergeErrs {
		if strings.HasPrefix(query, fmt.Sprintf("INSERT INTO %s ", f.IdentifierFor("library", table).FullyQualifiedName())) {
			return err
		}
	}
	return f.Store.ExecuteStatement(ctx, query)
}

// recordingExecutor keeps every statement and speaks the BigQuery dialect.
type recordingExecutor struct {
	mu         sync.Mutex
	statements []string
	failOn     string
}

func (r *recordingExecutor) Dialect() sql.Dialect {
	return bqdialect.BigQueryDialect{}
}

func (r *recordingExecutor) IdentifierFor(dataset, table string) sql.TableIdentifier {
	return bqdialect.NewTableIdentifier("project", dataset, table)
}

func (r *recordingExecutor) ExecuteStatement(_ context.Context, query string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, query)
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return fmt.Errorf("statement failed")
	}
	return nil
}

type failingBlob struct{}

func (failingBlob) ReadText(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("blob store is down")
}

func (failingBlob) WriteText(_ context.Context, _, _ string) error {
	return fmt.Errorf("blob store is down")
}

type metric struct {
	name string
	tags map[string]string
}

type recordingMetrics struct {
	mu      sync.Mutex
	metrics []metric
}

func (r *recordingMetrics) record(name string, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, metric{name: name, tags: tags})
}

func (r *recordingMetrics) Timing(name string, _ time.Duration, tags map[string]string) {
	r.record(name, tags)
}

func (r *recordingMetrics) Incr(name string, tags map[string]string) {
	r.record(name, tags)
}

func (r *recordingMetrics) Count(name string, _ int64, tags map[string]string) {
	r.record(name, tags)
}

func (r *recordingMetrics) Gauge(name string, _ float64, tags map[string]string) {
	r.record(name, tags)
}

func (r *recordingMetrics) Flush() error {
	return nil
}

func (r *recordingMetrics) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for _, m := range r.metrics {
		if !slices.Contains(names, m.name) {
			names = append(names, m.name)
		}
	}
	slices.Sort(names)
	return names
}

func (r *recordingMetrics) find(name, table string) []metric {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []metric
	for _, m := range r.metrics {
		if m.name == name && m.tags["table"] == table {
			out = append(out, m)
		}
	}
	return out
}
