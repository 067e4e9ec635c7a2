package destination

import (
	"context"
	"fmt"

	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/source"
	sqllib "github.com/artie-labs/starsync/lib/sql"
)

type WriteMode string

// Append is the only supported mode, staged rows are never overwritten during a run.
const Append WriteMode = "append"

func (w WriteMode) Validate() error {
	if w != Append {
		return fmt.Errorf("unsupported write mode: %q", w)
	}
	return nil
}

// DialectAware is implemented by every warehouse so statements can be generated without talking to it.
type DialectAware interface {
	Dialect() sqllib.Dialect
	IdentifierFor(dataset, table string) sqllib.TableIdentifier
}

type DatasetManager interface {
	CreateDataset(ctx context.Context, name string, existsOK bool) error
	DeleteDataset(ctx context.Context, name string, deleteContents, notFoundOK bool) error
}

type TableWriter interface {
	// GetOrCreateTable creates [tableID] from [table] unless it already exists. Existing tables are left untouched.
	GetOrCreateTable(ctx context.Context, tableID sqllib.TableIdentifier, table schema.TableDescriptor) error
	WriteRows(ctx context.Context, tableID sqllib.TableIdentifier, table schema.TableDescriptor, rows []source.Row, mode WriteMode) error
}

type StatementExecutor interface {
	ExecuteStatement(ctx context.Context, query string) error
}

// Warehouse is the full interface the pipeline needs from a columnar warehouse.
type Warehouse interface {
	DialectAware
	DatasetManager
	TableWriter
	StatementExecutor
}
