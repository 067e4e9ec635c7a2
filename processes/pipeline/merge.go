package pipeline

import (
	"context"
	"log/slog"

	"github.com/artie-labs/starsync/lib/destination"
	"github.com/artie-labs/starsync/lib/dml"
	"github.com/artie-labs/starsync/lib/schema"
)

type mergeExecutor interface {
	destination.DialectAware
	destination.StatementExecutor
}

type Merger struct {
	warehouse      mergeExecutor
	dataset        string
	stagingDataset string
}

func NewMerger(warehouse mergeExecutor, dataset, stagingDataset string) *Merger {
	return &Merger{warehouse: warehouse, dataset: dataset, stagingDataset: stagingDataset}
}

// Merge upserts the staged rows of [table] into its target table with a single statement.
func (m *Merger) Merge(ctx context.Context, table schema.TableDescriptor) error {
	query, err := dml.BuildMergeQuery(
		m.warehouse.Dialect(),
		m.warehouse.IdentifierFor(m.dataset, table.Name()),
		m.warehouse.IdentifierFor(m.stagingDataset, table.Name()),
		table,
	)
	if err != nil {
		return &MergeError{Table: table.Name(), Err: err}
	}

	if err = m.warehouse.ExecuteStatement(ctx, query); err != nil {
		slog.Warn("Failed to merge table", slog.String("table", table.Name()), slog.Any("err", err))
		return &MergeError{Table: table.Name(), Err: err}
	}

	slog.Info("Merged table", slog.String("table", table.Name()))
	return nil
}
