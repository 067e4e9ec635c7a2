package pipeline

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/destination"
	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/source"
)

type stagingWriter interface {
	destination.DialectAware
	destination.TableWriter
}

// Stager appends extracted rows to the staging tables. It is scoped to one run: the sequence numbers it hands out
// order staged rows per table across every call of that run.
type Stager struct {
	warehouse stagingWriter
	dataset   string

	mu        sync.Mutex
	sequences map[string]int64
}

func NewStager(warehouse stagingWriter, stagingDataset string) *Stager {
	return &Stager{
		warehouse: warehouse,
		dataset:   stagingDataset,
		sequences: make(map[string]int64),
	}
}

// reserve returns the first of [n] consecutive sequence numbers for [table].
func (s *Stager) reserve(table string, n int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.sequences[table]
	s.sequences[table] += int64(n)
	return start
}

// checkPrimaryKeys rejects rows with a null primary key value, those can never be matched by a merge and would be
// inserted again on every merge of the same staging contents.
func checkPrimaryKeys(table schema.TableDescriptor, rows []source.Row) error {
	primaryKeys := table.PrimaryKeyNames()
	for i, row := range rows {
		for _, pk := range primaryKeys {
			if row[pk] == nil {
				return fmt.Errorf("row %d of table %q has a null primary key column %q", i, table.Name(), pk)
			}
		}
	}
	return nil
}

// Stage writes [rows] to the staging table of [table]. A batch with a null primary key value is rejected as a whole.
func (s *Stager) Stage(ctx context.Context, table schema.TableDescriptor, rows []source.Row) error {
	if len(rows) == 0 {
		return nil
	}

	if err := checkPrimaryKeys(table, rows); err != nil {
		return err
	}

	start := s.reserve(table.Name(), len(rows))
	staged := make([]source.Row, len(rows))
	for i, row := range rows {
		staged[i] = maps.Clone(row)
		if staged[i] == nil {
			staged[i] = make(source.Row, 1)
		}
		staged[i][constants.StagingSequenceColumn] = start + int64(i)
	}

	tableID := s.warehouse.IdentifierFor(s.dataset, table.Name())
	return s.warehouse.WriteRows(ctx, tableID, table.StagingDescriptor(), staged, destination.Append)
}
