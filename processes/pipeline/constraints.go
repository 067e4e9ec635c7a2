package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/artie-labs/starsync/lib/dml"
	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/sql"
)

func newConstraintToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ConstraintApplier declares the advisory primary and foreign keys of every table. Nothing it does can fail a run.
type ConstraintApplier struct {
	warehouse mergeExecutor
	dataset   string
	newToken  func() string
}

func NewConstraintApplier(warehouse mergeExecutor, dataset string) *ConstraintApplier {
	return &ConstraintApplier{warehouse: warehouse, dataset: dataset, newToken: newConstraintToken}
}

// Apply declares primary keys for every table before any foreign key, so references always point at a declared key.
// Every failure is returned as a [ConstraintError].
func (c *ConstraintApplier) Apply(ctx context.Context, registry *schema.Registry) []error {
	token := c.newToken()
	unsupported := make(map[string]bool)

	var errs []error
	for _, table := range registry.Tables() {
		tableID := c.warehouse.IdentifierFor(c.dataset, table.Name())
		query, err := dml.BuildPrimaryKeyQuery(c.warehouse.Dialect(), tableID, table)
		if err != nil {
			if errors.Is(err, sql.ErrConstraintsUnsupported) {
				slog.Debug("Skipping constraints, the warehouse does not support them", slog.String("table", table.Name()))
				unsupported[table.Name()] = true
				continue
			}

			errs = append(errs, &ConstraintError{Table: table.Name(), Err: err})
			continue
		}

		errs = append(errs, c.execute(ctx, table.Name(), query)...)
	}

	for _, table := range registry.Tables() {
		if unsupported[table.Name()] {
			continue
		}

		tableID := c.warehouse.IdentifierFor(c.dataset, table.Name())
		queries, err := dml.BuildForeignKeyQueries(c.warehouse.Dialect(), tableID, table, token)
		if err != nil {
			if !errors.Is(err, sql.ErrConstraintsUnsupported) {
				errs = append(errs, &ConstraintError{Table: table.Name(), Err: err})
			}
			continue
		}

		for _, query := range queries {
			errs = append(errs, c.execute(ctx, table.Name(), query)...)
		}
	}

	return errs
}

func (c *ConstraintApplier) execute(ctx context.Context, table string, query dml.ConstraintQuery) []error {
	var errs []error
	for _, statement := range query.Statements {
		if err := c.warehouse.ExecuteStatement(ctx, statement); err != nil {
			slog.Warn("Failed to apply constraint",
				slog.String("table", table),
				slog.String("kind", string(query.Kind)),
				slog.Any("columns", query.Columns),
				slog.Any("err", err),
			)
			errs = append(errs, &ConstraintError{Table: table, Statement: statement, Err: err})
		}
	}
	return errs
}
