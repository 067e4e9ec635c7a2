package dml

import (
	"fmt"
	"strings"

	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/sql"
)

type ConstraintKind string

const (
	PrimaryKey ConstraintKind = "primary_key"
	ForeignKey ConstraintKind = "foreign_key"
)

type ConstraintQuery struct {
	Kind ConstraintKind
	// Columns lists the column(s) the statement declares, all of the primary key columns jointly for [PrimaryKey].
	Columns    []string
	Statements []string
}

// ConstraintName builds a per-invocation unique name so we never collide with constraints left behind by earlier runs.
func ConstraintName(prefix, table, column, token string) string {
	return strings.ToLower(fmt.Sprintf("%s_%s_%s_%s", prefix, table, column, token))
}

// BuildPrimaryKeyQuery declares one primary key naming every primary key column of [table] together.
// The previous declaration is dropped first so the statement can be re-issued on every run.
func BuildPrimaryKeyQuery(dialect sql.Dialect, tableID sql.TableIdentifier, table schema.TableDescriptor) (ConstraintQuery, error) {
	primaryKeys := table.PrimaryKeyNames()
	if len(primaryKeys) == 0 {
		return ConstraintQuery{}, fmt.Errorf("table %q has no primary keys", table.Name())
	}

	dropQuery, err := dialect.BuildDropPrimaryKeyQuery(tableID)
	if err != nil {
		return ConstraintQuery{}, err
	}

	addQuery, err := dialect.BuildAddPrimaryKeyQuery(tableID, primaryKeys)
	if err != nil {
		return ConstraintQuery{}, err
	}

	return ConstraintQuery{
		Kind:       PrimaryKey,
		Columns:    primaryKeys,
		Statements: []string{dropQuery, addQuery},
	}, nil
}

// BuildForeignKeyQueries returns one declaration per foreign key column, referencing the same column name on the target table.
func BuildForeignKeyQueries(dialect sql.Dialect, tableID sql.TableIdentifier, table schema.TableDescriptor, token string) ([]ConstraintQuery, error) {
	var queries []ConstraintQuery
	for _, col := range table.ForeignKeys() {
		query, err := dialect.BuildAddForeignKeyQuery(
			tableID,
			ConstraintName("fk", table.Name(), col.Name, token),
			col.Name,
			tableID.WithTable(col.References),
		)
		if err != nil {
			return nil, err
		}

		queries = append(queries, ConstraintQuery{
			Kind:       ForeignKey,
			Columns:    []string{col.Name},
			Statements: []string{query},
		})
	}

	return queries, nil
}
