package sql

import (
	"errors"

	"github.com/artie-labs/starsync/lib/typing"
)

// ErrConstraintsUnsupported is returned by dialects whose engine cannot declare advisory key constraints.
var ErrConstraintsUnsupported = errors.New("advisory constraints are not supported by this dialect")

type TableIdentifier interface {
	Dataset() string
	Table() string
	WithTable(table string) TableIdentifier
	FullyQualifiedName() string
}

type Dialect interface {
	QuoteIdentifier(identifier string) string
	DataTypeForKind(kind typing.Kind) string
	IsTableDoesNotExistErr(err error) bool
	BuildCreateTableQuery(tableID TableIdentifier, colSQLParts []string, primaryKeys []string) string
	// BuildDedupeQuery returns a parenthesized subquery that keeps one row per primary key, picking the row with the highest [orderBy].
	BuildDedupeQuery(tableID TableIdentifier, primaryKeys []string, orderBy string) string
	// BuildMergeQuery upserts [subQuery] into [tableID]: matched rows get [updateCols] overwritten, the rest are inserted with [cols].
	BuildMergeQuery(tableID TableIdentifier, subQuery string, primaryKeys, updateCols, cols []string) string
	BuildDropPrimaryKeyQuery(tableID TableIdentifier) (string, error)
	BuildAddPrimaryKeyQuery(tableID TableIdentifier, primaryKeys []string) (string, error)
	BuildAddForeignKeyQuery(tableID TableIdentifier, constraintName string, column string, referencedTableID TableIdentifier) (string, error)
}
