package dialect

import (
	"fmt"
	"strings"

	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/sql"
	"github.com/artie-labs/starsync/lib/typing"
)

type SQLiteDialect struct{}

func (SQLiteDialect) QuoteIdentifier(identifier string) string {
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(identifier, `"`, `""`))
}

func (SQLiteDialect) DataTypeForKind(kind typing.Kind) string {
	switch kind {
	case typing.Integer:
		return "INTEGER"
	case typing.Float:
		return "REAL"
	default:
		// Dates are stored as ISO-8601 text, which sorts and compares correctly.
		return "TEXT"
	}
}

func (SQLiteDialect) IsTableDoesNotExistErr(err error) bool {
	if err == nil {
		return false
	}

	return strings.Contains(err.Error(), "no such table")
}

func (sd SQLiteDialect) BuildCreateTableQuery(tableID sql.TableIdentifier, colSQLParts []string, primaryKeys []string) string {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s", tableID.FullyQualifiedName(), strings.Join(colSQLParts, ","))
	if len(primaryKeys) > 0 {
		query += fmt.Sprintf(", PRIMARY KEY (%s)", strings.Join(sql.QuoteIdentifiers(primaryKeys, sd), ", "))
	}
	return query + ")"
}

// BuildDedupeQuery - SQLite has no QUALIFY, so the row number is computed in a nested select.
func (sd SQLiteDialect) BuildDedupeQuery(tableID sql.TableIdentifier, primaryKeys []string, orderBy string) string {
	return fmt.Sprintf(`(SELECT * FROM (SELECT *, ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s DESC) AS %s FROM %s) WHERE %s = 1)`,
		strings.Join(sql.QuoteIdentifiers(primaryKeys, sd), ", "),
		sd.QuoteIdentifier(orderBy),
		sd.QuoteIdentifier(constants.RowNumberColumn),
		tableID.FullyQualifiedName(),
		sd.QuoteIdentifier(constants.RowNumberColumn),
	)
}

// BuildMergeQuery uses SQLite's upsert, which needs a unique index on [primaryKeys].
func (sd SQLiteDialect) BuildMergeQuery(tableID sql.TableIdentifier, subQuery string, primaryKeys, updateCols, cols []string) string {
	updates := make([]string, len(updateCols))
	for i, col := range updateCols {
		updates[i] = fmt.Sprintf("%s=excluded.%s", sd.QuoteIdentifier(col), sd.QuoteIdentifier(col))
	}

	conflictAction := "DO NOTHING"
	if len(updates) > 0 {
		conflictAction = "DO UPDATE SET " + strings.Join(updates, ",")
	}

	// The `WHERE true` is required, otherwise the parser reads ON CONFLICT as a join constraint.
	return fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s FROM %s AS %s WHERE true ON CONFLICT (%s) %s;`,
		tableID.FullyQualifiedName(),
		strings.Join(sql.QuoteIdentifiers(cols, sd), ","),
		strings.Join(sql.QuoteTableAliasColumns(constants.StagingAlias, cols, sd), ","),
		subQuery,
		constants.StagingAlias,
		strings.Join(sql.QuoteIdentifiers(primaryKeys, sd), ", "),
		conflictAction,
	)
}

func (SQLiteDialect) BuildDropPrimaryKeyQuery(_ sql.TableIdentifier) (string, error) {
	return "", sql.ErrConstraintsUnsupported
}

func (SQLiteDialect) BuildAddPrimaryKeyQuery(_ sql.TableIdentifier, _ []string) (string, error) {
	return "", sql.ErrConstraintsUnsupported
}

func (SQLiteDialect) BuildAddForeignKeyQuery(_ sql.TableIdentifier, _ string, _ string, _ sql.TableIdentifier) (string, error) {
	return "", sql.ErrConstraintsUnsupported
}
