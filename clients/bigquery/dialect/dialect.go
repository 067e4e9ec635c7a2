package dialect

import (
	"fmt"
	"strings"

	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/sql"
	"github.com/artie-labs/starsync/lib/typing"
)

type BigQueryDialect struct{}

func (BigQueryDialect) QuoteIdentifier(identifier string) string {
	// BigQuery needs backticks to quote.
	return fmt.Sprintf("`%s`", strings.ReplaceAll(identifier, "`", ""))
}

func (BigQueryDialect) DataTypeForKind(kind typing.Kind) string {
	switch kind {
	case typing.Integer:
		return "INT64"
	case typing.Float:
		return "FLOAT64"
	case typing.Date:
		return "DATE"
	default:
		return "STRING"
	}
}

func (BigQueryDialect) IsTableDoesNotExistErr(err error) bool {
	if err == nil {
		return false
	}

	// Not found: Table project:dataset.table was not found in location US
	return strings.Contains(err.Error(), "Not found: Table")
}

func (bd BigQueryDialect) BuildCreateTableQuery(tableID sql.TableIdentifier, colSQLParts []string, primaryKeys []string) string {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s", tableID.FullyQualifiedName(), strings.Join(colSQLParts, ","))
	if len(primaryKeys) > 0 {
		query += fmt.Sprintf(", PRIMARY KEY (%s) NOT ENFORCED", strings.Join(sql.QuoteIdentifiers(primaryKeys, bd), ", "))
	}
	return query + ")"
}

func (bd BigQueryDialect) BuildDedupeQuery(tableID sql.TableIdentifier, primaryKeys []string, orderBy string) string {
	return fmt.Sprintf(`(SELECT * FROM %s QUALIFY ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s DESC) = 1)`,
		tableID.FullyQualifiedName(),
		strings.Join(sql.QuoteIdentifiers(primaryKeys, bd), ", "),
		bd.QuoteIdentifier(orderBy),
	)
}

func (bd BigQueryDialect) BuildMergeQuery(tableID sql.TableIdentifier, subQuery string, primaryKeys, updateCols, cols []string) string {
	query := fmt.Sprintf(`MERGE INTO %s %s USING %s AS %s ON %s`,
		tableID.FullyQualifiedName(), constants.TargetAlias, subQuery, constants.StagingAlias, sql.BuildColumnComparisons(primaryKeys, bd),
	)

	if len(updateCols) > 0 {
		query += fmt.Sprintf(`
WHEN MATCHED THEN UPDATE SET %s`, sql.BuildColumnsUpdateFragment(updateCols, bd))
	}

	return query + fmt.Sprintf(`
WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);`,
		strings.Join(sql.QuoteIdentifiers(cols, bd), ","),
		strings.Join(sql.QuoteTableAliasColumns(constants.StagingAlias, cols, bd), ","),
	)
}

func (BigQueryDialect) BuildDropPrimaryKeyQuery(tableID sql.TableIdentifier) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY IF EXISTS", tableID.FullyQualifiedName()), nil
}

func (bd BigQueryDialect) BuildAddPrimaryKeyQuery(tableID sql.TableIdentifier, primaryKeys []string) (string, error) {
	if len(primaryKeys) == 0 {
		return "", fmt.Errorf("primary keys cannot be empty")
	}

	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s) NOT ENFORCED",
		tableID.FullyQualifiedName(),
		strings.Join(sql.QuoteIdentifiers(primaryKeys, bd), ", "),
	), nil
}

func (bd BigQueryDialect) BuildAddForeignKeyQuery(tableID sql.TableIdentifier, constraintName string, column string, referencedTableID sql.TableIdentifier) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) NOT ENFORCED",
		tableID.FullyQualifiedName(),
		bd.QuoteIdentifier(constraintName),
		bd.QuoteIdentifier(column),
		referencedTableID.FullyQualifiedName(),
		bd.QuoteIdentifier(column),
	), nil
}
