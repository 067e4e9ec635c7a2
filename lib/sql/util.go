package sql

import (
	"fmt"
	"strings"

	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/schema"
)

func QuoteIdentifiers(identifiers []string, dialect Dialect) []string {
	result := make([]string, len(identifiers))
	for i, identifier := range identifiers {
		result[i] = dialect.QuoteIdentifier(identifier)
	}
	return result
}

func QuoteTableAliasColumn(tableAlias constants.TableAlias, column string, dialect Dialect) string {
	return fmt.Sprintf("%s.%s", tableAlias, dialect.QuoteIdentifier(column))
}

func QuoteTableAliasColumns(tableAlias constants.TableAlias, columns []string, dialect Dialect) []string {
	result := make([]string, len(columns))
	for i, column := range columns {
		result[i] = QuoteTableAliasColumn(tableAlias, column, dialect)
	}
	return result
}

// BuildColumnComparisons returns `tgt.a = stg.a AND tgt.b = stg.b` for the given columns.
func BuildColumnComparisons(columns []string, dialect Dialect) string {
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s = %s",
			QuoteTableAliasColumn(constants.TargetAlias, column, dialect),
			QuoteTableAliasColumn(constants.StagingAlias, column, dialect),
		)
	}
	return strings.Join(parts, " AND ")
}

// BuildColumnsUpdateFragment returns a list of strings like: `first_name`=stg.`first_name`,`last_name`=stg.`last_name`
func BuildColumnsUpdateFragment(columns []string, dialect Dialect) string {
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s=%s", dialect.QuoteIdentifier(column), QuoteTableAliasColumn(constants.StagingAlias, column, dialect))
	}
	return strings.Join(parts, ",")
}

// BuildColumnDefinitions returns the `name TYPE [NOT NULL]` parts for a CREATE TABLE statement.
func BuildColumnDefinitions(table schema.TableDescriptor, dialect Dialect) []string {
	columns := table.Columns()
	parts := make([]string, len(columns))
	for i, column := range columns {
		part := fmt.Sprintf("%s %s", dialect.QuoteIdentifier(column.Name), dialect.DataTypeForKind(column.Kind))
		if !column.Nullable {
			part += " NOT NULL"
		}
		parts[i] = part
	}
	return parts
}
