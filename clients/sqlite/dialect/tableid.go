package dialect

import (
	"fmt"

	"github.com/artie-labs/starsync/lib/sql"
)

var _dialect = SQLiteDialect{}

// datasetSeparator joins the dataset and table names, SQLite has no schemas within a single database file.
const datasetSeparator = "__"

type TableIdentifier struct {
	dataset string
	table   string
}

func NewTableIdentifier(dataset, table string) TableIdentifier {
	return TableIdentifier{dataset: dataset, table: table}
}

// TablePrefix is shared by every table of [dataset].
func TablePrefix(dataset string) string {
	return dataset + datasetSeparator
}

func (ti TableIdentifier) Dataset() string {
	return ti.dataset
}

func (ti TableIdentifier) Table() string {
	return ti.table
}

func (ti TableIdentifier) WithTable(table string) sql.TableIdentifier {
	return NewTableIdentifier(ti.dataset, table)
}

// PhysicalName is the unquoted name of the table in the database file.
func (ti TableIdentifier) PhysicalName() string {
	return fmt.Sprintf("%s%s", TablePrefix(ti.dataset), ti.table)
}

func (ti TableIdentifier) FullyQualifiedName() string {
	return _dialect.QuoteIdentifier(ti.PhysicalName())
}
