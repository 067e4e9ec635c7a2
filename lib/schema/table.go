package schema

import (
	"fmt"
	"slices"

	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/typing"
)

// TableDescriptor is immutable once built, so it is shared freely across goroutines.
type TableDescriptor struct {
	name    string
	columns []ColumnDescriptor
}

func NewTableDescriptor(name string, columns ...ColumnDescriptor) TableDescriptor {
	return TableDescriptor{
		name:    name,
		columns: slices.Clone(columns),
	}
}

func (t TableDescriptor) Name() string {
	return t.name
}

func (t TableDescriptor) Columns() []ColumnDescriptor {
	return slices.Clone(t.columns)
}

func (t TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

func (t TableDescriptor) Column(name string) (ColumnDescriptor, bool) {
	for _, col := range t.columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnDescriptor{}, false
}

// PrimaryKeys returns the primary key columns in declaration order.
func (t TableDescriptor) PrimaryKeys() []ColumnDescriptor {
	var cols []ColumnDescriptor
	for _, col := range t.columns {
		if col.PrimaryKey {
			cols = append(cols, col)
		}
	}
	return cols
}

func (t TableDescriptor) PrimaryKeyNames() []string {
	var names []string
	for _, col := range t.PrimaryKeys() {
		names = append(names, col.Name)
	}
	return names
}

func (t TableDescriptor) ForeignKeys() []ColumnDescriptor {
	var cols []ColumnDescriptor
	for _, col := range t.columns {
		if col.IsForeignKey() {
			cols = append(cols, col)
		}
	}
	return cols
}

func (t TableDescriptor) NonKeyColumns() []ColumnDescriptor {
	var cols []ColumnDescriptor
	for _, col := range t.columns {
		if !col.PrimaryKey {
			cols = append(cols, col)
		}
	}
	return cols
}

// StagingDescriptor describes the staging twin of this table: same columns without any key roles,
// plus the extraction sequence column appended at the end.
func (t TableDescriptor) StagingDescriptor() TableDescriptor {
	columns := make([]ColumnDescriptor, 0, len(t.columns)+1)
	for _, col := range t.columns {
		col.PrimaryKey = false
		col.References = ""
		col.Nullable = true
		columns = append(columns, col)
	}

	columns = append(columns, NewColumn(constants.StagingSequenceColumn, typing.Integer).AsRequired())
	return TableDescriptor{name: t.name, columns: columns}
}

func (t TableDescriptor) Validate() error {
	if t.name == "" {
		return fmt.Errorf("table name is empty")
	}

	if len(t.columns) == 0 {
		return fmt.Errorf("table %q has no columns", t.name)
	}

	seen := make(map[string]bool)
	for _, col := range t.columns {
		if err := col.Validate(); err != nil {
			return fmt.Errorf("table %q: %w", t.name, err)
		}

		if seen[col.Name] {
			return fmt.Errorf("table %q: duplicate column %q", t.name, col.Name)
		}
		seen[col.Name] = true
	}

	if len(t.PrimaryKeys()) == 0 {
		return fmt.Errorf("table %q has no primary key columns", t.name)
	}

	return nil
}
