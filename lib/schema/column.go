package schema

import (
	"fmt"
	"strings"

	"github.com/artie-labs/starsync/lib/typing"
)

const (
	primaryKeyTag = "PK"
	foreignKeyTag = "FK"
)

type ColumnDescriptor struct {
	Name     string
	Kind     typing.Kind
	Nullable bool
	// PrimaryKey - all the primary key columns of a table jointly form its key.
	PrimaryKey bool
	// References is the name of the table this column is a foreign key to, empty if it is not one.
	References string
}

func NewColumn(name string, kind typing.Kind) ColumnDescriptor {
	return ColumnDescriptor{Name: name, Kind: kind, Nullable: true}
}

func (c ColumnDescriptor) AsPrimaryKey() ColumnDescriptor {
	c.PrimaryKey = true
	return c
}

func (c ColumnDescriptor) AsForeignKey(table string) ColumnDescriptor {
	c.References = table
	return c
}

func (c ColumnDescriptor) AsRequired() ColumnDescriptor {
	c.Nullable = false
	return c
}

func (c ColumnDescriptor) IsForeignKey() bool {
	return c.References != ""
}

// WithTags applies role tags written the way BigQuery column descriptions carry them, e.g. "PK", "FK publisher" or "PK FK work".
func (c ColumnDescriptor) WithTags(tags string) (ColumnDescriptor, error) {
	primaryKey, references, err := ParseRoleTags(tags)
	if err != nil {
		return ColumnDescriptor{}, fmt.Errorf("column %q: %w", c.Name, err)
	}

	c.PrimaryKey = c.PrimaryKey || primaryKey
	if references != "" {
		c.References = references
	}
	return c, nil
}

func (c ColumnDescriptor) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name is empty")
	}

	if !c.Kind.IsValid() {
		return fmt.Errorf("column %q has an invalid kind: %q", c.Name, c.Kind)
	}

	return nil
}

// Tags is the inverse of [ParseRoleTags].
func (c ColumnDescriptor) Tags() string {
	var parts []string
	if c.PrimaryKey {
		parts = append(parts, primaryKeyTag)
	}
	if c.IsForeignKey() {
		parts = append(parts, foreignKeyTag, c.References)
	}
	return strings.Join(parts, " ")
}

func ParseRoleTags(tags string) (bool, string, error) {
	var primaryKey bool
	var references string

	fields := strings.Fields(tags)
	for i := 0; i < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case primaryKeyTag:
			primaryKey = true
		case foreignKeyTag:
			if i+1 >= len(fields) {
				return false, "", fmt.Errorf("foreign key tag is missing its target table: %q", tags)
			}

			if references != "" {
				return false, "", fmt.Errorf("column can only reference one table: %q", tags)
			}

			references = fields[i+1]
			i++
		default:
			return false, "", fmt.Errorf("unexpected tag %q in %q", fields[i], tags)
		}
	}

	return primaryKey, references, nil
}
