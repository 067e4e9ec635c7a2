package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/typing"
)

func TestParseRoleTags(t *testing.T) {
	{
		// Empty
		pk, references, err := ParseRoleTags("")
		assert.NoError(t, err)
		assert.False(t, pk)
		assert.Empty(t, references)
	}
	{
		// PK
		pk, references, err := ParseRoleTags("PK")
		assert.NoError(t, err)
		assert.True(t, pk)
		assert.Empty(t, references)
	}
	{
		// FK
		pk, references, err := ParseRoleTags("FK publisher")
		assert.NoError(t, err)
		assert.False(t, pk)
		assert.Equal(t, "publisher", references)
	}
	{
		// PK + FK
		pk, references, err := ParseRoleTags("PK FK work")
		assert.NoError(t, err)
		assert.True(t, pk)
		assert.Equal(t, "work", references)
	}
	{
		// FK without a target
		_, _, err := ParseRoleTags("PK FK")
		assert.ErrorContains(t, err, "foreign key tag is missing its target table")
	}
	{
		// Two FK targets
		_, _, err := ParseRoleTags("FK a FK b")
		assert.ErrorContains(t, err, "column can only reference one table")
	}
	{
		// Unknown tag
		_, _, err := ParseRoleTags("UNIQUE")
		assert.ErrorContains(t, err, `unexpected tag "UNIQUE"`)
	}
}

func TestColumnDescriptor_Tags(t *testing.T) {
	col, err := NewColumn("work_id", typing.Integer).WithTags("PK FK work")
	assert.NoError(t, err)
	assert.Equal(t, "PK FK work", col.Tags())
	assert.True(t, col.PrimaryKey)
	assert.True(t, col.IsForeignKey())

	assert.Equal(t, "", NewColumn("title", typing.String).Tags())

	_, err = NewColumn("bad", typing.String).WithTags("FK")
	assert.ErrorContains(t, err, `column "bad": foreign key tag is missing its target table`)
}

func workAuthor() TableDescriptor {
	return NewTableDescriptor("work_author",
		NewColumn("work_id", typing.Integer).AsPrimaryKey().AsForeignKey("work"),
		NewColumn("author_id", typing.Integer).AsPrimaryKey().AsForeignKey("author"),
		NewColumn("coefficient", typing.Float),
	)
}

func TestTableDescriptor(t *testing.T) {
	table := workAuthor()
	assert.Equal(t, "work_author", table.Name())
	assert.Equal(t, []string{"work_id", "author_id", "coefficient"}, table.ColumnNames())
	assert.Equal(t, []string{"work_id", "author_id"}, table.PrimaryKeyNames())
	assert.Len(t, table.ForeignKeys(), 2)
	assert.Len(t, table.NonKeyColumns(), 1)
	assert.Equal(t, "coefficient", table.NonKeyColumns()[0].Name)
	assert.NoError(t, table.Validate())

	col, ok := table.Column("author_id")
	assert.True(t, ok)
	assert.Equal(t, "author", col.References)

	_, ok = table.Column("missing")
	assert.False(t, ok)

	{
		// Mutating the returned columns does not change the descriptor.
		cols := table.Columns()
		cols[0].Name = "changed"
		assert.Equal(t, "work_id", table.Columns()[0].Name)
	}
}

func TestTableDescriptor_StagingDescriptor(t *testing.T) {
	staging := workAuthor().StagingDescriptor()
	assert.Equal(t, "work_author", staging.Name())
	assert.Equal(t, []string{"work_id", "author_id", "coefficient", constants.StagingSequenceColumn}, staging.ColumnNames())
	assert.Empty(t, staging.PrimaryKeys())
	assert.Empty(t, staging.ForeignKeys())

	seq, ok := staging.Column(constants.StagingSequenceColumn)
	assert.True(t, ok)
	assert.Equal(t, typing.Integer, seq.Kind)
	assert.False(t, seq.Nullable)

	// The original descriptor is untouched.
	assert.Len(t, workAuthor().PrimaryKeys(), 2)
}

func TestTableDescriptor_Validate(t *testing.T) {
	assert.ErrorContains(t, NewTableDescriptor("").Validate(), "table name is empty")
	assert.ErrorContains(t, NewTableDescriptor("foo").Validate(), `table "foo" has no columns`)
	assert.ErrorContains(t, NewTableDescriptor("foo", NewColumn("a", typing.String)).Validate(), `table "foo" has no primary key columns`)
	assert.ErrorContains(t, NewTableDescriptor("foo",
		NewColumn("a", typing.String).AsPrimaryKey(),
		NewColumn("a", typing.Integer),
	).Validate(), `duplicate column "a"`)
	assert.ErrorContains(t, NewTableDescriptor("foo", NewColumn("a", typing.Invalid).AsPrimaryKey()).Validate(), `column "a" has an invalid kind`)
}

func TestRegistry(t *testing.T) {
	work := NewTableDescriptor("work", NewColumn("work_id", typing.Integer).AsPrimaryKey())
	author := NewTableDescriptor("author", NewColumn("author_id", typing.Integer).AsPrimaryKey())

	{
		registry, err := NewRegistry(work, author, workAuthor())
		require.NoError(t, err)
		assert.Equal(t, []string{"work", "author", "work_author"}, registry.TableNames())

		table, ok := registry.Get("work_author")
		assert.True(t, ok)
		assert.Equal(t, "work_author", table.Name())

		_, ok = registry.Get("missing")
		assert.False(t, ok)

		subset, err := registry.Subset([]string{"work_author", "work"})
		assert.NoError(t, err)
		// Declaration order is kept.
		assert.Equal(t, []string{"work", "work_author"}, subset.TableNames())

		_, err = registry.Subset([]string{"missing"})
		assert.ErrorContains(t, err, `table "missing" is not in the registry`)

		same, err := registry.Subset(nil)
		assert.NoError(t, err)
		assert.Equal(t, registry.TableNames(), same.TableNames())
	}
	{
		// Unknown FK target
		_, err := NewRegistry(work, workAuthor())
		assert.ErrorContains(t, err, `column "author_id" references unknown table "author"`)
	}
	{
		// Duplicate table
		_, err := NewRegistry(work, work)
		assert.ErrorContains(t, err, `table "work" is declared more than once`)
	}
	{
		// Invalid table
		_, err := NewRegistry(NewTableDescriptor("foo", NewColumn("a", typing.String)))
		assert.ErrorContains(t, err, "has no primary key columns")
	}
}
