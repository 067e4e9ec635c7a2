package dialect

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artie-labs/starsync/lib/sql"
	"github.com/artie-labs/starsync/lib/typing"
)

func TestTableIdentifier(t *testing.T) {
	tableID := NewTableIdentifier("library", "work")
	assert.Equal(t, "library", tableID.Dataset())
	assert.Equal(t, "work", tableID.Table())
	assert.Equal(t, "library__work", tableID.PhysicalName())
	assert.Equal(t, `"library__work"`, tableID.FullyQualifiedName())
	assert.Equal(t, "library__", TablePrefix("library"))

	other := tableID.WithTable("author")
	assert.Equal(t, `"library__author"`, other.FullyQualifiedName())
	assert.Equal(t, "library", other.Dataset())
}

func TestSQLiteDialect_QuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"foo"`, SQLiteDialect{}.QuoteIdentifier("foo"))
	assert.Equal(t, `"fo""o"`, SQLiteDialect{}.QuoteIdentifier(`fo"o`))
}

func TestSQLiteDialect_DataTypeForKind(t *testing.T) {
	dialect := SQLiteDialect{}
	assert.Equal(t, "INTEGER", dialect.DataTypeForKind(typing.Integer))
	assert.Equal(t, "REAL", dialect.DataTypeForKind(typing.Float))
	assert.Equal(t, "TEXT", dialect.DataTypeForKind(typing.String))
	assert.Equal(t, "TEXT", dialect.DataTypeForKind(typing.Date))
}

func TestSQLiteDialect_IsTableDoesNotExistErr(t *testing.T) {
	assert.False(t, SQLiteDialect{}.IsTableDoesNotExistErr(nil))
	assert.True(t, SQLiteDialect{}.IsTableDoesNotExistErr(fmt.Errorf("SQL logic error: no such table: library__work (1)")))
}

func TestSQLiteDialect_BuildCreateTableQuery(t *testing.T) {
	tableID := NewTableIdentifier("library", "work_author")
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "library__work_author" ("work_id" INTEGER,"author_id" INTEGER, PRIMARY KEY ("work_id", "author_id"))`,
		SQLiteDialect{}.BuildCreateTableQuery(tableID, []string{`"work_id" INTEGER`, `"author_id" INTEGER`}, []string{"work_id", "author_id"}),
	)
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "library_staging__work_author" ("work_id" INTEGER)`,
		SQLiteDialect{}.BuildCreateTableQuery(NewTableIdentifier("library_staging", "work_author"), []string{`"work_id" INTEGER`}, nil),
	)
}

func TestSQLiteDialect_BuildMergeQuery(t *testing.T) {
	dialect := SQLiteDialect{}
	targetID := NewTableIdentifier("library", "work")
	stagingID := NewTableIdentifier("library_staging", "work")
	subQuery := dialect.BuildDedupeQuery(stagingID, []string{"work_id"}, "__starsync_seq")
	assert.Equal(t,
		`(SELECT * FROM (SELECT *, ROW_NUMBER() OVER (PARTITION BY "work_id" ORDER BY "__starsync_seq" DESC) AS "__starsync_rn" FROM "library_staging__work") WHERE "__starsync_rn" = 1)`,
		subQuery,
	)
	{
		assert.Equal(t,
			`INSERT INTO "library__work" ("work_id","title") SELECT stg."work_id",stg."title" FROM `+subQuery+` AS stg WHERE true ON CONFLICT ("work_id") DO UPDATE SET "title"=excluded."title";`,
			dialect.BuildMergeQuery(targetID, subQuery, []string{"work_id"}, []string{"title"}, []string{"work_id", "title"}),
		)
	}
	{
		// Only key columns
		assert.Equal(t,
			`INSERT INTO "library__work" ("work_id") SELECT stg."work_id" FROM `+subQuery+` AS stg WHERE true ON CONFLICT ("work_id") DO NOTHING;`,
			dialect.BuildMergeQuery(targetID, subQuery, []string{"work_id"}, nil, []string{"work_id"}),
		)
	}
}

func TestSQLiteDialect_Constraints(t *testing.T) {
	dialect := SQLiteDialect{}
	tableID := NewTableIdentifier("library", "work")

	_, err := dialect.BuildDropPrimaryKeyQuery(tableID)
	assert.ErrorIs(t, err, sql.ErrConstraintsUnsupported)

	_, err = dialect.BuildAddPrimaryKeyQuery(tableID, []string{"work_id"})
	assert.ErrorIs(t, err, sql.ErrConstraintsUnsupported)

	_, err = dialect.BuildAddForeignKeyQuery(tableID, "fk", "publisher_id", tableID.WithTable("publisher"))
	assert.ErrorIs(t, err, sql.ErrConstraintsUnsupported)
}
