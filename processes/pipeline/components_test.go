package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artie-labs/starsync/clients/sqlite"
	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/source"
	"github.com/artie-labs/starsync/lib/watermark"
)

func TestExtractor_Extract(t *testing.T) {
	registry, err := testRegistry()
	require.NoError(t, err)
	work, _ := registry.Get("work")
	author, _ := registry.Get("author")

	src := newFakeSource()
	src.add("work", day2, source.Row{"work_id": int64(1)}, source.Row{"work_id": int64(2)})
	extractor := NewExtractor(src, fakeQueries{})

	{
		keys := NewExtractionKeys()
		rows, err := extractor.Extract(t.Context(), keys, work, watermark.New(day1))
		assert.NoError(t, err)
		assert.Len(t, rows, 2)

		// The same query is not run twice within a run.
		rows, err = extractor.Extract(t.Context(), keys, work, watermark.New(day1))
		assert.NoError(t, err)
		assert.Nil(t, rows)
		assert.Equal(t, 1, src.callCount("work"))

		// A different watermark is a different query.
		rows, err = extractor.Extract(t.Context(), keys, work, watermark.New(day3))
		assert.NoError(t, err)
		assert.Empty(t, rows)
		assert.Equal(t, 2, src.callCount("work"))
	}
	{
		// Keys are scoped to a run.
		rows, err := extractor.Extract(t.Context(), NewExtractionKeys(), work, watermark.New(day1))
		assert.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, 3, src.callCount("work"))
	}
	{
		src.fail("author", fmt.Errorf("connection reset"))
		_, err := extractor.Extract(t.Context(), NewExtractionKeys(), author, watermark.Epoch)
		assert.ErrorContains(t, err, "failed to extract rows: connection reset")
	}
}

func newSQLiteStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.LoadStore(t.Context(), config.SQLite{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	require.NoError(t, store.CreateDataset(t.Context(), "library", true))
	require.NoError(t, store.CreateDataset(t.Context(), "library_staging", true))
	return store
}

func TestStager_Stage(t *testing.T) {
	registry, err := testRegistry()
	require.NoError(t, err)
	work, _ := registry.Get("work")

	store := newSQLiteStore(t)
	stagingID := store.IdentifierFor("library_staging", "work")
	require.NoError(t, store.GetOrCreateTable(t.Context(), stagingID, work.StagingDescriptor()))

	stager := NewStager(store, "library_staging")
	assert.NoError(t, stager.Stage(t.Context(), work, nil))

	first := []source.Row{{"work_id": int64(1), "title": "a"}, {"work_id": int64(2), "title": "b"}}
	assert.NoError(t, stager.Stage(t.Context(), work, first))
	assert.NoError(t, stager.Stage(t.Context(), work, []source.Row{{"work_id": int64(1), "title": "c"}}))

	// Extracted rows are not modified.
	assert.NotContains(t, first[0], constants.StagingSequenceColumn)

	rows, err := store.Query(t.Context(), `SELECT work_id, title, __starsync_seq AS seq FROM "library_staging__work" ORDER BY seq`)
	assert.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"work_id": int64(1), "title": "a", "seq": int64(0)},
		{"work_id": int64(2), "title": "b", "seq": int64(1)},
		{"work_id": int64(1), "title": "c", "seq": int64(2)},
	}, rows)

	{
		// A null or absent primary key value rejects the whole batch and consumes no sequence numbers.
		err := stager.Stage(t.Context(), work, []source.Row{{"work_id": int64(3), "title": "d"}, {"title": "e"}})
		assert.ErrorContains(t, err, `row 1 of table "work" has a null primary key column "work_id"`)
		assert.Equal(t, int64(3), stager.reserve("work", 0))

		rows, err := store.Query(t.Context(), `SELECT COUNT(*) AS n FROM "library_staging__work"`)
		assert.NoError(t, err)
		assert.Equal(t, []map[string]any{{"n": int64(3)}}, rows)
	}

	// A missing staging table is an error.
	author, _ := registry.Get("author")
	assert.ErrorContains(t, stager.Stage(t.Context(), author, []source.Row{{"author_id": int64(1)}}), "no such table")
}

func TestMerger_Merge(t *testing.T) {
	registry, err := testRegistry()
	require.NoError(t, err)
	work, _ := registry.Get("work")

	store := newSQLiteStore(t)
	require.NoError(t, store.GetOrCreateTable(t.Context(), store.IdentifierFor("library", "work"), work))
	require.NoError(t, store.GetOrCreateTable(t.Context(), store.IdentifierFor("library_staging", "work"), work.StagingDescriptor()))
	require.NoError(t, NewStager(store, "library_staging").Stage(t.Context(), work, []source.Row{
		{"work_id": int64(1), "title": "Dune"},
		{"work_id": int64(2), "title": "Emma"},
	}))

	merger := NewMerger(store, "library", "library_staging")
	read := func() []map[string]any {
		rows, err := store.Query(t.Context(), `SELECT work_id, title FROM "library__work" ORDER BY work_id`)
		require.NoError(t, err)
		return rows
	}

	assert.NoError(t, merger.Merge(t.Context(), work))
	once := read()
	assert.Len(t, once, 2)

	// Merging the same staging contents again is a no-op.
	assert.NoError(t, merger.Merge(t.Context(), work))
	assert.Equal(t, once, read())

	{
		// Null primary keys never reach staging, so merging stays idempotent.
		err := NewStager(store, "library_staging").Stage(t.Context(), work, []source.Row{
			{"work_id": int64(3), "title": "Ulysses"},
			{"work_id": nil, "title": "orphan"},
		})
		assert.ErrorContains(t, err, `row 1 of table "work" has a null primary key column "work_id"`)

		assert.NoError(t, merger.Merge(t.Context(), work))
		assert.NoError(t, merger.Merge(t.Context(), work))
		assert.Equal(t, once, read())
	}
	{
		// Missing target table
		author, _ := registry.Get("author")
		err := merger.Merge(t.Context(), author)
		var mergeErr *MergeError
		assert.ErrorAs(t, err, &mergeErr)
		assert.Equal(t, "author", mergeErr.Table)
		assert.True(t, store.Dialect().IsTableDoesNotExistErr(err))
	}
}

func TestConstraintApplier_Apply(t *testing.T) {
	registry, err := testRegistry()
	require.NoError(t, err)

	{
		executor := &recordingExecutor{}
		applier := NewConstraintApplier(executor, "library")
		applier.newToken = func() string { return "tok" }

		assert.Empty(t, applier.Apply(t.Context(), registry))
		assert.Equal(t, []string{
			"ALTER TABLE `project`.`library`.`author` DROP PRIMARY KEY IF EXISTS",
			"ALTER TABLE `project`.`library`.`author` ADD PRIMARY KEY (`author_id`) NOT ENFORCED",
			"ALTER TABLE `project`.`library`.`work` DROP PRIMARY KEY IF EXISTS",
			"ALTER TABLE `project`.`library`.`work` ADD PRIMARY KEY (`work_id`) NOT ENFORCED",
			"ALTER TABLE `project`.`library`.`work_author` DROP PRIMARY KEY IF EXISTS",
			// One declaration naming both key columns.
			"ALTER TABLE `project`.`library`.`work_author` ADD PRIMARY KEY (`work_id`, `author_id`) NOT ENFORCED",
			"ALTER TABLE `project`.`library`.`work_author` ADD CONSTRAINT `fk_work_author_work_id_tok` FOREIGN KEY (`work_id`) REFERENCES `project`.`library`.`work`(`work_id`) NOT ENFORCED",
			"ALTER TABLE `project`.`library`.`work_author` ADD CONSTRAINT `fk_work_author_author_id_tok` FOREIGN KEY (`author_id`) REFERENCES `project`.`library`.`author`(`author_id`) NOT ENFORCED",
		}, executor.statements)
	}
	{
		// Failures are collected, the remaining statements still run.
		executor := &recordingExecutor{failOn: "ADD PRIMARY KEY (`work_id`) NOT ENFORCED"}
		errs := NewConstraintApplier(executor, "library").Apply(t.Context(), registry)
		require.Len(t, errs, 1)

		var constraintErr *ConstraintError
		require.ErrorAs(t, errs[0], &constraintErr)
		assert.Equal(t, "work", constraintErr.Table)
		assert.Contains(t, constraintErr.Statement, "ADD PRIMARY KEY (`work_id`)")
		assert.Len(t, executor.statements, 8)
	}
	{
		// Tokens are fresh for every invocation.
		executor := &recordingExecutor{}
		applier := NewConstraintApplier(executor, "library")
		applier.Apply(t.Context(), registry)
		applier.Apply(t.Context(), registry)
		assert.Len(t, executor.statements, 16)
		assert.NotEqual(t, executor.statements[6], executor.statements[14])
	}
	{
		// SQLite cannot declare constraints, nothing is executed.
		store := newSQLiteStore(t)
		assert.Empty(t, NewConstraintApplier(store, "library").Apply(t.Context(), registry))
	}
}

func TestNewConstraintToken(t *testing.T) {
	token := newConstraintToken()
	assert.Len(t, token, 32)
	assert.NotContains(t, token, "-")
	assert.NotEqual(t, token, newConstraintToken())
}

func TestState(t *testing.T) {
	assert.True(t, Init.CanTransitionTo(ExtractStage))
	assert.False(t, Init.CanTransitionTo(Failed))
	assert.True(t, ExtractStage.CanTransitionTo(Failed))
	assert.True(t, AwaitStagingComplete.CanTransitionTo(Failed))
	for _, state := range []State{Merge, ApplyConstraints, AdvanceWatermark, ResetStaging} {
		assert.False(t, state.CanTransitionTo(Failed), state)
		assert.False(t, state.IsTerminal(), state)
	}
	assert.True(t, Done.IsTerminal())
	assert.True(t, Failed.IsTerminal())

	result := newRunResult([]string{"work"})
	assert.Panics(t, func() { result.transition(Merge) })
	result.transition(ExtractStage)
	assert.Equal(t, []State{Init, ExtractStage}, result.History)
}

func TestRunResult_Failed(t *testing.T) {
	result := newRunResult([]string{"work", "author"})
	assert.False(t, result.Failed())

	result.Tables["work"].ConstraintErrs = []error{fmt.Errorf("boom")}
	assert.False(t, result.Failed())

	result.Tables["author"].MergeErr = &MergeError{Table: "author", Err: fmt.Errorf("boom")}
	assert.True(t, result.MergeFailed())
	assert.True(t, result.Failed())
}
