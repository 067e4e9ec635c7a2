package dml

import (
	"fmt"

	"github.com/artie-labs/starsync/lib/config/constants"
	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/sql"
)

// BuildMergeQuery generates the single upsert statement that reconciles [stagingID] into [targetID].
// Staging rows sharing a primary key are collapsed first, keeping the one extracted last.
func BuildMergeQuery(dialect sql.Dialect, targetID, stagingID sql.TableIdentifier, table schema.TableDescriptor) (string, error) {
	primaryKeys := table.PrimaryKeyNames()
	if len(primaryKeys) == 0 {
		return "", fmt.Errorf("table %q has no primary keys, cannot merge", table.Name())
	}

	var updateCols []string
	for _, col := range table.NonKeyColumns() {
		updateCols = append(updateCols, col.Name)
	}

	subQuery := dialect.BuildDedupeQuery(stagingID, primaryKeys, constants.StagingSequenceColumn)
	return dialect.BuildMergeQuery(targetID, subQuery, primaryKeys, updateCols, table.ColumnNames()), nil
}
