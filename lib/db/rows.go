package db

import (
	"database/sql"
	"fmt"
)

// RowsToObjects reads every row into a map keyed by column name and closes [rows].
// Drivers that hand back text as []byte (MySQL, SQLite) are normalized to strings.
func RowsToObjects(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var objects []map[string]any
	for rows.Next() {
		row := make([]any, len(columns))
		rowPointers := make([]any, len(columns))
		for i := range row {
			rowPointers[i] = &row[i]
		}

		if err = rows.Scan(rowPointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		object := make(map[string]any, len(columns))
		for i, column := range columns {
			if bytes, ok := row[i].([]byte); ok {
				object[column] = string(bytes)
			} else {
				object[column] = row[i]
			}
		}

		objects = append(objects, object)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return objects, nil
}
