package converters

import (
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	jsoniter "github.com/json-iterator/go"

	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/source"
	"github.com/artie-labs/starsync/lib/typing"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func FieldType(kind typing.Kind) (bigquery.FieldType, error) {
	switch kind {
	case typing.Integer:
		return bigquery.IntegerFieldType, nil
	case typing.Float:
		return bigquery.FloatFieldType, nil
	case typing.String:
		return bigquery.StringFieldType, nil
	case typing.Date:
		return bigquery.DateFieldType, nil
	default:
		return "", fmt.Errorf("unsupported kind: %q", kind)
	}
}

// ToSchema builds the BigQuery schema of [table]. Role tags are kept in the column descriptions so they can be read back
// off the warehouse, e.g. "PK FK work".
func ToSchema(table schema.TableDescriptor) (bigquery.Schema, error) {
	var out bigquery.Schema
	for _, col := range table.Columns() {
		fieldType, err := FieldType(col.Kind)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}

		out = append(out, &bigquery.FieldSchema{
			Name:        col.Name,
			Type:        fieldType,
			Required:    !col.Nullable,
			Description: col.Tags(),
		})
	}
	return out, nil
}

// ToValues casts [row] into the column order of [table], columns missing from the row are written as NULL.
func ToValues(table schema.TableDescriptor, row source.Row) ([]bigquery.Value, error) {
	columns := table.Columns()
	values := make([]bigquery.Value, len(columns))
	for i, col := range columns {
		value, err := typing.Cast(row[col.Name], col.Kind)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		values[i] = value
	}
	return values, nil
}

// EncodeJSONRow returns [row] as a single newline delimited JSON record, the format load jobs read.
func EncodeJSONRow(table schema.TableDescriptor, row source.Row) ([]byte, error) {
	values, err := ToValues(table, row)
	if err != nil {
		return nil, err
	}

	object := make(map[string]any, len(values))
	for i, name := range table.ColumnNames() {
		if date, ok := values[i].(civil.Date); ok {
			object[name] = date.String()
		} else {
			object[name] = values[i]
		}
	}

	bytes, err := json.Marshal(object)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal row: %w", err)
	}
	return append(bytes, '\n'), nil
}
