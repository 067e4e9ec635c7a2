package library

import (
	"fmt"

	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/typing"
)

type field struct {
	name string
	kind typing.Kind
	tags string
}

type table struct {
	name   string
	fields []field
}

// tables is the library star schema, dimensions and facts together, in the order they are synced.
var tables = []table{
	{"work", []field{
		{"work_id", typing.Integer, "PK"},
		{"publisher_id", typing.Integer, "FK publisher"},
		{"subject_id", typing.Integer, "FK subject"},
		{"title", typing.String, ""},
		{"release_year", typing.Integer, ""},
		{"weight", typing.Float, ""},
	}},
	{"subject", []field{
		{"subject_id", typing.Integer, "PK"},
		{"subject_name", typing.String, ""},
	}},
	{"work_author", []field{
		{"work_id", typing.Integer, "PK FK work"},
		{"author_id", typing.Integer, "PK FK author"},
		{"coefficient", typing.Float, ""},
	}},
	{"medium", []field{
		{"medium_id", typing.Integer, "PK"},
		{"medium_name", typing.String, ""},
	}},
	{"listing_type", []field{
		{"listing_type_id", typing.Integer, "PK"},
		{"listing_type_name", typing.String, ""},
	}},
	{"language", []field{
		{"language_id", typing.String, "PK"},
		{"language_name", typing.String, ""},
		{"speakers", typing.Integer, ""},
	}},
	{"date", []field{
		{"year", typing.Integer, ""},
		{"month", typing.String, ""},
		{"quarter", typing.String, ""},
		{"date", typing.Date, ""},
		{"date_id", typing.Integer, "PK"},
	}},
	{"user", []field{
		{"user_id", typing.Integer, "PK"},
		{"age_group", typing.String, ""},
		{"gender", typing.String, ""},
		{"first_name", typing.String, ""},
		{"full_name", typing.String, ""},
	}},
	{"return_fact", []field{
		{"pages", typing.Integer, ""},
		{"items_left", typing.Integer, ""},
		{"work_age", typing.Integer, ""},
		{"reader_age", typing.Integer, ""},
		{"days_loaned", typing.Integer, ""},
		{"user_id", typing.Integer, "PK FK user"},
		{"date_id", typing.Integer, "PK FK date"},
		{"work_id", typing.Integer, "PK FK work"},
		{"medium_id", typing.Integer, ""},
		{"language_id", typing.String, ""},
	}},
	{"rating_fact", []field{
		{"pages", typing.Integer, ""},
		{"score", typing.Integer, ""},
		{"work_age", typing.Integer, ""},
		{"reader_age", typing.Integer, ""},
		{"user_id", typing.Integer, "PK FK user"},
		{"date_id", typing.Integer, ""},
		{"work_id", typing.Integer, "PK FK work"},
		{"language_id", typing.String, ""},
	}},
	{"listing_fact", []field{
		{"pages", typing.Integer, ""},
		{"work_age", typing.Integer, ""},
		{"reader_age", typing.Integer, ""},
		{"user_id", typing.Integer, "PK FK user"},
		{"date_id", typing.Integer, "FK date"},
		{"work_id", typing.Integer, "PK FK work"},
		{"language_id", typing.String, ""},
		{"listing_type_id", typing.Integer, "PK FK listing_type"},
	}},
	{"author", []field{
		{"author_id", typing.Integer, "PK"},
		{"author_name", typing.String, ""},
	}},
	{"publisher", []field{
		{"publisher_id", typing.Integer, "PK"},
		{"publisher_name", typing.String, ""},
	}},
}

func Tables() ([]schema.TableDescriptor, error) {
	out := make([]schema.TableDescriptor, 0, len(tables))
	for _, tbl := range tables {
		columns := make([]schema.ColumnDescriptor, 0, len(tbl.fields))
		for _, f := range tbl.fields {
			col, err := schema.NewColumn(f.name, f.kind).WithTags(f.tags)
			if err != nil {
				return nil, fmt.Errorf("table %q: %w", tbl.name, err)
			}
			columns = append(columns, col)
		}
		out = append(out, schema.NewTableDescriptor(tbl.name, columns...))
	}
	return out, nil
}

// NewRegistry returns the registry of every library table.
func NewRegistry() (*schema.Registry, error) {
	descriptors, err := Tables()
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(descriptors...)
}
