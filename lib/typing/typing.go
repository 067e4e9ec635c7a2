package typing

import (
	"fmt"
	"strings"
)

// Kind is the scalar type of a column. The warehouse clients map it to their own data types.
type Kind string

const (
	Invalid Kind = "invalid"
	Integer Kind = "integer"
	Float   Kind = "float"
	String  Kind = "string"
	Date    Kind = "date"
)

func (k Kind) IsValid() bool {
	switch k {
	case Integer, Float, String, Date:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts our own kind names as well as the BigQuery legacy and standard SQL spellings.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "integer", "int", "int64", "bigint":
		return Integer, nil
	case "float", "float64", "double":
		return Float, nil
	case "string", "text", "varchar":
		return String, nil
	case "date":
		return Date, nil
	default:
		return Invalid, fmt.Errorf("unsupported kind: %q", value)
	}
}
