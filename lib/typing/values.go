package typing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var supportedDateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02 15:04:05.999999",
	"2006/01/02",
}

// Cast normalizes a value read from the source store into the canonical Go type for [kind]:
// int64, float64, string or [civil.Date]. Nil values are passed through.
func Cast(value any, kind Kind) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch kind {
	case Integer:
		return ToInt64(value)
	case Float:
		return ToFloat64(value)
	case String:
		return ToString(value)
	case Date:
		return ToDate(value)
	default:
		return nil, fmt.Errorf("unsupported kind: %q", kind)
	}
}

func ToInt64(value any) (int64, error) {
	switch castedValue := value.(type) {
	case int:
		return int64(castedValue), nil
	case int8:
		return int64(castedValue), nil
	case int16:
		return int64(castedValue), nil
	case int32:
		return int64(castedValue), nil
	case int64:
		return castedValue, nil
	case uint:
		if uint64(castedValue) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", castedValue)
		}
		return int64(castedValue), nil
	case uint8:
		return int64(castedValue), nil
	case uint16:
		return int64(castedValue), nil
	case uint32:
		return int64(castedValue), nil
	case uint64:
		if castedValue > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", castedValue)
		}
		return int64(castedValue), nil
	case float32:
		return floatToInt64(float64(castedValue))
	case float64:
		return floatToInt64(castedValue)
	case []byte:
		return parseInt64(string(castedValue))
	case string:
		return parseInt64(castedValue)
	default:
		return 0, fmt.Errorf("expected an integer, received %T with value %v", value, value)
	}
}

func floatToInt64(value float64) (int64, error) {
	if value != math.Trunc(value) || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("value %v is not a whole number", value)
	}

	if value > math.MaxInt64 || value < math.MinInt64 {
		return 0, fmt.Errorf("value %v overflows int64", value)
	}

	return int64(value), nil
}

func parseInt64(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
		return parsed, nil
	}

	// Postgres returns NUMERIC for EXTRACT(...), which comes through as "26" or "26.000000".
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q as an integer: %w", value, err)
	}

	return floatToInt64(parsed)
}

func ToFloat64(value any) (float64, error) {
	switch castedValue := value.(type) {
	case float32:
		return float64(castedValue), nil
	case float64:
		return castedValue, nil
	case []byte:
		return parseFloat64(string(castedValue))
	case string:
		return parseFloat64(castedValue)
	default:
		intValue, err := ToInt64(value)
		if err != nil {
			return 0, fmt.Errorf("expected a float, received %T with value %v", value, value)
		}
		return float64(intValue), nil
	}
}

func parseFloat64(value string) (float64, error) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q as a float: %w", value, err)
	}
	return parsed, nil
}

func ToString(value any) (string, error) {
	switch castedValue := value.(type) {
	case string:
		return castedValue, nil
	case []byte:
		return string(castedValue), nil
	case fmt.Stringer:
		return castedValue.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return fmt.Sprint(castedValue), nil
	default:
		return "", fmt.Errorf("expected a string, received %T with value %v", value, value)
	}
}

func ToDate(value any) (civil.Date, error) {
	switch castedValue := value.(type) {
	case civil.Date:
		return castedValue, nil
	case time.Time:
		return civil.DateOf(castedValue), nil
	case *time.Time:
		if castedValue == nil {
			return civil.Date{}, fmt.Errorf("received a nil *time.Time")
		}
		return civil.DateOf(*castedValue), nil
	case []byte:
		return parseDate(string(castedValue))
	case string:
		return parseDate(castedValue)
	default:
		return civil.Date{}, fmt.Errorf("expected a date, received %T with value %v", value, value)
	}
}

func parseDate(value string) (civil.Date, error) {
	value = strings.TrimSpace(value)
	for _, layout := range supportedDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return civil.DateOf(ts), nil
		}
	}

	return civil.Date{}, fmt.Errorf("failed to parse %q as a date", value)
}
