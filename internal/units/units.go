// Package units converts heterogeneous sensor value encodings ("25°C",
// "77°F", "50%", bare numbers) into canonical float values: temperature in
// Celsius, humidity in percentage points.
package units

import (
	"strconv"
	"strings"
)

// Normalize converts a raw measurement value into a float64. The boolean is
// false when the value is absent (nil) or unparseable; callers treat that as
// a missing field, not an error.
func Normalize(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		return normalizeString(val)
	default:
		return 0, false
	}
}

func normalizeString(s string) (float64, bool) {
	s = strings.TrimSpace(s)

	switch {
	case strings.HasSuffix(s, "°C"):
		return parseFloat(strings.TrimSuffix(s, "°C"))
	case strings.HasSuffix(s, "°F"):
		f, ok := parseFloat(strings.TrimSuffix(s, "°F"))
		if !ok {
			return 0, false
		}
		return (f - 32) * 5 / 9, true
	case strings.HasSuffix(s, "%"):
		return parseFloat(strings.TrimSuffix(s, "%"))
	default:
		return parseFloat(s)
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
