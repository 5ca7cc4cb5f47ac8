package record

import (
	"encoding/json"
	"math"
	"strconv"
)

// =============================================================================
// FIELD CANDIDATE RESOLUTION
// The vendor API is inconsistent between endpoints: the same logical field
// appears under different names depending on which endpoint produced the
// payload. Each target attribute therefore tries an ordered candidate list
// and takes the first non-empty value.
// =============================================================================

// pickString returns the first non-empty string value among the candidate
// keys, coercing JSON numbers to their decimal form. Empty string when no
// candidate matches.
func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := coerceString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// pickMap returns the first candidate whose value is a JSON object.
func pickMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if sub, ok := m[k].(map[string]any); ok {
			return sub
		}
	}
	return nil
}

// pickSlice returns the first candidate whose value is a JSON array.
func pickSlice(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if arr, ok := m[k].([]any); ok {
			return arr
		}
	}
	return nil
}

// pickInt returns the first candidate coercible to an integer, else 0.
func pickInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

// coerceString renders a scalar JSON value as a string. Whole-number floats
// (the usual shape of vendor ids after json.Unmarshal) lose the trailing
// fraction; anything non-scalar renders as compact JSON.
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
