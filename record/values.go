package record

import "math"

// Float reads a numeric value as float64.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	}
	return 0, false
}

// Int reads an integral value. Floats are accepted when they carry no
// fractional part, since JSON numbers always decode as float64.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int64:
		return int(t), true
	case int:
		return t, true
	case int32:
		return int(t), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < math.MaxInt64 {
			return int(t), true
		}
	}
	return 0, false
}

// Bool reads a boolean. Integer 0 and 1 are accepted as well.
func Bool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if n, ok := Int(v); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}

// String reads a string value.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// List reads a normalized sequence.
func List(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// Map reads a normalized mapping.
func Map(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
