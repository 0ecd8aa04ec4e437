// Package jsonutil provides safe nested-field lookup over decoded JSON.
// Provider API responses vary in shape, so lookups take a path and a
// default instead of asserting structure.
package jsonutil

import "encoding/json"

// Decode parses a JSON document into the generic shape Get traverses.
func Decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get walks a decoded JSON value by object keys and array indexes.
// Path elements must be string (map key) or int (slice index).
func Get(v any, path ...any) (any, bool) {
	for _, p := range path {
		switch key := p.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil, false
			}
			v, ok = m[key]
			if !ok {
				return nil, false
			}
		case int:
			s, ok := v.([]any)
			if !ok || key < 0 || key >= len(s) {
				return nil, false
			}
			v = s[key]
		default:
			return nil, false
		}
	}
	if v == nil {
		return nil, false
	}
	return v, true
}

// String returns the string at path, or def.
func String(v any, def string, path ...any) string {
	got, ok := Get(v, path...)
	if !ok {
		return def
	}
	s, ok := got.(string)
	if !ok {
		return def
	}
	return s
}

// Float returns the number at path, or def. JSON numbers decode as float64.
func Float(v any, def float64, path ...any) float64 {
	got, ok := Get(v, path...)
	if !ok {
		return def
	}
	f, ok := got.(float64)
	if !ok {
		return def
	}
	return f
}

// Int returns the number at path truncated to int, or def.
func Int(v any, def int, path ...any) int {
	got, ok := Get(v, path...)
	if !ok {
		return def
	}
	f, ok := got.(float64)
	if !ok {
		return def
	}
	return int(f)
}

// Bool returns the boolean at path, or def.
func Bool(v any, def bool, path ...any) bool {
	got, ok := Get(v, path...)
	if !ok {
		return def
	}
	b, ok := got.(bool)
	if !ok {
		return def
	}
	return b
}

// Slice returns the array at path, or nil.
func Slice(v any, path ...any) []any {
	got, ok := Get(v, path...)
	if !ok {
		return nil
	}
	s, _ := got.([]any)
	return s
}
