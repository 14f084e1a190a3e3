package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Params is the bag of operation-specific fields for one item. Values come
// from JSON/YAML decoding or host parameter resolution, so numbers may be
// float64, json.Number, or int depending on the source.
type Params map[string]any

// Has reports whether the key is present, even with a nil value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the string value for key, or "" if absent or not a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// StringOr returns the string value for key, or def if absent or empty.
func (p Params) StringOr(key, def string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return def
}

// RequireString returns the string value for key, failing with a
// ValidationError when the field is missing or empty.
func (p Params) RequireString(key string) (string, error) {
	s := p.String(key)
	if s == "" {
		return "", NewValidationError(key, "required field is missing")
	}
	return s, nil
}

// Int returns the integer value for key, or def when absent or unparsable.
// Accepts int, int64, float64, json.Number, and numeric strings.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the boolean value for key. Accepts bool and the strings
// "true"/"1". Missing or anything else is false.
func (p Params) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	}
	return false
}

// Map returns the map value for key, or nil.
func (p Params) Map(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}

// Slice returns the slice value for key, or nil. A map[string]any value is
// not a slice; callers that accept both must check separately.
func (p Params) Slice(key string) []any {
	s, _ := p[key].([]any)
	return s
}

// MapSlice returns the value for key as a slice of maps, tolerating both
// []any-of-maps and []map[string]any decodings.
func (p Params) MapSlice(key string) []map[string]any {
	if ms, ok := p[key].([]map[string]any); ok {
		return ms
	}
	raw := p.Slice(key)
	if raw == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// StringSlice returns the value for key normalized to a list of strings.
// Accepts a single string, a []string, or a []any of strings.
func (p Params) StringSlice(key string) []string {
	switch v := p[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(e))
			}
		}
		return out
	}
	return nil
}
