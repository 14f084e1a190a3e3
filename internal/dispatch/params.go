// Package dispatch routes a (resource, operation) pair to its handler,
// builds exactly one backend call from the item's parameters, and reshapes
// the response into result items. Handlers are stateless; the backend
// client is passed explicitly.
package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/query"
)

// resolveRowData resolves the dual row-input representation into one
// canonical row object: either a list of {name, value} pairs or parsed JSON
// text, selected by the dataMode discriminator. Handlers past this point
// are mode-agnostic.
func resolveRowData(p model.Params) (map[string]any, error) {
	mode := p.StringOr("dataMode", "fields")
	switch mode {
	case "json":
		raw, err := p.RequireString("jsonData")
		if err != nil {
			return nil, err
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, model.Validationf("jsonData", "invalid JSON: %v", err)
		}
		return row, nil
	case "fields":
		entries := p.MapSlice("fields")
		if len(entries) == 0 {
			return nil, model.NewValidationError("fields", "at least one field is required")
		}
		row := make(map[string]any, len(entries))
		for _, e := range entries {
			name, _ := e["name"].(string)
			if name == "" {
				return nil, model.NewValidationError("fields", "field entry is missing a name")
			}
			row[name] = e["value"]
		}
		return row, nil
	default:
		return nil, model.Validationf("dataMode", "unknown data mode %q: must be fields or json", mode)
	}
}

// resolveFilters resolves both filter representations into one ordered
// filter chain: the list form under "filters", or the advanced column map
// under "filtersJson".
func resolveFilters(p model.Params, strict bool) ([]query.RowFilter, error) {
	if adv := p.Map("filtersJson"); adv != nil {
		return query.ParseAdvancedFilters(adv, strict)
	}
	return query.ParseFilterList(p.MapSlice("filters"), strict)
}

func resolveSorts(p model.Params) ([]query.RowSort, error) {
	return query.ParseSortList(p.MapSlice("sort"))
}

// resolveColumnList accepts either a comma-separated string or a list of
// strings under the given key.
func resolveColumnList(p model.Params, key string) []string {
	if s := p.String(key); s != "" {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if c := strings.TrimSpace(part); c != "" {
				out = append(out, c)
			}
		}
		return out
	}
	return p.StringSlice(key)
}

// resolveColumnDefinition builds a ColumnDefinition from a parameter map.
// Nullable defaults to true when absent.
func resolveColumnDefinition(m map[string]any) query.ColumnDefinition {
	p := model.Params(m)
	nullable := true
	if p.Has("nullable") {
		nullable = p.Bool("nullable")
	}
	return query.ColumnDefinition{
		Name:         p.String("name"),
		Type:         p.String("type"),
		Nullable:     nullable,
		DefaultValue: p.String("defaultValue"),
		PrimaryKey:   p.Bool("primaryKey"),
		Unique:       p.Bool("unique"),
	}
}

// resolveBinaryData accepts raw bytes or a base64 string for the binary
// upload variant.
func resolveBinaryData(v any) ([]byte, error) {
	switch data := v.(type) {
	case nil:
		return nil, model.NewValidationError("binaryData", "required field is missing")
	case []byte:
		return data, nil
	case string:
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, model.Validationf("binaryData", "invalid base64 data: %v", err)
		}
		return decoded, nil
	default:
		return nil, model.NewValidationError("binaryData", "expected bytes or a base64 string")
	}
}
