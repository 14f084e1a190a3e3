package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/supabridge/supabridge/internal/model"
)

// FilterOperator is one of the comparison operators understood by the
// backend's row-filter syntax.
type FilterOperator string

const (
	OperatorEq    FilterOperator = "eq"
	OperatorNeq   FilterOperator = "neq"
	OperatorGt    FilterOperator = "gt"
	OperatorGte   FilterOperator = "gte"
	OperatorLt    FilterOperator = "lt"
	OperatorLte   FilterOperator = "lte"
	OperatorLike  FilterOperator = "like"
	OperatorIlike FilterOperator = "ilike"
	OperatorIs    FilterOperator = "is"
	OperatorIn    FilterOperator = "in"
	OperatorCs    FilterOperator = "cs"
	OperatorCd    FilterOperator = "cd"
)

var filterOperators = map[FilterOperator]bool{
	OperatorEq: true, OperatorNeq: true,
	OperatorGt: true, OperatorGte: true,
	OperatorLt: true, OperatorLte: true,
	OperatorLike: true, OperatorIlike: true,
	OperatorIs: true, OperatorIn: true,
	OperatorCs: true, OperatorCd: true,
}

// NormalizeOperator maps an operator string to a FilterOperator. Operators
// outside the enumerated set degrade to eq; with strict set, they fail with
// a ValidationError instead.
func NormalizeOperator(s string, strict bool) (FilterOperator, error) {
	op := FilterOperator(strings.ToLower(strings.TrimSpace(s)))
	if op == "" {
		return OperatorEq, nil
	}
	if filterOperators[op] {
		return op, nil
	}
	if strict {
		return "", model.Validationf("operator", "unknown filter operator %q", s)
	}
	return OperatorEq, nil
}

// RowFilter is one conjunctive predicate on a column. A list of RowFilter
// values is ANDed and must be applied in declaration order.
type RowFilter struct {
	Column   string
	Operator FilterOperator
	Value    any
}

// RowSort is one ordering directive. A sequence of RowSort entries yields a
// compound backend order (column1, then column2, ...).
type RowSort struct {
	Column    string
	Ascending bool
}

// ParamWriter receives translated query parameters in call order. The
// backend client's query builder implements it; tests substitute a recorder.
type ParamWriter interface {
	Add(key, value string)
}

// ApplyFilters translates filters into one builder call each, in declaration
// order. Column names are validated before use.
func ApplyFilters(w ParamWriter, filters []RowFilter) error {
	for _, f := range filters {
		if err := ValidateColumnName(f.Column); err != nil {
			return err
		}
		op := f.Operator
		if op == "" {
			op = OperatorEq
		}
		w.Add(f.Column, string(op)+"."+FormatFilterValue(op, f.Value))
	}
	return nil
}

// FormatFilterValue renders a filter value for the backend's op.value
// syntax. nil renders as null; the in operator takes a parenthesized list.
func FormatFilterValue(op FilterOperator, value any) string {
	if op == OperatorIn {
		return "(" + joinListValue(value) + ")"
	}
	return formatScalar(value)
}

func joinListValue(value any) string {
	switch v := value.(type) {
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = formatScalar(e)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	case string:
		// Already a comma-separated list from the parameter form.
		return v
	default:
		return formatScalar(value)
	}
}

func formatScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// ApplySorts translates sorts into a single compound order parameter, in
// declaration order. A nil or empty list adds nothing.
func ApplySorts(w ParamWriter, sorts []RowSort) error {
	if len(sorts) == 0 {
		return nil
	}
	parts := make([]string, len(sorts))
	for i, s := range sorts {
		if err := ValidateColumnName(s.Column); err != nil {
			return err
		}
		dir := "desc"
		if s.Ascending {
			dir = "asc"
		}
		parts[i] = s.Column + "." + dir
	}
	w.Add("order", strings.Join(parts, ","))
	return nil
}

// ParseFilterList resolves the list form of filters: one map per entry with
// column, operator, and value fields. Entry order is preserved.
func ParseFilterList(entries []map[string]any, strict bool) ([]RowFilter, error) {
	filters := make([]RowFilter, 0, len(entries))
	for _, e := range entries {
		col, _ := e["column"].(string)
		if col == "" {
			return nil, model.NewValidationError("filters", "filter entry is missing a column")
		}
		opStr, _ := e["operator"].(string)
		op, err := NormalizeOperator(opStr, strict)
		if err != nil {
			return nil, err
		}
		filters = append(filters, RowFilter{Column: col, Operator: op, Value: e["value"]})
	}
	return filters, nil
}

// ParseAdvancedFilters resolves the advanced form: a mapping from column
// name to either a raw scalar (implying eq) or a single-key {operator:
// value} mapping. Map keys have no declaration order, so columns are sorted
// for deterministic query construction.
func ParseAdvancedFilters(m map[string]any, strict bool) ([]RowFilter, error) {
	cols := make([]string, 0, len(m))
	for col := range m {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	filters := make([]RowFilter, 0, len(cols))
	for _, col := range cols {
		switch v := m[col].(type) {
		case map[string]any:
			if len(v) != 1 {
				return nil, model.Validationf("filters", "advanced filter for %q must have exactly one operator key", col)
			}
			for opStr, val := range v {
				op, err := NormalizeOperator(opStr, strict)
				if err != nil {
					return nil, err
				}
				filters = append(filters, RowFilter{Column: col, Operator: op, Value: val})
			}
		default:
			filters = append(filters, RowFilter{Column: col, Operator: OperatorEq, Value: v})
		}
	}
	return filters, nil
}

// ParseSortList resolves sort entries of the form {column, direction} where
// direction is "asc" or "desc" (default asc).
func ParseSortList(entries []map[string]any) ([]RowSort, error) {
	sorts := make([]RowSort, 0, len(entries))
	for _, e := range entries {
		col, _ := e["column"].(string)
		if col == "" {
			return nil, model.NewValidationError("sort", "sort entry is missing a column")
		}
		dir, _ := e["direction"].(string)
		switch strings.ToLower(dir) {
		case "", "asc":
			sorts = append(sorts, RowSort{Column: col, Ascending: true})
		case "desc":
			sorts = append(sorts, RowSort{Column: col, Ascending: false})
		default:
			return nil, model.Validationf("sort", "invalid sort direction %q: must be asc or desc", dir)
		}
	}
	return sorts, nil
}
