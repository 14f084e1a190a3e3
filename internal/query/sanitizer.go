// Package query provides identifier validation, filter and sort translation
// into PostgREST query parameters, and DDL statement synthesis. Every
// identifier that ends up inside generated SQL or a query string passes
// through this package first.
package query

import (
	"regexp"

	"github.com/supabridge/supabridge/internal/model"
)

// identifierRegex validates table and column names: a leading letter
// followed by letters, digits, or underscores.
var identifierRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// maxIdentifierLen matches the PostgreSQL identifier limit.
const maxIdentifierLen = 63

func validateIdentifier(field, name string) error {
	if name == "" {
		return model.NewValidationError(field, "identifier cannot be empty")
	}
	if len(name) > maxIdentifierLen {
		return model.Validationf(field, "identifier %q too long (max %d chars)", name, maxIdentifierLen)
	}
	if !identifierRegex.MatchString(name) {
		return model.Validationf(field, "invalid identifier %q: must match [A-Za-z][A-Za-z0-9_]*", name)
	}
	return nil
}

// ValidateTableName ensures a table name is safe to interpolate into
// generated SQL text. This is pattern matching, not parameterization;
// free-form DDL fragments such as column types stay trusted input.
func ValidateTableName(name string) error {
	return validateIdentifier("table", name)
}

// ValidateColumnName ensures a column name is safe to interpolate into
// generated SQL text or a query parameter key.
func ValidateColumnName(name string) error {
	return validateIdentifier("column", name)
}

// ValidateColumnNames validates a list of column names, returning the first
// failure.
func ValidateColumnNames(names []string) error {
	for _, name := range names {
		if err := ValidateColumnName(name); err != nil {
			return err
		}
	}
	return nil
}
