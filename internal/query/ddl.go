package query

import (
	"strings"

	"github.com/supabridge/supabridge/internal/model"
)

// ColumnDefinition describes one column for DDL synthesis. Type and
// DefaultValue are free-form pass-through: they are trusted input and are
// never escaped or validated against a type catalog.
type ColumnDefinition struct {
	Name         string `json:"name" yaml:"name"`
	Type         string `json:"type" yaml:"type"`
	Nullable     bool   `json:"nullable" yaml:"nullable"`
	DefaultValue string `json:"defaultValue" yaml:"defaultValue"`
	PrimaryKey   bool   `json:"primaryKey" yaml:"primaryKey"`
	Unique       bool   `json:"unique" yaml:"unique"`
}

// IndexDefinition describes an index for DDL synthesis.
type IndexDefinition struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Unique  bool     `json:"unique" yaml:"unique"`
	Method  string   `json:"method" yaml:"method"`
}

// indexMethods enumerates the access methods accepted for CREATE INDEX.
var indexMethods = map[string]bool{
	"btree": true, "hash": true, "gist": true,
	"spgist": true, "gin": true, "brin": true,
}

// QuoteIdentifier double-quotes an identifier for SQL text. Callers must
// validate the name first; quoting alone is not an injection defense.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func writeColumnDef(b *strings.Builder, col ColumnDefinition) error {
	if err := ValidateColumnName(col.Name); err != nil {
		return err
	}
	if col.Type == "" {
		return model.Validationf("columns", "column %q is missing a type", col.Name)
	}
	b.WriteString(QuoteIdentifier(col.Name))
	b.WriteString(" ")
	b.WriteString(col.Type)
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if col.Unique {
		b.WriteString(" UNIQUE")
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.DefaultValue != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(col.DefaultValue)
	}
	return nil
}

// BuildCreateTable synthesizes a CREATE TABLE statement. At least one
// column definition is required.
func BuildCreateTable(table string, cols []ColumnDefinition) (string, error) {
	if err := ValidateTableName(table); err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", model.NewValidationError("columns", "at least one column definition is required")
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(QuoteIdentifier(table))
	b.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := writeColumnDef(&b, col); err != nil {
			return "", err
		}
	}
	b.WriteString(")")
	return b.String(), nil
}

// BuildDropTable synthesizes a DROP TABLE statement with optional CASCADE.
func BuildDropTable(table string, cascade bool) (string, error) {
	if err := ValidateTableName(table); err != nil {
		return "", err
	}
	sql := "DROP TABLE " + QuoteIdentifier(table)
	if cascade {
		sql += " CASCADE"
	}
	return sql, nil
}

// BuildAddColumn synthesizes an ALTER TABLE ... ADD COLUMN statement.
func BuildAddColumn(table string, col ColumnDefinition) (string, error) {
	if err := ValidateTableName(table); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(QuoteIdentifier(table))
	b.WriteString(" ADD COLUMN ")
	if err := writeColumnDef(&b, col); err != nil {
		return "", err
	}
	return b.String(), nil
}

// BuildDropColumn synthesizes an ALTER TABLE ... DROP COLUMN statement with
// optional CASCADE.
func BuildDropColumn(table, column string, cascade bool) (string, error) {
	if err := ValidateTableName(table); err != nil {
		return "", err
	}
	if err := ValidateColumnName(column); err != nil {
		return "", err
	}
	sql := "ALTER TABLE " + QuoteIdentifier(table) + " DROP COLUMN " + QuoteIdentifier(column)
	if cascade {
		sql += " CASCADE"
	}
	return sql, nil
}

// BuildCreateIndex synthesizes a CREATE [UNIQUE] INDEX statement. The index
// name and at least one column are required; the access method, when given,
// must be one of the enumerated methods.
func BuildCreateIndex(table string, def IndexDefinition) (string, error) {
	if err := ValidateTableName(table); err != nil {
		return "", err
	}
	if err := validateIdentifier("indexName", def.Name); err != nil {
		return "", err
	}
	if len(def.Columns) == 0 {
		return "", model.NewValidationError("columns", "at least one index column is required")
	}
	if err := ValidateColumnNames(def.Columns); err != nil {
		return "", err
	}
	if def.Method != "" && !indexMethods[strings.ToLower(def.Method)] {
		return "", model.Validationf("method", "unknown index method %q", def.Method)
	}

	var b strings.Builder
	b.WriteString("CREATE ")
	if def.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	b.WriteString(QuoteIdentifier(def.Name))
	b.WriteString(" ON ")
	b.WriteString(QuoteIdentifier(table))
	if def.Method != "" {
		b.WriteString(" USING ")
		b.WriteString(strings.ToLower(def.Method))
	}
	b.WriteString(" (")
	for i, col := range def.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdentifier(col))
	}
	b.WriteString(")")
	return b.String(), nil
}

// BuildDropIndex synthesizes a DROP INDEX statement with optional CASCADE.
func BuildDropIndex(name string, cascade bool) (string, error) {
	if err := validateIdentifier("indexName", name); err != nil {
		return "", err
	}
	sql := "DROP INDEX " + QuoteIdentifier(name)
	if cascade {
		sql += " CASCADE"
	}
	return sql, nil
}
