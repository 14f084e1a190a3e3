package query

import (
	"strings"
	"testing"

	"github.com/supabridge/supabridge/internal/model"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		wantErr bool
	}{
		{name: "simple", table: "users"},
		{name: "underscore and digits", table: "user_accounts_2"},
		{name: "mixed case", table: "UserAccounts"},
		{name: "empty", table: "", wantErr: true},
		{name: "leading digit", table: "2users", wantErr: true},
		{name: "leading underscore", table: "_users", wantErr: true},
		{name: "embedded space", table: "user accounts", wantErr: true},
		{name: "quote injection", table: `users"; DROP TABLE x; --`, wantErr: true},
		{name: "semicolon", table: "users;", wantErr: true},
		{name: "unicode", table: "usuários", wantErr: true},
		{name: "at length limit", table: strings.Repeat("a", 63)},
		{name: "over length limit", table: strings.Repeat("a", 64), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTableName(tt.table)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTableName(%q) error = %v, wantErr %v", tt.table, err, tt.wantErr)
			}
			if err != nil && !model.IsValidationError(err) {
				t.Errorf("error should be a ValidationError, got %T", err)
			}
		})
	}
}

func TestValidateColumnNames(t *testing.T) {
	if err := ValidateColumnNames([]string{"id", "name", "created_at"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateColumnNames([]string{"id", "bad name"}); err == nil {
		t.Error("expected error for invalid column in list")
	}
	if err := ValidateColumnNames(nil); err != nil {
		t.Errorf("nil list should pass, got %v", err)
	}
}
