package query

import (
	"testing"
)

// ---------------------------------------------------------------------------
// BuildCreateTable tests
// ---------------------------------------------------------------------------

func TestBuildCreateTable(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		cols    []ColumnDefinition
		want    string
		wantErr bool
	}{
		{
			name:  "single column",
			table: "users",
			cols: []ColumnDefinition{
				{Name: "id", Type: "bigint", PrimaryKey: true},
			},
			want: `CREATE TABLE "users" ("id" bigint PRIMARY KEY NOT NULL)`,
		},
		{
			name:  "multiple columns with modifiers",
			table: "users",
			cols: []ColumnDefinition{
				{Name: "id", Type: "bigserial", PrimaryKey: true},
				{Name: "email", Type: "text", Unique: true},
				{Name: "bio", Type: "text", Nullable: true},
				{Name: "created_at", Type: "timestamptz", Nullable: false, DefaultValue: "now()"},
			},
			want: `CREATE TABLE "users" (` +
				`"id" bigserial PRIMARY KEY NOT NULL, ` +
				`"email" text UNIQUE NOT NULL, ` +
				`"bio" text, ` +
				`"created_at" timestamptz NOT NULL DEFAULT now())`,
		},
		{
			name:    "no columns",
			table:   "users",
			cols:    nil,
			wantErr: true,
		},
		{
			name:    "invalid table name",
			table:   "users; --",
			cols:    []ColumnDefinition{{Name: "id", Type: "bigint"}},
			wantErr: true,
		},
		{
			name:    "invalid column name",
			table:   "users",
			cols:    []ColumnDefinition{{Name: `id" cascade`, Type: "bigint"}},
			wantErr: true,
		},
		{
			name:    "missing column type",
			table:   "users",
			cols:    []ColumnDefinition{{Name: "id"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCreateTable(tt.table, tt.cols)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTable error: %v", err)
			}
			if got != tt.want {
				t.Errorf("sql = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Other statement builders
// ---------------------------------------------------------------------------

func TestBuildDropTable(t *testing.T) {
	got, err := BuildDropTable("users", false)
	if err != nil {
		t.Fatalf("BuildDropTable error: %v", err)
	}
	if got != `DROP TABLE "users"` {
		t.Errorf("sql = %q", got)
	}

	got, err = BuildDropTable("users", true)
	if err != nil {
		t.Fatalf("BuildDropTable error: %v", err)
	}
	if got != `DROP TABLE "users" CASCADE` {
		t.Errorf("sql = %q", got)
	}

	if _, err := BuildDropTable("", false); err == nil {
		t.Error("expected error for empty table name")
	}
}

func TestBuildAddColumn(t *testing.T) {
	got, err := BuildAddColumn("users", ColumnDefinition{
		Name: "age", Type: "integer", Nullable: true, DefaultValue: "0",
	})
	if err != nil {
		t.Fatalf("BuildAddColumn error: %v", err)
	}
	want := `ALTER TABLE "users" ADD COLUMN "age" integer DEFAULT 0`
	if got != want {
		t.Errorf("sql = %q, want %q", got, want)
	}
}

func TestBuildDropColumn(t *testing.T) {
	got, err := BuildDropColumn("users", "age", true)
	if err != nil {
		t.Fatalf("BuildDropColumn error: %v", err)
	}
	if got != `ALTER TABLE "users" DROP COLUMN "age" CASCADE` {
		t.Errorf("sql = %q", got)
	}

	if _, err := BuildDropColumn("users", "bad col", false); err == nil {
		t.Error("expected error for invalid column name")
	}
}

func TestBuildCreateIndex(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		def     IndexDefinition
		want    string
		wantErr bool
	}{
		{
			name:  "simple",
			table: "users",
			def:   IndexDefinition{Name: "idx_users_email", Columns: []string{"email"}},
			want:  `CREATE INDEX "idx_users_email" ON "users" ("email")`,
		},
		{
			name:  "unique multi-column",
			table: "users",
			def:   IndexDefinition{Name: "idx_users_org", Columns: []string{"org_id", "email"}, Unique: true},
			want:  `CREATE UNIQUE INDEX "idx_users_org" ON "users" ("org_id", "email")`,
		},
		{
			name:  "with method",
			table: "documents",
			def:   IndexDefinition{Name: "idx_docs_body", Columns: []string{"body"}, Method: "GIN"},
			want:  `CREATE INDEX "idx_docs_body" ON "documents" USING gin ("body")`,
		},
		{
			name:    "missing name",
			table:   "users",
			def:     IndexDefinition{Columns: []string{"email"}},
			wantErr: true,
		},
		{
			name:    "no columns",
			table:   "users",
			def:     IndexDefinition{Name: "idx"},
			wantErr: true,
		},
		{
			name:    "unknown method",
			table:   "users",
			def:     IndexDefinition{Name: "idx", Columns: []string{"email"}, Method: "quadtree"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCreateIndex(tt.table, tt.def)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateIndex error: %v", err)
			}
			if got != tt.want {
				t.Errorf("sql = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildDropIndex(t *testing.T) {
	got, err := BuildDropIndex("idx_users_email", false)
	if err != nil {
		t.Fatalf("BuildDropIndex error: %v", err)
	}
	if got != `DROP INDEX "idx_users_email"` {
		t.Errorf("sql = %q", got)
	}
}

func TestQuoteIdentifierEscapesQuotes(t *testing.T) {
	if got := QuoteIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdentifier = %q", got)
	}
}
