package ddl

import (
	"strings"
	"testing"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	ansi := Dialect{Quote: DoubleQuote, TextType: "TEXT"}
	bracket := Dialect{
		Quote:    func(s string) string { return "[" + s + "]" },
		TextType: "NVARCHAR(MAX)",
		CreateIfMissing: func(fqn, table, cols string) string {
			return "IF OBJECT_ID(N'" + fqn + "') IS NULL CREATE TABLE " + table + " (\n" + cols + "\n);"
		},
	}

	tests := []struct {
		name    string
		def     TableDef
		d       Dialect
		want    string
		wantErr string
	}{
		{
			name: "text_table",
			def:  TextTable(ansi, "main.unified", []string{"id", `odd "name"`}),
			d:    ansi,
			want: "CREATE TABLE IF NOT EXISTS \"main\".\"unified\" (\n  \"id\" TEXT,\n  \"odd \"\"name\"\"\" TEXT\n);",
		},
		{
			name: "not_null",
			def:  TableDef{FQN: "t", Columns: []ColumnDef{{Name: "k", SQLType: "TEXT"}}},
			d:    ansi,
			want: "CREATE TABLE IF NOT EXISTS \"t\" (\n  \"k\" TEXT NOT NULL\n);",
		},
		{
			name: "custom_wrapper",
			def:  TextTable(bracket, "dbo.t", []string{"a"}),
			d:    bracket,
			want: "IF OBJECT_ID(N'dbo.t') IS NULL CREATE TABLE [dbo].[t] (\n  [a] NVARCHAR(MAX)\n);",
		},
		{name: "no_table", def: TableDef{Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}}}, d: ansi, wantErr: "FQN"},
		{name: "no_columns", def: TableDef{FQN: "t"}, d: ansi, wantErr: "at least one column"},
		{name: "no_type", def: TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a"}}}, d: ansi, wantErr: "missing SQLType"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tc.def, tc.d)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tc.want)
			}
		})
	}
}
