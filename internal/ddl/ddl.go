// Package ddl renders CREATE TABLE statements for the unified output table.
//
// The model is deliberately small: every column of the unified output is
// text, so a table is a name and an ordered list of column names. Backends
// supply a Dialect for identifier quoting and for their "create unless it
// exists" form.
package ddl

import (
	"fmt"
	"strings"
)

// ColumnDef describes a single column.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the table name, optionally dotted ("schema.table"), and its
// columns in order.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect adapts rendering to one SQL backend.
type Dialect struct {
	// Quote quotes a single identifier segment.
	Quote func(ident string) string
	// TextType is the column type used by TextTable.
	TextType string
	// CreateIfMissing wraps the raw and quoted table name and the rendered
	// column list into a statement that is a no-op when the table exists.
	// Nil means "CREATE TABLE IF NOT EXISTS".
	CreateIfMissing func(fqn, table, columns string) string
}

// TextTable is a TableDef whose columns are all nullable d.TextType.
func TextTable(d Dialect, fqn string, fields []string) TableDef {
	t := TableDef{FQN: fqn, Columns: make([]ColumnDef, len(fields))}
	for i, f := range fields {
		t.Columns[i] = ColumnDef{Name: f, SQLType: d.TextType, Nullable: true}
	}
	return t
}

// QuoteFQN quotes every dotted segment of fqn.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	for i, p := range parts {
		parts[i] = d.Quote(p)
	}
	return strings.Join(parts, ".")
}

// QuoteAll quotes each identifier of ids.
func (d Dialect) QuoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = d.Quote(id)
	}
	return out
}

// BuildCreateTableSQL renders t in dialect d:
//
//	CREATE TABLE IF NOT EXISTS "t" (
//	  "col1" TEXT,
//	  "col2" TEXT NOT NULL
//	);
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", c.Name)
		}
		col := "  " + d.Quote(c.Name) + " " + typ
		if !c.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	table := d.QuoteFQN(fqn)
	body := strings.Join(cols, ",\n")
	if d.CreateIfMissing != nil {
		return d.CreateIfMissing(fqn, table, body), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);", table, body), nil
}

// DoubleQuote quotes an identifier the ANSI way, doubling embedded quotes.
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
