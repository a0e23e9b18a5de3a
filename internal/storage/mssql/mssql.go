// Package mssql implements the SQL Server storage backend with go-mssqldb.
// Batches go through the driver's bulk copy (mssql.CopyIn) in a transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"dataunifier/internal/ddl"
	"dataunifier/internal/storage"
)

// Kind is the output.kind selecting this backend.
const Kind = "mssql"

// Dialect quotes with brackets and guards CREATE TABLE with OBJECT_ID, since
// SQL Server has no CREATE TABLE IF NOT EXISTS.
var Dialect = ddl.Dialect{
	Quote:    Ident,
	TextType: "NVARCHAR(MAX)",
	CreateIfMissing: func(_, table, columns string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n%s\n);",
			strings.ReplaceAll(table, "'", "''"), table, columns)
	},
}

// Ident brackets an identifier, doubling embedded closing brackets.
func Ident(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg.DSN, cfg.Table)
	})
	storage.RegisterDialect(Kind, Dialect)
}

// Repository writes to one SQL Server table.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository validates dsn, connects and pings.
func NewRepository(ctx context.Context, dsn, table string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mssql: DSN must not be empty")
	}
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db, table: table}, nil
}

// CopyFrom bulk-copies rows.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.table, mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

// Exec runs a statement.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mssql: exec: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() { _ = r.db.Close() }
