// Package mysql implements the MySQL storage backend with
// go-sql-driver/mysql. Batches become multi-row INSERT statements inside a
// transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"dataunifier/internal/ddl"
	"dataunifier/internal/storage"
)

// Kind is the output.kind selecting this backend.
const Kind = "mysql"

// maxPlaceholders is MySQL's limit of bound parameters per statement.
const maxPlaceholders = 65535

// Dialect quotes identifiers with backticks.
var Dialect = ddl.Dialect{Quote: Ident, TextType: "TEXT"}

// Ident backtick-quotes an identifier, doubling embedded backticks.
func Ident(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg.DSN, cfg.Table)
	})
	storage.RegisterDialect(Kind, Dialect)
}

// Repository writes to one MySQL table.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository validates dsn, connects and pings.
func NewRepository(ctx context.Context, dsn, table string) (*Repository, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: dsn: %w", err)
	}
	conn, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db, table: table}, nil
}

// InsertSQL renders a multi-row INSERT of n rows.
func InsertSQL(table string, columns []string, n int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := strings.TrimSuffix(strings.Repeat(row+", ", n), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		Dialect.QuoteFQN(table), strings.Join(Dialect.QuoteAll(columns), ", "), values)
}

// chunkRows is how many rows of width cols fit one statement.
func chunkRows(cols int) int {
	if cols == 0 {
		return 1
	}
	return max(1, maxPlaceholders/cols)
}

// CopyFrom inserts rows in a transaction, as few statements as the
// placeholder limit allows.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	step := chunkRows(len(columns))
	var total int64
	for start := 0; start < len(rows); start += step {
		chunk := rows[start:min(start+step, len(rows))]
		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, InsertSQL(r.table, columns, len(chunk)), args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: insert: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return total, nil
}

// Exec runs a statement.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() { _ = r.db.Close() }
