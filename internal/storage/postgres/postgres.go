// Package postgres implements the Postgres storage backend with pgx v5.
// Batches are streamed with COPY FROM through a connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dataunifier/internal/ddl"
	"dataunifier/internal/storage"
)

// Kind is the output.kind selecting this backend.
const Kind = "postgres"

// Dialect quotes identifiers with double quotes.
var Dialect = ddl.Dialect{Quote: ddl.DoubleQuote, TextType: "TEXT"}

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, cfg.DSN, cfg.Table)
	})
	storage.RegisterDialect(Kind, Dialect)
}

// Repository writes to one Postgres table.
type Repository struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
}

// NewRepository parses dsn and opens a lazily connecting pool.
func NewRepository(ctx context.Context, dsn, table string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool, table: Identifier(table)}, nil
}

// Identifier splits a dotted table name into a pgx identifier.
func Identifier(table string) pgx.Identifier { return pgx.Identifier(strings.Split(table, ".")) }

// CopyFrom streams rows with COPY FROM.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, r.table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy into %s: %w", r.table.Sanitize(), err)
	}
	return n, nil
}

// Exec runs a statement.
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if _, err := r.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() { r.pool.Close() }
