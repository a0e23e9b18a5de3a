// Package storage contains the storage-agnostic contract for the optional
// database sink and a factory that backends register with.
//
// Backends (postgres, sqlite, mssql, mysql) call Register and RegisterDialect
// from init; importing storage/all links every one of them in. Callers only
// see Repository:
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "file:out.db", Table: "unified"})
//	if err != nil { ... }
//	defer repo.Close()
//	if err := storage.EnsureTable(ctx, "sqlite", repo, "unified", fields); err != nil { ... }
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"dataunifier/internal/ddl"
)

// Repository is an open connection to one backend table.
type Repository interface {
	// CopyFrom inserts rows aligned to columns and reports how many were
	// written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	dialects  = map[string]ddl.Dialect{}
)

// Register adds (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// RegisterDialect records how kind renders its CREATE TABLE statement.
func RegisterDialect(kind string, d ddl.Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[kind] = d
}

// Kinds lists the registered backends, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository through the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (known: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("storage: %s: table must not be empty", cfg.Kind)
	}
	return f(ctx, cfg)
}

// EnsureTable creates table with one text column per field unless it
// exists, using the dialect registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, fields []string) error {
	mu.RLock()
	d, ok := dialects[kind]
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("storage: no dialect registered for kind %q", kind)
	}
	stmt, err := ddl.BuildCreateTableSQL(ddl.TextTable(d, table, fields), d)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("storage: create table %s: %w", table, err)
	}
	return nil
}
