package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dataunifier/internal/ddl"
	"dataunifier/internal/record"
)

type fakeRepo struct {
	batches [][][]any
	execs   []string
	failAt  int
}

func (f *fakeRepo) CopyFrom(_ context.Context, _ []string, rows [][]any) (int64, error) {
	if f.failAt > 0 && len(f.batches)+1 == f.failAt {
		return 0, errors.New("boom")
	}
	cp := make([][]any, len(rows))
	copy(cp, rows)
	f.batches = append(f.batches, cp)
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(_ context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeRepo) Close() {}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

/*
Rows are grouped into batches of the configured size; the final partial batch
goes out on Close. Values follow the sink's column order and absent fields
are written as empty strings.
*/
func TestSink_Batches(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	s, err := NewSink(context.Background(), repo, []string{"a", "b"}, 2, "test", quiet())
	if err != nil {
		t.Fatal(err)
	}
	rows := []record.Row{
		record.FromPairs("b", "1", "a", "x"),
		record.FromPairs("a", "y"),
		record.FromPairs("a", "z", "b", "3"),
	}
	for _, r := range rows {
		if err := s.Write(r); err != nil {
			t.Fatal(err)
		}
	}
	if len(repo.batches) != 1 {
		t.Fatalf("batches before Close = %d, want 1", len(repo.batches))
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	want := [][][]any{
		{{"x", "1"}, {"y", ""}},
		{{"z", "3"}},
	}
	if diff := cmp.Diff(want, repo.batches); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if s.Written != 3 {
		t.Errorf("Written = %d, want 3", s.Written)
	}
}

func TestSink_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewSink(context.Background(), &fakeRepo{}, []string{"a"}, 0, "", nil); err == nil {
		t.Error("zero batch size: want error")
	}
	repo := &fakeRepo{failAt: 1}
	s, err := NewSink(context.Background(), repo, []string{"a"}, 1, "", quiet())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(record.FromPairs("a", "1")); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want copy failure", err)
	}
}

func TestFactoryAndEnsureTable(t *testing.T) {
	repo := &fakeRepo{}
	Register("fake", func(_ context.Context, cfg Config) (Repository, error) {
		if cfg.DSN == "" {
			return nil, errors.New("empty dsn")
		}
		return repo, nil
	})
	RegisterDialect("fake", ddl.Dialect{Quote: ddl.DoubleQuote, TextType: "TEXT"})

	ctx := context.Background()
	if _, err := New(ctx, Config{Kind: "nope", Table: "t"}); err == nil || !strings.Contains(err.Error(), `unknown kind "nope"`) {
		t.Errorf("unknown kind: err = %v", err)
	}
	if _, err := New(ctx, Config{Kind: "fake", DSN: "x"}); err == nil {
		t.Error("empty table: want error")
	}
	got, err := New(ctx, Config{Kind: "fake", DSN: "x", Table: "t"})
	if err != nil {
		t.Fatal(err)
	}
	if err := EnsureTable(ctx, "fake", got, "t", []string{"id"}); err != nil {
		t.Fatal(err)
	}
	want := []string{"CREATE TABLE IF NOT EXISTS \"t\" (\n  \"id\" TEXT\n);"}
	if diff := cmp.Diff(want, repo.execs); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if err := EnsureTable(ctx, "nope", got, "t", []string{"id"}); err == nil {
		t.Error("no dialect: want error")
	}
}
