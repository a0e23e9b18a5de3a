package mssql

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dataunifier/internal/ddl"
	"dataunifier/internal/storage"
)

func TestIdent(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"id":      "[id]",
		"a]b":     "[a]]b]",
		"has one": "[has one]",
	} {
		if got := Ident(in); got != want {
			t.Errorf("Ident(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := ddl.BuildCreateTableSQL(ddl.TextTable(Dialect, "dbo.unified", []string{"id"}), Dialect)
	if err != nil {
		t.Fatal(err)
	}
	want := "IF OBJECT_ID(N'[dbo].[unified]', N'U') IS NULL\nCREATE TABLE [dbo].[unified] (\n  [id] NVARCHAR(MAX)\n);"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestNew_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, err := storage.New(context.Background(), storage.Config{Kind: Kind, Table: "t"}); err == nil {
		t.Error("want error")
	}
}
