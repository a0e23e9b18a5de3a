package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dataunifier/internal/config"
	"dataunifier/internal/datasource"
	"dataunifier/internal/errs"
)

var _ datasource.Source = (*Local)(nil)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "b_2024.csv", "a_2023.csv", "a_2023.csv.bak", "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "c_2025.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Match(dir, `.*_\d{4}\.csv`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a_2023.csv"), filepath.Join(dir, "b_2024.csv")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := Match(filepath.Join(dir, "nope"), ".*"); !errors.Is(err, ErrNoDirectory) {
		t.Errorf("missing dir: err = %v", err)
	}
	if _, err := Match(filepath.Join(dir, "notes.txt"), ".*"); !errors.Is(err, ErrNoDirectory) {
		t.Errorf("file as dir: err = %v", err)
	}
	if _, err := Match(dir, "("); !errs.IsConfig(err) {
		t.Errorf("bad regex: err = %v", err)
	}
}

/*
Patterns are tried in order and the first pattern with any match wins, even
when a later pattern would match more files.
*/
func TestResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "orders.csv", "orders_1.xlsx", "orders_2.xlsx")

	tests := []struct {
		name    string
		regex   []string
		want    []string
		pattern string
		wantErr string
	}{
		{name: "first_pattern", regex: []string{`orders\.csv`, `orders_\d\.xlsx`}, want: []string{"orders.csv"}, pattern: `orders\.csv`},
		{name: "fallback", regex: []string{`missing.*`, `orders_\d\.xlsx`}, want: []string{"orders_1.xlsx", "orders_2.xlsx"}, pattern: `orders_\d\.xlsx`},
		{
			name:    "none",
			regex:   []string{`x`, `y`},
			wantErr: `Could not find any file names matching patterns "x", "y" in input directory "` + dir + `". (Input File "Orders")`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, pattern, err := Resolve(dir, config.InputFile{Name: "Orders", Regex: tc.regex})
			if tc.wantErr != "" {
				var ie *errs.InputFileError
				if !errors.As(err, &ie) || ie.Msg != tc.wantErr {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if pattern != tc.pattern {
				t.Errorf("pattern = %q, want %q", pattern, tc.pattern)
			}
			var want []string
			for _, w := range tc.want {
				want = append(want, filepath.Join(dir, w))
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_NoInputDir(t *testing.T) {
	t.Parallel()

	_, _, err := Resolve(filepath.Join(t.TempDir(), "gone"), config.InputFile{Name: "x", Regex: []string{".*"}})
	var ce *errs.CommandLineError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CommandLineError", err)
	}
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]Format{
		"a.csv":  CSV,
		"A.CSV":  CSV,
		"b.xlsx": Excel,
		"b.xlsm": Excel,
	} {
		if got, err := FormatOf(path, "in"); err != nil || got != want {
			t.Errorf("FormatOf(%q) = %v, %v; want %v", path, got, err, want)
		}
	}
	_, err := FormatOf("data.json", "Data")
	var ie *errs.InputFileError
	if !errors.As(err, &ie) || ie.Msg != `File "data.json" has an unsupported format: "json". Only CSVs and Excel files are accepted. (Input File "Data")` {
		t.Errorf("err = %v", err)
	}
}

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "data.txt")

	rc, err := NewLocal(filepath.Join(dir, "data.txt")).Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "data.txt" {
		t.Errorf("content = %q", b)
	}

	if _, err := NewLocal(filepath.Join(dir, "missing")).Open(context.Background()); err == nil {
		t.Error("missing file: want error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(filepath.Join(dir, "data.txt")).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled: err = %v", err)
	}
}
