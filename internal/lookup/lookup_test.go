package lookup

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dataunifier/internal/transformer"
)

var _ transformer.TableSource = (*Loader)(nil)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLoader_Table(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	lookups := filepath.Join(in, "lookups")
	if err := os.Mkdir(lookups, 0o755); err != nil {
		t.Fatal(err)
	}
	path := write(t, lookups, "countries.csv", "\uFEFFcode,name\nCZ, Czechia\nDE,Germany\n")
	write(t, lookups, "countries.csv.old", "code\n")

	l := NewLoader(in, quiet())
	got, err := l.Table("%INPUT_DIR%/lookups", `countries\.csv`)
	if err != nil {
		t.Fatal(err)
	}
	want := transformer.Table{
		Path:    path,
		Columns: []string{"code", "name"},
		Rows: []map[string]string{
			{"code": "CZ", "name": " Czechia"},
			{"code": "DE", "name": "Germany"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

/*
A second task naming the same file reuses the first read: the file is
removed between the two calls and the table is still served.
*/
func TestLoader_Cache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := write(t, dir, "t.csv", "k,v\na,1\n")
	l := NewLoader("", quiet())
	first, err := l.Table(dir, `t\.csv`)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("k,v\nb,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := l.Table(dir, `t\.csv`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached table changed (-first +second):\n%s", diff)
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write(t, dir, "a_1.csv", "x\n")
	write(t, dir, "a_2.csv", "x\n")
	l := NewLoader(dir, quiet())

	tests := []struct {
		name    string
		dir     string
		pattern string
		want    transformer.TableLookupError
	}{
		{
			name: "no_dir", dir: "%INPUT_DIR%/nope", pattern: ".*",
			want: transformer.TableLookupError{Reason: transformer.NoSuchDirectory, Directory: filepath.Join(dir, "nope")},
		},
		{
			name: "no_match", dir: dir, pattern: `b.*`,
			want: transformer.TableLookupError{Reason: transformer.NoMatchingFile, Directory: dir},
		},
		{
			name: "many", dir: dir, pattern: `a_\d\.csv`,
			want: transformer.TableLookupError{Reason: transformer.MultipleMatchingFiles, Directory: dir, Matches: []string{"a_1.csv", "a_2.csv"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := l.Table(tc.dir, tc.pattern)
			var le *transformer.TableLookupError
			if !errors.As(err, &le) {
				t.Fatalf("err = %v, want TableLookupError", err)
			}
			if diff := cmp.Diff(tc.want, *le); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

/*
Lookup files are cached by content: a byte-identical copy under another name
is served from the first parse, reported under its own path, while a file
that differs is parsed on its own.
*/
func TestLoader_SharedContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	const body = "code,name\nCZ,Czechia\n"
	write(t, dir, "countries.csv", body)
	copyPath := write(t, dir, "countries_copy.csv", body)
	write(t, dir, "regions.csv", "code,name\nBO,Bohemia\n")
	l := NewLoader("", quiet())

	first, err := l.Table(dir, `countries\.csv`)
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Table(dir, `countries_copy\.csv`)
	if err != nil {
		t.Fatal(err)
	}
	if l.parsed != 1 {
		t.Fatalf("parsed %d files, want 1", l.parsed)
	}
	if second.Path != copyPath {
		t.Errorf("Path = %q, want %q", second.Path, copyPath)
	}
	if diff := cmp.Diff(first.Rows, second.Rows); diff != "" {
		t.Errorf("rows differ (-first +second):\n%s", diff)
	}

	third, err := l.Table(dir, `regions\.csv`)
	if err != nil {
		t.Fatal(err)
	}
	if l.parsed != 2 {
		t.Fatalf("parsed %d files, want 2", l.parsed)
	}
	if got := third.Rows[0]["name"]; got != "Bohemia" {
		t.Errorf("name = %q, want Bohemia", got)
	}
}
