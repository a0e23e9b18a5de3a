package excel

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
)

// workbook writes an xlsx whose sheets hold the given rows, in order.
func workbook(t *testing.T, sheets []string, rows map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for r, vals := range rows[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			v := vals
			if err := f.SetSheetRow(name, cell, &v); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func readAll(t *testing.T, s *SheetReader) []string {
	t.Helper()
	var out []string
	for {
		row, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, row.String())
	}
}

func TestRead(t *testing.T) {
	t.Parallel()

	path := workbook(t, []string{"Data"}, map[string][][]any{
		"Data": {
			{"id", "qty", "", "code"},
			{1, 2.5, "x", "007"},
			{2.0, 3},
		},
	})
	wb, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()

	s, err := wb.Read("Data")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if diff := cmp.Diff([]string{"id", "qty", "Unnamed: 2", "code"}, s.Header()); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}
	want := []string{
		`{id: "1", qty: "2.5", Unnamed: 2: "x", code: "007"}`,
		`{id: "2", qty: "3", Unnamed: 2: "", code: ""}`,
	}
	if diff := cmp.Diff(want, readAll(t, s)); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}

	n, err := wb.Count("Data")
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2", n, err)
	}
}

func TestRead_EmptySheet(t *testing.T) {
	t.Parallel()

	path := workbook(t, []string{"Empty"}, nil)
	wb, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	s, err := wb.Read("Empty")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Header() != nil {
		t.Errorf("header = %v, want nil", s.Header())
	}
	if got := readAll(t, s); len(got) != 0 {
		t.Errorf("rows = %v, want none", got)
	}
}

func TestOpen_Unreadable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.xlsx")
	if err := os.WriteFile(path, []byte("not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	var ie *errs.InputFileError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want InputFileError", err)
	}
	if !strings.HasPrefix(ie.Msg, `Could not read Excel file "`+path+`".`) {
		t.Errorf("message = %q", ie.Msg)
	}
}

/*
Sheet selection walks the specs in order. For each spec, its patterns are
tried in order and the first sheet name fully matching a pattern is chosen.
Optional specs without a match are skipped; mandatory ones fail.
*/
func TestSelectSheets(t *testing.T) {
	t.Parallel()

	names := []string{"Summary", "Data 2023", "Data 2024", "Notes"}
	tests := []struct {
		name    string
		specs   []config.Sheet
		want    []string
		wantErr string
	}{
		{name: "all", specs: nil, want: names},
		{
			name:  "first_match",
			specs: []config.Sheet{{Regex: []string{`Data \d+`}, Mandatory: true}},
			want:  []string{"Data 2023"},
		},
		{
			name:  "pattern_order",
			specs: []config.Sheet{{Regex: []string{`Notes`, `Summary`}}},
			want:  []string{"Notes"},
		},
		{
			name:  "full_match_only",
			specs: []config.Sheet{{Regex: []string{`Data`}}, {Regex: []string{`Sum.*`}}},
			want:  []string{"Summary"},
		},
		{
			name:    "mandatory_missing",
			specs:   []config.Sheet{{Regex: []string{`Totals`, `Sums`}, Mandatory: true}},
			wantErr: `Could not find any sheet name matching patterns "Totals", "Sums" in file "b.xlsx". (Input File "Book")`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := SelectSheets("b.xlsx", "Book", names, tc.specs)
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
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestWorkbookSelect(t *testing.T) {
	t.Parallel()

	path := workbook(t, []string{"First", "Second"}, nil)
	wb, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	if diff := cmp.Diff([]string{"First", "Second"}, wb.SheetNames()); diff != "" {
		t.Errorf("SheetNames (-want +got):\n%s", diff)
	}
	got, err := wb.Select([]config.Sheet{{Regex: []string{"Sec.*"}}}, "Book")
	if err != nil || len(got) != 1 || got[0] != "Second" {
		t.Errorf("Select = %v, %v", got, err)
	}
}

func TestStringify(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"3":      "3",
		"3.0":    "3",
		"1E3":    "1000",
		"2.5":    "2.5",
		"007":    "007",
		"text":   "text",
		"":       "",
		"-4.000": "-4",
		"e":      "e",
	} {
		if got := Stringify(in); got != want {
			t.Errorf("Stringify(%q) = %q, want %q", in, got, want)
		}
	}
}
