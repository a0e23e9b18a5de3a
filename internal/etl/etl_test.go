package etl

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"dataunifier/internal/errs"
	_ "dataunifier/internal/storage/sqlite"
)

const tasksTail = `
      - name: drop unknown
        when: {value_of_field: country, matches_regex: XX}
        discard_record: {}
      - name: country names
        csv_lookup_replace:
          fields: [country]
          directory: "%INPUT_DIR%/lookups"
          filename_regex: countries\.csv
          lookup_column: code
          value_column: name
          on_unmatched: fail
`

const twoFilesets = `
filesets:
  - name: csv orders
    input_files:
      - name: Orders CSV
        regex: orders_\d\.csv
    tasks:
      - name: map
        map_fields:
          fields:
            - {target_field: id, src_fields: [OrderID]}
            - {target_field: country, src_fields: [Country]}
            - {target_field: amount, src_fields: [Amount]}` + tasksTail + `
  - name: excel orders
    input_files:
      - name: Orders workbook
        regex: [missing\.xlsx, orders\.xlsx]
        sheets: [Q1]
    tasks:
      - name: map
        map_fields:
          fields:
            - {target_field: id, src_fields: [Order Id]}
            - {target_field: country, src_fields: [Country]}
            - {target_field: amount, src_fields: [Amount]}` + tasksTail

type fixture struct {
	in, out, config string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newFixture(t *testing.T, cfg string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		in:     filepath.Join(root, "in"),
		out:    filepath.Join(root, "out.csv"),
		config: filepath.Join(root, "pipeline.yaml"),
	}
	writeFile(t, filepath.Join(f.in, "orders_1.csv"), "OrderID,Country,Amount\n1, CZ ,10\n2,DE,20\n3,XX,5\n")
	writeFile(t, filepath.Join(f.in, "lookups", "countries.csv"), "code,name\nCZ,Czechia\nDE,Germany\n")
	writeFile(t, f.config, cfg)

	wb := excelize.NewFile()
	defer wb.Close()
	if err := wb.SetSheetName("Sheet1", "Q1"); err != nil {
		t.Fatal(err)
	}
	for i, row := range [][]any{{"Order Id", "Country", "Amount"}, {4, "DE", 7.0}} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := wb.SetSheetRow("Q1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := wb.NewSheet("Notes"); err != nil {
		t.Fatal(err)
	}
	if err := wb.SaveAs(filepath.Join(f.in, "orders.xlsx")); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f fixture) options() Options {
	return Options{
		ConfigPath: f.config,
		InputDir:   f.in,
		OutputPath: f.out,
		RunID:      "test-run",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

/*
Two filesets, one CSV and one Excel sheet, agree on the fields id, country
and amount. Values are trimmed before the tasks see them, the XX row is
discarded, and country codes are replaced through the lookup file. Rows
follow fileset order.
*/
func TestRun_CSVAndExcel(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoFilesets)
	sum, err := Run(context.Background(), f.options())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "id,country,amount\n1,Czechia,10\n2,Germany,20\n4,Germany,7\n"
	if diff := cmp.Diff(want, readOutput(t, f.out)); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
	if sum.Sources != 2 || sum.Stats.Read != 4 || sum.Stats.Written != 3 || sum.Stats.Discarded != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.RunID != "test-run" {
		t.Errorf("RunID = %q", sum.RunID)
	}
}

func TestRun_DatabaseOutput(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "unified.db")
	f := newFixture(t, twoFilesets+`
output:
  kind: sqlite
  dsn: `+dbPath+`
  table: unified
  batch_size: 2
  auto_create_table: true
`)
	sum, err := Run(context.Background(), f.options())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DBRows != 3 {
		t.Errorf("DBRows = %d, want 3", sum.DBRows)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var ids []string
	rows, err := db.Query(`SELECT "id" || ':' || "country" FROM "unified" ORDER BY rowid`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, s)
	}
	if diff := cmp.Diff([]string{"1:Czechia", "2:Germany", "4:Germany"}, ids); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

/*
A value missing from the lookup file stops the run with the row position.
Rows written before the failing one stay in the output.
*/
func TestRun_ParsingError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoFilesets)
	writeFile(t, filepath.Join(f.in, "orders_1.csv"), "OrderID,Country,Amount\n1,CZ,10\n2,PL,20\n")

	_, err := Run(context.Background(), f.options())
	var pe *errs.ParsingError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ParsingError", err)
	}
	want := `When executing task "country names" on row 2 of file "` + filepath.Join(f.in, "orders_1.csv") +
		`": Encountered unrecognised value in field "country": "PL"`
	if pe.Error() != want {
		t.Errorf("message:\n got %s\nwant %s", pe.Error(), want)
	}
	if got := readOutput(t, f.out); got != "id,country,amount\n1,Czechia,10\n" {
		t.Errorf("output = %q", got)
	}
}

func TestRun_CommandLineErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoFilesets)
	writeFile(t, f.out, "old")

	tests := []struct {
		name string
		edit func(*Options)
		want string
	}{
		{
			name: "output_exists",
			edit: func(*Options) {},
			want: `Output file "` + f.out + `" already exists.`,
		},
		{
			name: "no_input_dir",
			edit: func(o *Options) { o.InputDir = filepath.Join(f.in, "nope") },
			want: `Could not find input directory "` + filepath.Join(f.in, "nope") + `".`,
		},
		{
			name: "no_output_dir",
			edit: func(o *Options) { o.OutputPath = filepath.Join(f.in, "nope", "o.csv") },
			want: `Directory for output file "` + filepath.Join(f.in, "nope") + `" does not exist.`,
		},
		{
			name: "no_config",
			edit: func(o *Options) { o.Force = true; o.ConfigPath = filepath.Join(f.in, "nope.yaml") },
			want: `Could not find configuration file "` + filepath.Join(f.in, "nope.yaml") + `".`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			opt := f.options()
			tc.edit(&opt)
			_, err := Run(context.Background(), opt)
			var ce *errs.CommandLineError
			if !errors.As(err, &ce) || !strings.HasPrefix(ce.Msg, tc.want) {
				t.Fatalf("err = %v, want CommandLineError %q", err, tc.want)
			}
		})
	}
	if got := readOutput(t, f.out); got != "old" {
		t.Errorf("existing output was touched: %q", got)
	}
}

func TestRun_ValidateOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t, twoFilesets)
	opt := f.options()
	opt.ValidateOnly = true
	sum, err := Run(context.Background(), opt)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"id", "country", "amount"}, sum.Fields); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(f.out); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("output created in validate mode: %v", err)
	}
}

func TestRun_PreflightErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T, f fixture)
		want  string
	}{
		{
			name:  "no_matching_file",
			setup: func(t *testing.T, f fixture) { os.Remove(filepath.Join(f.in, "orders_1.csv")) },
			want:  `Could not find any file names matching patterns "orders_\d\.csv"`,
		},
		{
			name: "unreadable_workbook",
			setup: func(t *testing.T, f fixture) {
				writeFile(t, filepath.Join(f.in, "orders.xlsx"), "not a workbook")
			},
			want: `Could not read Excel file`,
		},
		{
			name: "missing_sheet",
			setup: func(t *testing.T, f fixture) {
				cfg := strings.Replace(twoFilesets, "sheets: [Q1]", "sheets: [Q2]", 1)
				writeFile(t, f.config, cfg)
			},
			want: `Could not find any sheet name matching patterns "^Q2$"`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, twoFilesets)
			tc.setup(t, f)
			_, err := Run(context.Background(), f.options())
			var ie *errs.InputFileError
			if !errors.As(err, &ie) || !strings.HasPrefix(ie.Msg, tc.want) {
				t.Fatalf("err = %v, want InputFileError %q", err, tc.want)
			}
			if _, err := os.Stat(f.out); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("output created after failed preflight")
			}
		})
	}
}

func TestRun_FieldsDisagree(t *testing.T) {
	t.Parallel()

	cfg := strings.Replace(twoFilesets, "target_field: amount", "target_field: total", 1)
	f := newFixture(t, cfg)
	_, err := Run(context.Background(), f.options())
	if !errs.IsConfig(err) || !strings.HasPrefix(err.Error(), "Resulting fields for filesets do not match.") {
		t.Fatalf("err = %v", err)
	}
}
