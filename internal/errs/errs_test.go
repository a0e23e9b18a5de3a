package errs

import (
	"errors"
	"testing"
)

func TestParsingError_Message(t *testing.T) {
	t.Parallel()

	inner := Transformf(`Value of field "%s" is not a number: "%s"`, "qty", "x")
	tests := []struct {
		name string
		pos  Position
		want string
	}{
		{
			name: "csv",
			pos:  Position{File: "in/a.csv", Row: 3},
			want: `When executing task "sum" on row 3 of file "in/a.csv": Value of field "qty" is not a number: "x"`,
		},
		{
			name: "excel_sheet",
			pos:  Position{File: "in/a.xlsx", Sheet: "Q1", Row: 12},
			want: `When executing task "sum" on row 12 of file "in/a.xlsx", sheet "Q1": Value of field "qty" is not a number: "x"`,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := &ParsingError{Task: "sum", Pos: tc.pos, Err: inner}
			if got := err.Error(); got != tc.want {
				t.Fatalf("got  %s\nwant %s", got, tc.want)
			}
			if !IsTransformation(err) {
				t.Fatalf("ParsingError should unwrap to a TransformationError")
			}
		})
	}
}

func TestKinds(t *testing.T) {
	t.Parallel()

	if !IsConfig(Configf("bad %s", "x")) {
		t.Fatalf("Configf should be a ConfigError")
	}
	if IsConfig(MissingField("a")) {
		t.Fatalf("MissingField is not a ConfigError")
	}
	if got := MissingField("a").Error(); got != `Could not find field "a".` {
		t.Fatalf("MissingField=%q", got)
	}
	if errors.Is(Transformf("x"), ErrDiscardRecord) {
		t.Fatalf("a transformation error is not a discard")
	}
}
