package strptime

import (
	"errors"
	"testing"
	"time"
)

func mustCompile(t *testing.T, format string) *Layout {
	t.Helper()
	l, err := Compile(format)
	if err != nil {
		t.Fatalf("Compile(%q): %v", format, err)
	}
	return l
}

func TestParse_Accepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		value  string
		want   time.Time
	}{
		{"%Y-%m-%d", "2019-03-04", time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"%d/%m/%Y", "4/3/2019", time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"%d %b %Y", "04   MAR 2019", time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"%A %d %B %Y", "monday 4 march 2019", time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"%y%m%d", "680101", time.Date(2068, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"%y%m%d", "690101", time.Date(1969, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"%I:%M %p", "12:05 AM", time.Date(1900, 1, 1, 0, 5, 0, 0, time.UTC)},
		{"%I:%M %p", "12:05 pm", time.Date(1900, 1, 1, 12, 5, 0, 0, time.UTC)},
		{"%I:%M %p", "1:05 PM", time.Date(1900, 1, 1, 13, 5, 0, 0, time.UTC)},
		{"%H:%M:%S.%f", "23:59:58.12", time.Date(1900, 1, 1, 23, 59, 58, 120000000, time.UTC)},
		{"%Y %j", "2020 060", time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"%Y-%m-%d %Z", "2020-01-02 UTC", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"100%% %Y", "100% 2001", time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := mustCompile(t, tc.format).Parse(tc.value, time.UTC)
		if err != nil {
			t.Fatalf("Parse(%q, %q): %v", tc.format, tc.value, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("Parse(%q, %q)=%v want %v", tc.format, tc.value, got, tc.want)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		value  string
	}{
		{"%Y-%m-%d", "2019-02-30"},  // impossible date
		{"%Y-%m-%d", "2019-13-01"},  // month out of range
		{"%Y-%m-%d", "2019-03-04x"}, // trailing data
		{"%Y-%m-%d", "x2019-03-04"},
		{"%H:%M:%S", "10:00:60"},
		{"%b %d", "feb 29"}, // year defaults to 1900, not a leap year
		{"%Y", "0000"},
		{"%Y-%m-%d", ""},
	}
	for _, tc := range tests {
		_, err := mustCompile(t, tc.format).Parse(tc.value, time.UTC)
		if !errors.Is(err, ErrNoMatch) {
			t.Fatalf("Parse(%q, %q) err=%v want ErrNoMatch", tc.format, tc.value, err)
		}
	}
}

/*
TestParse_Location checks both zone paths: a wall-clock value is interpreted
in the target location (including historical offsets from the embedded
database), and a value with an explicit offset is converted into it.
*/
func TestParse_Location(t *testing.T) {
	t.Parallel()

	sg, err := time.LoadLocation("Asia/Singapore")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	got, err := mustCompile(t, "%Y-%m-%d %H:%M").Parse("1965-06-01 10:00", sg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, off := got.Zone(); off != 7*3600+30*60 {
		t.Fatalf("offset=%d want +07:30", off)
	}

	got, err = mustCompile(t, "%Y-%m-%dT%H:%M:%S%z").Parse("2020-01-01T00:00:00+01:00", sg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2020, 1, 1, 7, 0, 0, 0, sg)
	if !got.Equal(want) || got.Location() != sg {
		t.Fatalf("got %v want %v", got, want)
	}

	got, err = mustCompile(t, "%Y-%m-%dT%H:%M:%S%z").Parse("2020-01-01T00:00:00Z", time.UTC)
	if err != nil || !got.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Z suffix: %v %v", got, err)
	}
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"%Y-%m-%Q", "%Y %Y", "trailing %"} {
		if _, err := Compile(format); err == nil {
			t.Fatalf("Compile(%q) succeeded", format)
		}
	}
}
