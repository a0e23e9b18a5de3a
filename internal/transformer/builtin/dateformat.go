package builtin

import (
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without a system zoneinfo

	"github.com/ncruces/go-strftime"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
	"dataunifier/internal/transformer/strptime"
)

// convert_date_format keys.
const (
	KindConvertDateFormat = "convert_date_format"

	KeyAcceptedFormats = "accepted_formats"
	KeyTargetFormat    = "target_format"
	KeyTimezone        = "timezone"

	// DefaultTimezone applies when a task names none.
	DefaultTimezone = "UTC"
)

func init() { register(KindConvertDateFormat, true, newConvertDateFormat) }

// ConvertDateFormat reparses date values with the first accepted format that
// matches and renders them with the target format in Location.
type ConvertDateFormat struct {
	valueTask
	Accepted   []*strptime.Layout
	Target     string
	AllowBlank bool
	Location   *time.Location
}

func newConvertDateFormat(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyFields, KeyAcceptedFormats, KeyTargetFormat, KeyAllowBlank, KeyTimezone); err != nil {
		return nil, err
	}
	vt, err := newValueTask(c)
	if err != nil {
		return nil, err
	}
	t := &ConvertDateFormat{valueTask: vt}

	formats, _, err := n.LiteralList(KeyAcceptedFormats, true)
	if err != nil {
		return nil, err
	}
	for _, f := range formats {
		l, err := strptime.Compile(f.Text())
		if err != nil {
			return nil, errs.Configf(`Invalid date format at key "%s": "%s". Details: "%s" (File "%s")`, f.Path, f.Text(), err, f.File)
		}
		t.Accepted = append(t.Accepted, l)
	}
	if t.Target, _, err = n.String(KeyTargetFormat, true); err != nil {
		return nil, err
	}
	if t.AllowBlank, _, err = n.Boolean(KeyAllowBlank, true); err != nil {
		return nil, err
	}

	tz, ok, err := n.String(KeyTimezone, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		tz = DefaultTimezone
	}
	if t.Location, err = time.LoadLocation(tz); err != nil || tz == "" || strings.EqualFold(tz, "local") {
		return nil, errs.Configf(`Invalid timezone provided for convert_date_format task "%s": "%s". (File "%s")`, c.Name, tz, n.File)
	}
	return t, nil
}

func (t *ConvertDateFormat) Transform(r record.Row) (record.Row, error) {
	return t.each(r, func(field, v string) (string, error) {
		if t.AllowBlank && v == "" {
			return v, nil
		}
		for _, l := range t.Accepted {
			if ts, err := l.Parse(v, t.Location); err == nil {
				return strftime.Format(t.Target, ts), nil
			}
		}
		return "", errs.Transformf(`Could not interpret date value "%s" in field "%s".`, v, field)
	})
}
