package builtin

import (
	"strings"

	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// Case-folding kinds.
const (
	KindLowercase = "lowercase"
	KindUppercase = "uppercase"
)

func init() {
	register(KindLowercase, true, caseKind(strings.ToLower))
	register(KindUppercase, true, caseKind(strings.ToUpper))
}

// ChangeCase maps every listed field through Fold.
type ChangeCase struct {
	valueTask
	Fold func(string) string
}

func caseKind(fold func(string) string) transformer.Constructor {
	return func(c *transformer.BuildContext) (transformer.Task, error) {
		if err := c.Node.CheckKeys(KeyFields); err != nil {
			return nil, err
		}
		vt, err := newValueTask(c)
		if err != nil {
			return nil, err
		}
		return &ChangeCase{valueTask: vt, Fold: fold}, nil
	}
}

func (t *ChangeCase) Transform(r record.Row) (record.Row, error) {
	return t.each(r, func(_, v string) (string, error) { return t.Fold(v), nil })
}
