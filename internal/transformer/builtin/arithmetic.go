package builtin

import (
	"math/big"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// arithmetic keys and operations.
const (
	KindArithmetic = "arithmetic"

	KeyLeftField   = "left_field"
	KeyRightField  = "right_field"
	KeyResultField = "result_field"
	KeyOperation   = "operation"
	KeyBlankIsZero = "blank_is_zero"

	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
)

func init() { register(KindArithmetic, true, newArithmetic) }

// Arithmetic combines two numeric fields into a third.
type Arithmetic struct {
	transformer.Base
	Left, Right, Result string
	Op                  string
	BlankIsZero         bool
}

func newArithmetic(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyLeftField, KeyRightField, KeyResultField, KeyOperation, KeyBlankIsZero); err != nil {
		return nil, err
	}
	t := &Arithmetic{Base: c.Base()}
	var err error
	if t.Left, _, err = n.String(KeyLeftField, true); err != nil {
		return nil, err
	}
	if t.Right, _, err = n.String(KeyRightField, true); err != nil {
		return nil, err
	}
	if t.Result, _, err = n.String(KeyResultField, true); err != nil {
		return nil, err
	}
	if t.Op, _, err = enumOption(n, KeyOperation, true, OpAdd, OpSubtract, OpMultiply, OpDivide); err != nil {
		return nil, err
	}
	if t.BlankIsZero, _, err = n.Boolean(KeyBlankIsZero, false); err != nil {
		return nil, err
	}
	if err := c.Check(t.Left, t.Right, t.Result); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Arithmetic) operand(r record.Row, field string) (number, error) {
	v := r.Value(field)
	if t.BlankIsZero && v == "" {
		return number{i: new(big.Int)}, nil
	}
	n, ok := parseNumber(v)
	if !ok {
		return number{}, errs.Transformf(`Value of field "%s" is not a number: "%s"`, field, v)
	}
	return n, nil
}

func (t *Arithmetic) Transform(r record.Row) (record.Row, error) {
	for _, f := range []string{t.Left, t.Right, t.Result} {
		if !r.Has(f) {
			return r, errs.MissingField(f)
		}
	}
	l, err := t.operand(r, t.Left)
	if err != nil {
		return r, err
	}
	rt, err := t.operand(r, t.Right)
	if err != nil {
		return r, err
	}
	res, err := t.compute(l, rt)
	if err != nil {
		return r, err
	}
	return r.Edit().Set(t.Result, res.String()).Row(), nil
}

// compute keeps integer operands exact; a float operand or division yields a
// float.
func (t *Arithmetic) compute(l, r number) (number, error) {
	if t.Op == OpDivide {
		if r.isZero() {
			return number{}, errs.Transformf(`Cannot divide by zero (value of field "%s" is zero).`, t.Right)
		}
		if l.isInt() && r.isInt() {
			f, _ := new(big.Rat).SetFrac(l.i, r.i).Float64()
			return number{f: f}, nil
		}
		return number{f: l.float() / r.float()}, nil
	}
	if l.isInt() && r.isInt() {
		out := new(big.Int)
		switch t.Op {
		case OpAdd:
			out.Add(l.i, r.i)
		case OpSubtract:
			out.Sub(l.i, r.i)
		default:
			out.Mul(l.i, r.i)
		}
		return number{i: out}, nil
	}
	a, b := l.float(), r.float()
	switch t.Op {
	case OpAdd:
		return number{f: a + b}, nil
	case OpSubtract:
		return number{f: a - b}, nil
	}
	return number{f: a * b}, nil
}
