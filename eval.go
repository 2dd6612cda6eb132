package formcalc

import (
	"fmt"
	"math"
	"strings"
)

// Evaluate parses formula and evaluates it at ctx's row. It never panics: a failure of any kind is
// returned as an *EvalError.
func Evaluate(formula string, ctx *Context) (*Value, error) {
	prog, e := ctx.Program(formula)
	if e != nil {
		return nil, e
	}

	return prog.Eval(ctx)
}

// Eval evaluates the program at ctx's row. A reference that resolves to nothing gives the
// field's default, 0 outside of a field.
func (p *Program) Eval(ctx *Context) (v *Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, withFormula(newEvalError(EKparse, -1, "evaluation failed: %v", r), p.Formula)
		}
	}()

	if v, err = ctx.Eval(p.Root); err != nil {
		return nil, withFormula(err, p.Formula)
	}

	if v.Unresolved() {
		if ctx.field != nil {
			return ctx.field.Default(), nil
		}

		return NewFloat(0), nil
	}

	return v, nil
}

// Eval evaluates node at ctx's row.
func (ctx *Context) Eval(node Node) (*Value, error) {
	switch n := node.(type) {
	case *Literal:
		return n.Value, nil
	case *Ref:
		return ctx.lookup(n.Label)
	case *Unary:
		x, e := ctx.Eval(n.X)
		if e != nil {
			return nil, e
		}

		if n.Op == "!" {
			return bToV(!x.Truthy()), nil
		}

		return NewFloat(-x.AsFloat()), nil
	case *Binary:
		return ctx.binary(n)
	case *Cond:
		test, e := ctx.Eval(n.Test)
		if e != nil {
			return nil, e
		}

		branch := n.Else
		if test.Truthy() {
			branch = n.Then
		}

		v, e := ctx.Eval(branch)
		if e != nil {
			return nil, e
		}

		// a quoted branch that names no field is the text itself, as in IF(x, "Pass", "Fail")
		if v.Unresolved() {
			return NewString(v.AsString()), nil
		}

		return v, nil
	case *Call:
		fn := ctx.fns.Get(n.Name)
		if fn == nil {
			return nil, newEvalError(EKunknownFunction, n.At, "unknown function %s", n.Name)
		}

		return RunFn(fn, ctx.withCall(n), n.Args...)
	}

	return nil, newEvalError(EKparse, -1, "cannot evaluate %T", node)
}

func (ctx *Context) binary(n *Binary) (*Value, error) {
	var (
		left, right *Value
		e           error
	)

	if left, e = ctx.Eval(n.Left); e != nil {
		return nil, e
	}

	switch n.Op {
	case "&&":
		if !left.Truthy() {
			return bToV(false), nil
		}

		if right, e = ctx.Eval(n.Right); e != nil {
			return nil, e
		}

		return bToV(right.Truthy()), nil
	case "||":
		if left.Truthy() {
			return bToV(true), nil
		}

		if right, e = ctx.Eval(n.Right); e != nil {
			return nil, e
		}

		return bToV(right.Truthy()), nil
	}

	if right, e = ctx.Eval(n.Right); e != nil {
		return nil, e
	}

	switch n.Op {
	case "==", "=", "!=", ">", ">=", "<", "<=":
		return bToV(compare(n.Op, left, right)), nil
	}

	return arithmetic(n.Op, left.AsFloat(), right.AsFloat())
}

// arithmetic applies op. Division and remainder by zero are 0.
func arithmetic(op string, x, y float64) (*Value, error) {
	switch op {
	case "+":
		return NewFloat(x + y), nil
	case "-":
		return NewFloat(x - y), nil
	case "*":
		return NewFloat(x * y), nil
	case "/":
		if y == 0 {
			return NewFloat(0), nil
		}

		return NewFloat(x / y), nil
	case "%":
		if y == 0 {
			return NewFloat(0), nil
		}

		return NewFloat(math.Mod(x, y)), nil
	case "^":
		return NewFloat(math.Pow(x, y)), nil
	}

	return nil, newEvalError(EKparse, -1, "unknown operator %s", op)
}

// compare is numeric when both sides are numbers, or one is a number and the other blank.
// Otherwise the text is compared.
func compare(op string, left, right *Value) bool {
	var c int

	ln, rn := left.IsNumeric(), right.IsNumeric()
	switch {
	case (ln && rn) || (ln && right.IsEmpty()) || (rn && left.IsEmpty()):
		x, y := left.AsFloat(), right.AsFloat()
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	default:
		c = strings.Compare(left.AsString(), right.AsString())
	}

	switch op {
	case "==", "=":
		return c == 0
	case "!=":
		return c != 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	}

	panic(fmt.Sprintf("compare: unknown operator %s", op))
}
