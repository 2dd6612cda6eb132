package mem

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	fc "github.com/invertedv/formcalc"
)

func add(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	total := 0.0
	for _, xv := range x {
		total += xv
	}

	return fc.NewFloat(total), nil
}

// subtract takes the later arguments from the first.
func subtract(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	out := x[0]
	for ind := 1; ind < len(x); ind++ {
		out -= x[ind]
	}

	return fc.NewFloat(out), nil
}

func multiply(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	out := 1.0
	for _, xv := range x {
		out *= xv
	}

	return fc.NewFloat(out), nil
}

// divide divides the first argument by each of the others. Any zero divisor gives 0.
func divide(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	out := x[0]
	for ind := 1; ind < len(x); ind++ {
		if x[ind] == 0 {
			return fc.NewFloat(0), nil
		}

		out /= x[ind]
	}

	return fc.NewFloat(out), nil
}

func percentage(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	return fc.NewFloat(safeDiv(x[0], x[1]) * 100), nil
}

// concatenate joins the non-blank arguments with a space.
func concatenate(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	vals, e := evalArgs(ctx, args...)
	if e != nil {
		return nil, e
	}

	var parts []string
	for _, v := range vals {
		if v.IsEmpty() || v.Unresolved() {
			continue
		}

		parts = append(parts, fc.TrimBlank(v.AsString()))
	}

	return fc.NewString(strings.Join(parts, " ")), nil
}

func expression(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return ctx.Eval(args[0])
}

// sqrt of a negative number is 0.
func sqrt(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return unary(ctx, args[0], func(x float64) float64 {
		if x < 0 {
			return 0
		}

		return math.Sqrt(x)
	})
}

func abs(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return unary(ctx, args[0], math.Abs)
}

func floor(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return unary(ctx, args[0], math.Floor)
}

func ceil(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return unary(ctx, args[0], math.Ceil)
}

// round rounds half away from zero to the number of digits in the second argument, default 0.
// digits is held to +/- formcalc.MaxPrecision.
func round(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	digits := int32(0)
	if len(x) > 1 {
		digits = int32(math.Max(-fc.MaxPrecision, math.Min(fc.MaxPrecision, x[1])))
	}

	f, _ := decimal.NewFromFloat(x[0]).Round(digits).Float64()

	return fc.NewFloat(f), nil
}

func pow(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	return fc.NewFloat(math.Pow(x[0], x[1])), nil
}

func unary(ctx *fc.Context, arg fc.Node, fn func(float64) float64) (*fc.Value, error) {
	v, e := ctx.Eval(arg)
	if e != nil {
		return nil, e
	}

	return fc.NewFloat(fn(v.AsFloat())), nil
}
