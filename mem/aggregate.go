package mem

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	fc "github.com/invertedv/formcalc"
)

// reducer reduces the numbers of a column. It is not called with an empty slice.
type reducer func(x []float64) float64

func sumR(x []float64) float64 { return floats.Sum(x) }
func meanR(x []float64) float64 { return stat.Mean(x, nil) }
func minR(x []float64) float64 { return floats.Min(x) }
func maxR(x []float64) float64 { return floats.Max(x) }

type reduced struct {
	v float64
	e error
}

// reduce evaluates arg down window and reduces the values that read as numbers. Blank and
// non-numeric values are skipped; no numbers at all gives 0. The result is memoised for the pass.
func reduce(ctx *fc.Context, arg fc.Node, window []*fc.Row, tag string, r reducer) (*fc.Value, error) {
	res := ctx.Memo(ctx.Key(ctx.Call(), window, tag), func() any {
		vals, e := ctx.Column(arg, window)
		if e != nil {
			return &reduced{e: e}
		}

		x := numbers(vals)
		if len(x) == 0 {
			return &reduced{}
		}

		return &reduced{v: r(x)}
	}).(*reduced)

	if res.e != nil {
		return nil, res.e
	}

	return fc.NewFloat(res.v), nil
}

// numbers returns the values that start with a number.
func numbers(vals []*fc.Value) []float64 {
	var x []float64
	for _, v := range vals {
		if v.DataType() == fc.DTfloat {
			x = append(x, v.AsFloat())
			continue
		}

		if f, ok := fc.ParseNumber(v.AsString()); ok && !v.Unresolved() {
			x = append(x, f)
		}
	}

	return x
}

// counter counts the non-blank values of arg down window, or the distinct ones.
func counter(ctx *fc.Context, arg fc.Node, window []*fc.Row, distinct bool) (*fc.Value, error) {
	tag := "count"
	if distinct {
		tag = "countDistinct"
	}

	res := ctx.Memo(ctx.Key(ctx.Call(), window, tag), func() any {
		vals, e := ctx.Column(arg, window)
		if e != nil {
			return &reduced{e: e}
		}

		seen := make(map[string]bool)
		n := 0
		for _, v := range vals {
			if v.IsEmpty() || v.Unresolved() {
				continue
			}

			n++
			seen[v.AsString()] = true
		}

		if distinct {
			return &reduced{v: float64(len(seen))}
		}

		return &reduced{v: float64(n)}
	}).(*reduced)

	if res.e != nil {
		return nil, res.e
	}

	return fc.NewFloat(res.v), nil
}

func sum(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return reduce(ctx, args[0], ctx.Window(), "sum", sumR)
}

func avg(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return reduce(ctx, args[0], ctx.Window(), "avg", meanR)
}

// minimum is the aggregate with one argument, the smallest of its arguments with more.
func minimum(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	if len(args) == 1 {
		return reduce(ctx, args[0], ctx.Window(), "min", minR)
	}

	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	return fc.NewFloat(floats.Min(x)), nil
}

func maximum(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	if len(args) == 1 {
		return reduce(ctx, args[0], ctx.Window(), "max", maxR)
	}

	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	return fc.NewFloat(floats.Max(x)), nil
}

func count(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return counter(ctx, args[0], ctx.Window(), false)
}

func countDistinct(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return counter(ctx, args[0], ctx.Window(), true)
}
