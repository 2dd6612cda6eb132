package mem

import (
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	fc "github.com/invertedv/formcalc"
)

type vector struct {
	x []float64
	e error
}

// column computes fn over the numbers of arg down the window, once per pass, and returns the
// element at the current row.
func column(ctx *fc.Context, arg fc.Node, tag string, fn func(x []float64) []float64) (*fc.Value, error) {
	window := ctx.Window()

	vec := ctx.Memo(ctx.Key(ctx.Call(), window, tag), func() any {
		x, e := ctx.Numbers(arg, window)
		if e != nil {
			return &vector{e: e}
		}

		return &vector{x: fn(x)}
	}).(*vector)

	if vec.e != nil {
		return nil, vec.e
	}

	indx := ctx.Index(window)
	if indx < 0 || indx >= len(vec.x) {
		return fc.NewFloat(0), nil
	}

	return fc.NewFloat(vec.x[indx]), nil
}

func runningTotal(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return column(ctx, args[0], "runningTotal", func(x []float64) []float64 {
		return floats.CumSum(make([]float64, len(x)), x)
	})
}

func cumulativeAvg(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return column(ctx, args[0], "cumulativeAvg", func(x []float64) []float64 {
		out := floats.CumSum(make([]float64, len(x)), x)
		for ind := range out {
			out[ind] /= float64(ind + 1)
		}

		return out
	})
}

// rank is the competition rank: tied values share a rank and the next rank is skipped.
// The direction comes from the second argument, else the field's SortOrder, else descending.
func rank(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	desc := true
	if f := ctx.Field(); f != nil && fc.TrimBlank(f.SortOrder) != "" {
		desc = fc.Descending(f.SortOrder)
	}

	if len(args) > 1 {
		dir, e := direction(ctx, args[1])
		if e != nil {
			return nil, e
		}

		if dir != "" {
			desc = fc.Descending(dir)
		}
	}

	tag := "rankAsc"
	if desc {
		tag = "rankDesc"
	}

	return column(ctx, args[0], tag, func(x []float64) []float64 {
		out := make([]float64, len(x))
		for i, xi := range x {
			better := 0
			for _, xj := range x {
				if (desc && xj > xi) || (!desc && xj < xi) {
					better++
				}
			}

			out[i] = float64(better + 1)
		}

		return out
	})
}

// direction reads ASC or DESC from arg, written as 'DESC' or "DESC". "" if it is neither.
func direction(ctx *fc.Context, arg fc.Node) (string, error) {
	if ref, ok := arg.(*fc.Ref); ok {
		if d := strings.ToUpper(fc.TrimBlank(ref.Label)); d == "ASC" || d == "DESC" {
			return d, nil
		}
	}

	v, e := ctx.Eval(arg)
	if e != nil {
		return "", e
	}

	if d := strings.ToUpper(fc.TrimBlank(v.AsString())); d == "ASC" || d == "DESC" {
		return d, nil
	}

	return "", nil
}

// percentOfTotal is 0 for every row when the column sums to 0.
func percentOfTotal(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return column(ctx, args[0], "percentOfTotal", func(x []float64) []float64 {
		total := floats.Sum(x)
		out := make([]float64, len(x))
		for ind, xv := range x {
			out[ind] = safeDiv(xv, total) * 100
		}

		return out
	})
}

// movingAvg averages the current row and up to n-1 rows before it. n is the second argument,
// else the field's WindowSize, else 3.
func movingAvg(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	n := 3
	if f := ctx.Field(); f != nil && f.WindowSize > 0 {
		n = f.WindowSize
	}

	if len(args) > 1 {
		v, e := ctx.Eval(args[1])
		if e != nil {
			return nil, e
		}

		if nv := int(v.AsFloat()); nv > 0 {
			n = nv
		}
	}

	return column(ctx, args[0], "movingAvg"+strconv.Itoa(n), func(x []float64) []float64 {
		out := make([]float64, len(x))
		for ind := range x {
			start := max(0, ind-n+1)
			out[ind] = stat.Mean(x[start:ind+1], nil)
		}

		return out
	})
}

// difference is the change from the previous row, 0 for the first.
func difference(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return column(ctx, args[0], "difference", func(x []float64) []float64 {
		out := make([]float64, len(x))
		for ind := 1; ind < len(x); ind++ {
			out[ind] = x[ind] - x[ind-1]
		}

		return out
	})
}

func prev(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	k, e := offset(ctx, args...)
	if e != nil {
		return nil, e
	}

	return shifted(ctx, args[0], -k)
}

func next(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	k, e := offset(ctx, args...)
	if e != nil {
		return nil, e
	}

	return shifted(ctx, args[0], k)
}

// offset reads the optional second argument of PREV and NEXT, default 1.
func offset(ctx *fc.Context, args ...fc.Node) (int, error) {
	if len(args) < 2 {
		return 1, nil
	}

	v, e := ctx.Eval(args[1])
	if e != nil {
		return 0, e
	}

	return int(v.AsFloat()), nil
}

// shifted returns the value of arg k rows from the current one, 0 past either end.
func shifted(ctx *fc.Context, arg fc.Node, k int) (*fc.Value, error) {
	window := ctx.Window()

	vals, e := ctx.Column(arg, window)
	if e != nil {
		return nil, e
	}

	indx := ctx.Index(window)
	if indx < 0 || indx+k < 0 || indx+k >= len(vals) {
		return fc.NewFloat(0), nil
	}

	return vals[indx+k], nil
}

// index returns the value at the 1-based position given by the second argument.
func index(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	window := ctx.Window()

	pos, e := ctx.Eval(args[1])
	if e != nil {
		return nil, e
	}

	vals, e := ctx.Column(args[0], window)
	if e != nil {
		return nil, e
	}

	n := int(pos.AsFloat())
	if n < 1 || n > len(vals) {
		return fc.NewFloat(0), nil
	}

	return vals[n-1], nil
}

func sumRange(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return ranged(ctx, sumR, args...)
}

func avgRange(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return ranged(ctx, meanR, args...)
}

// ranged reduces the rows from the second to the third argument, 1-based and inclusive.
// The range is clamped to the window; an empty range gives 0.
func ranged(ctx *fc.Context, r reducer, args ...fc.Node) (*fc.Value, error) {
	window := ctx.Window()

	bounds, e := evalFloats(ctx, args[1:]...)
	if e != nil {
		return nil, e
	}

	x, e := ctx.Numbers(args[0], window)
	if e != nil {
		return nil, e
	}

	from, to := max(int(bounds[0]), 1), min(int(bounds[1]), len(x))
	if from > to {
		return fc.NewFloat(0), nil
	}

	return fc.NewFloat(r(x[from-1 : to])), nil
}
