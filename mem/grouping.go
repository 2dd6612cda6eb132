package mem

import (
	fc "github.com/invertedv/formcalc"
)

// The GROUP_ functions reduce over the rows of the current row's group, whatever the field's scope.

func groupSum(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return reduce(ctx, args[0], ctx.Group(), "groupSum", sumR)
}

func groupAvg(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return reduce(ctx, args[0], ctx.Group(), "groupAvg", meanR)
}

func groupCount(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return counter(ctx, args[0], ctx.Group(), false)
}

func groupMin(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return reduce(ctx, args[0], ctx.Group(), "groupMin", minR)
}

func groupMax(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	return reduce(ctx, args[0], ctx.Group(), "groupMax", maxR)
}

// efficiency is (output/input)/target*100. target defaults to 1; a zero input or target gives 0.
func efficiency(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	target := 1.0
	if len(x) > 2 {
		target = x[2]
	}

	return fc.NewFloat(safeDiv(safeDiv(x[0], x[1]), target) * 100), nil
}

func ratio(ctx *fc.Context, args ...fc.Node) (*fc.Value, error) {
	x, e := evalFloats(ctx, args...)
	if e != nil {
		return nil, e
	}

	return fc.NewFloat(safeDiv(x[0], x[1])), nil
}
