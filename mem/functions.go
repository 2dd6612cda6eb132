package mem

import (
	fc "github.com/invertedv/formcalc"
)

// impl computes a function at ctx's row. Arity is checked before it is called.
type impl func(ctx *fc.Context, args ...fc.Node) (*fc.Value, error)

var impls = map[string]impl{
	// aggregate
	"SUM":            sum,
	"AVG":            avg,
	"MIN":            minimum,
	"MAX":            maximum,
	"COUNT":          count,
	"COUNT_DISTINCT": countDistinct,

	// row-wise
	"ADD":         add,
	"SUBTRACT":    subtract,
	"MULTIPLY":    multiply,
	"DIVIDE":      divide,
	"PERCENTAGE":  percentage,
	"CONCATENATE": concatenate,
	"EXPRESSION":  expression,
	"SQRT":        sqrt,
	"ABS":         abs,
	"ROUND":       round,
	"FLOOR":       floor,
	"CEIL":        ceil,
	"POW":         pow,

	// column-wise
	"RUNNING_TOTAL":    runningTotal,
	"CUMULATIVE_AVG":   cumulativeAvg,
	"RANK":             rank,
	"PERCENT_OF_TOTAL": percentOfTotal,
	"MOVING_AVG":       movingAvg,
	"DIFFERENCE":       difference,
	"PREV":             prev,
	"NEXT":             next,
	"INDEX":            index,
	"SUM_RANGE":        sumRange,
	"AVG_RANGE":        avgRange,

	// grouping
	"GROUP_SUM":   groupSum,
	"GROUP_AVG":   groupAvg,
	"GROUP_COUNT": groupCount,
	"GROUP_MIN":   groupMin,
	"GROUP_MAX":   groupMax,
	"EFFICIENCY":  efficiency,
	"RATIO":       ratio,
}

// StandardFunctions returns the function library. Names and arities come from formcalc.Functions.
func StandardFunctions() fc.Fns {
	fns := make(fc.Fns)
	for nm, spec := range fc.Functions {
		if f, ok := impls[nm]; ok {
			fns.Add(bind(spec, f))
		}
	}

	return fns
}

func bind(spec *fc.FnSpec, f impl) fc.Fn {
	return func(info bool, ctx *fc.Context, args ...fc.Node) *fc.FnReturn {
		if info {
			return &fc.FnReturn{Name: spec.Name, Calc: spec.Calc, MinArgs: spec.MinArgs, MaxArgs: spec.MaxArgs}
		}

		v, e := f(ctx, args...)

		return &fc.FnReturn{Value: v, Err: e}
	}
}

// evalArgs evaluates each arg at ctx's row.
func evalArgs(ctx *fc.Context, args ...fc.Node) ([]*fc.Value, error) {
	out := make([]*fc.Value, len(args))
	for ind, a := range args {
		v, e := ctx.Eval(a)
		if e != nil {
			return nil, e
		}

		out[ind] = v
	}

	return out, nil
}

// evalFloats is evalArgs with each value coerced to a number.
func evalFloats(ctx *fc.Context, args ...fc.Node) ([]float64, error) {
	vals, e := evalArgs(ctx, args...)
	if e != nil {
		return nil, e
	}

	out := make([]float64, len(vals))
	for ind, v := range vals {
		out[ind] = v.AsFloat()
	}

	return out, nil
}

// safeDiv is a/b, 0 if b is 0.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}

	return a / b
}
