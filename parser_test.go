package formcalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	x := [][]any{
		{`1 + 2 * 3`, "(1 + (2 * 3))"},
		{`(1 + 2) * 3`, "((1 + 2) * 3)"},
		{`2 ^ 3 ^ 2`, "(2 ^ (3 ^ 2))"},
		{`-2 ^ 2`, "-(2 ^ 2)"},
		{`"A" > 1 && "B" < 2 || !"C"`, `((("A" > 1) && ("B" < 2)) || !"C")`},
		{`"A" = 'x'`, `("A" = 'x')`},
		{`sum("Sales")`, `SUM("Sales")`},
		{`Round("Sales" / 3, 2)`, `ROUND(("Sales" / 3), 2)`},
		{`IF("Score" > 80, "Pass", "Fail")`, `IF(("Score" > 80), "Pass", "Fail")`},
		{`NOW()`, `NOW()`},
		{`10 % 3 - 1`, "((10 % 3) - 1)"},
	}

	for ind := 0; ind < len(x); ind++ {
		prog, e := Parse(x[ind][0].(string))
		assert.Nil(t, e, x[ind][0])
		assert.Equal(t, x[ind][1], prog.Root.String(), x[ind][0])
	}
}

func TestParse_Errors(t *testing.T) {
	x := [][]any{
		{``, EKparse},
		{`("A" + "B"`, EKparse},
		{`"A" + "B")`, EKparse},
		{`1 +`, EKparse},
		{`Score + 1`, EKparse},
		{`IF("A", 1)`, EKarity},
		{`SUM("A" "B")`, EKparse},
	}

	for ind := 0; ind < len(x); ind++ {
		formula := x[ind][0].(string)
		_, e := Parse(formula)
		assert.NotNil(t, e, formula)
		assert.Equal(t, x[ind][1], KindOf(e), formula)

		var ee *EvalError
		if assert.ErrorAs(t, e, &ee) {
			assert.Equal(t, formula, ee.Formula)
		}
	}
}

func TestProgram_References(t *testing.T) {
	prog, e := Parse(`IF("Score" > 80, "Sales" * 2, "Score" + SUM("Sales") + "Items → Qty")`)
	assert.Nil(t, e)
	assert.Equal(t, []string{"Score", "Sales", "Items → Qty"}, prog.References())

	calls := prog.Calls()
	assert.Len(t, calls, 1)
	assert.Equal(t, "SUM", calls[0].Name)
}
