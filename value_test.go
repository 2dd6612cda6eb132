package formcalc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	assert.Equal(t, 0.0, NewFloat(math.NaN()).AsFloat())
	assert.Equal(t, 0.0, NewFloat(math.Inf(1)).AsFloat())
	assert.Equal(t, 12.5, NewString("12.5 kg").AsFloat())
	assert.False(t, NewString("12.5 kg").IsNumeric())
	assert.True(t, NewString(" 12.5 ").IsNumeric())
	assert.Equal(t, "0.1", NewFloat(0.1).AsString())
	assert.True(t, NewString(" ").IsEmpty())
	assert.Nil(t, NewValue(true))

	x := [][]any{
		{NewFloat(0), false},
		{NewFloat(-1), true},
		{NewString("0"), false},
		{NewString("abc"), true},
		{NewString(""), false},
		{unresolvedValue("Missing"), false},
	}

	for ind := 0; ind < len(x); ind++ {
		assert.Equal(t, x[ind][1], x[ind][0].(*Value).Truthy(), ind)
	}

	u := unresolvedValue("2024 Sales")
	assert.True(t, u.Unresolved())
	assert.Equal(t, 0.0, u.AsFloat())
	assert.Equal(t, "2024 Sales", u.AsString())
}

func TestConversions(t *testing.T) {
	x := [][]any{
		{"42", 42.0, true, true},
		{"-3.5e2", -350.0, true, true},
		{"12 apples", 12.0, true, false},
		{"2026-01-02", 2026.0, true, false},
		{"Inf", 0.0, false, false},
		{"", 0.0, false, false},
		{".5", 0.5, true, true},
	}

	for ind := 0; ind < len(x); ind++ {
		s := x[ind][0].(string)
		f, ok := ParseNumber(s)
		assert.Equal(t, x[ind][1], f, s)
		assert.Equal(t, x[ind][2], ok, s)

		_, strict := StrictNumber(s)
		assert.Equal(t, x[ind][3], strict, s)
	}

	assert.Nil(t, Any2Float64("12 apples"))
	assert.Equal(t, 3.0, *Any2Float64(3))
}
