package formcalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFunctions(t *testing.T) {
	fm := LoadFunctions(`
sum:aggregate:1:1:1
concatenate:rowwise:2:2:*
bad:line
 round : rowwise : 1 : 0 : 2
`)

	assert.Equal(t, []string{"CONCATENATE", "ROUND", "SUM"}, fm.Names())
	assert.Equal(t, &FnSpec{Name: "CONCATENATE", Calc: CTrowwise, MinArgs: 2, MinFields: 2, MaxArgs: -1}, fm.Get("Concatenate"))
	assert.Equal(t, CTaggregate, fm.Get("sum").Calc)
	assert.Equal(t, 2, fm.Get("ROUND").MaxArgs)
	assert.Equal(t, 0, fm.MinFields("nope"))
	assert.Nil(t, fm.Get("bad"))

	// the embedded library
	x := [][]any{
		{"SUM", CTaggregate, 1},
		{"RUNNING_TOTAL", CTcolumnwise, 1},
		{"GROUP_AVG", CTgrouping, 1},
		{"PERCENTAGE", CTrowwise, 2},
		{"SQRT", CTrowwise, 0},
	}

	for ind := 0; ind < len(x); ind++ {
		spec := Functions.Get(x[ind][0].(string))
		if !assert.NotNil(t, spec, x[ind][0]) {
			continue
		}

		assert.Equal(t, x[ind][1], spec.Calc, x[ind][0])
		assert.Equal(t, x[ind][2], spec.MinFields, x[ind][0])
	}
}
