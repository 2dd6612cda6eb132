package mem

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fc "github.com/invertedv/formcalc"
)

func engine4test(t *testing.T, buf *bytes.Buffer) *Engine {
	en, e := NewEngine(EngineLogger(log.New(buf, "", 0)))
	require.Nil(t, e)

	return en
}

func entries(rows []*fc.Row, label string) []string {
	var out []string
	for _, r := range rows {
		v, _ := r.Value(label)
		out = append(out, v)
	}

	return out
}

func TestEngine_Evaluate(t *testing.T) {
	calcs := []*fc.CalculatedField{
		{Label: "Total", CalcType: fc.CTaggregate, Formula: `SUM("Sales")`, Format: fc.FMcurrency, Precision: 2},
		{Label: "Running", CalcType: fc.CTcolumnwise, Formula: `RUNNING_TOTAL("Sales")`, Format: fc.FMinteger},
		{Label: "Result", CalcType: fc.CTrowwise, Formula: `IF("Score" > 80, "Pass", "Fail")`, Format: fc.FMtext},
		{Label: "Per Point", CalcType: fc.CTrowwise, Formula: `DIVIDE("Sales", "Score" - 60)`, Format: fc.FMdecimal, Precision: 1},
		{Label: "Broken", CalcType: fc.CTrowwise, Formula: `("Sales"`, Format: fc.FMdecimal, Precision: 2},
		{Label: "Half Total", CalcType: fc.CTaggregate, Formula: `"Total" / 2`, Format: fc.FMdecimal, Precision: 0},
	}

	rows := rows4test()
	var buf bytes.Buffer
	res := engine4test(t, &buf).Evaluate(rows, catalog4test(calcs...), calcs)

	assert.Equal(t, []string{"$770.00", "$770.00", "$770.00", "$770.00"}, entries(res.Rows, "Total"))
	assert.Equal(t, []string{"100", "350", "770", "770"}, entries(res.Rows, "Running"))
	assert.Equal(t, []string{"Fail", "Pass", "Pass", "Fail"}, entries(res.Rows, "Result"))
	assert.Equal(t, []string{"10.0", "7.1", "12.0", "0.0"}, entries(res.Rows, "Per Point"))
	assert.Equal(t, []string{"0.00", "0.00", "0.00", "0.00"}, entries(res.Rows, "Broken"))
	assert.Equal(t, []string{"385", "385", "385", "385"}, entries(res.Rows, "Half Total"))

	// one broken field is reported once and does not stop the others
	assert.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors["Broken"], "ParseError")
	assert.Contains(t, buf.String(), "field Broken")

	assert.Equal(t, fc.CalculatedType, res.Rows[0].Entry("Total").FieldType)
	assert.Len(t, res.Values["Running"], 4)
	assert.Equal(t, 350.0, res.Values["Running"][1].AsFloat())

	// input rows are untouched
	assert.Len(t, rows[0].Data, 5)

	v, ok := res.Summary.Value("Total")
	assert.True(t, ok)
	assert.Equal(t, "$770.00", v)
	v, _ = res.Summary.Value("Sales")
	assert.Equal(t, "770.00", v)
	_, ok = res.Summary.Value("Name")
	assert.False(t, ok)
	_, ok = res.Summary.Value("Amount")
	assert.False(t, ok)

	assert.Nil(t, res.Records)
}

func TestEngine_Deterministic(t *testing.T) {
	calcs := []*fc.CalculatedField{
		{Label: "Rank", Formula: `RANK("Score", "DESC")`, Format: fc.FMinteger},
		{Label: "Avg", Formula: `MOVING_AVG("Sales", 2)`, Format: fc.FMdecimal, Precision: 2},
	}

	var buf bytes.Buffer
	en := engine4test(t, &buf)
	first := en.Evaluate(rows4test(), catalog4test(calcs...), calcs)

	for ind := 0; ind < 3; ind++ {
		again := en.Evaluate(rows4test(), catalog4test(calcs...), calcs)
		assert.Equal(t, entries(first.Rows, "Rank"), entries(again.Rows, "Rank"))
		assert.Equal(t, entries(first.Rows, "Avg"), entries(again.Rows, "Avg"))
	}

	assert.Equal(t, []string{"3", "1", "1", "4"}, entries(first.Rows, "Rank"))
}

func TestEngine_Grouped(t *testing.T) {
	calcs := []*fc.CalculatedField{
		{ID: "gs", Label: "Group Amount", CalcType: fc.CTgrouping, Formula: `GROUP_SUM("Amount")`, Format: fc.FMdecimal, Precision: 0},
		{ID: "rt", Label: "Group Running", CalcType: fc.CTcolumnwise, Formula: `RUNNING_TOTAL("Sales")`, Scope: fc.ScopeGroup, Format: fc.FMdecimal, Precision: 0},
		{ID: "all", Label: "All Running", CalcType: fc.CTcolumnwise, Formula: `RUNNING_TOTAL("Sales")`, Format: fc.FMdecimal, Precision: 0},
	}

	levels := []*fc.GroupingLevel{{
		FieldID:       "region",
		SortDirection: "asc",
		ShowSubtotals: true,
		Aggregations:  []*fc.Aggregation{{FieldID: "sales", Function: "sum"}, {FieldID: "gs", Function: "max", Label: "group"}},
	}}

	var buf bytes.Buffer
	res := engine4test(t, &buf).Evaluate(rows4test(), catalog4test(calcs...), calcs, levels...)

	// West: Ann, Cy; East: Bob, Dee
	assert.Equal(t, []string{"40", "20", "40", "20"}, entries(res.Rows, "Group Amount"))
	assert.Equal(t, []string{"100", "250", "520", "250"}, entries(res.Rows, "Group Running"))
	assert.Equal(t, []string{"100", "350", "770", "770"}, entries(res.Rows, "All Running"))

	require.Len(t, res.Groups, 2)
	assert.Equal(t, "East", res.Groups[0].Value)

	var types []fc.RecordTypes
	for _, rec := range res.Records {
		types = append(types, rec.Type)
	}

	assert.Equal(t, []fc.RecordTypes{fc.FRheader, fc.FRdata, fc.FRdata, fc.FRfooter, fc.FRheader, fc.FRdata, fc.FRdata, fc.FRfooter}, types)

	east := res.Records[3]
	assert.Equal(t, map[string]float64{"sum(Sales)": 250, "group": 20}, east.Aggregations)

	dee := res.Records[2]
	v, _ := dee.Row.Value("Name")
	assert.Equal(t, "Dee", v)
	assert.Equal(t, 20.0, dee.Calculated["Group Amount"].AsFloat())
	assert.Len(t, dee.GroupContext, 2)
}

func TestEngine_Subtotals(t *testing.T) {
	calcs := []*fc.CalculatedField{
		{ID: "cur", Label: "Cur", CalcType: fc.CTrowwise, Formula: `"Sales" * 10`, Format: fc.FMcurrency, Precision: 2},
		{ID: "int", Label: "Int", CalcType: fc.CTrowwise, Formula: `"Sales" * 10`, Format: fc.FMinteger},
		{ID: "gt", Label: "Group Total", CalcType: fc.CTaggregate, Formula: `SUM("Sales")`, Scope: fc.ScopeGroup, Format: fc.FMinteger},
	}

	levels := []*fc.GroupingLevel{{
		FieldID:       "region",
		ShowSubtotals: true,
		Aggregations: []*fc.Aggregation{
			{FieldID: "cur", Function: "sum", Label: "cur"},
			{FieldID: "int", Function: "sum", Label: "int"},
			{FieldID: "int", Function: "max", Label: "top"},
		},
	}}

	var buf bytes.Buffer
	res := engine4test(t, &buf).Evaluate(rows4test(), catalog4test(calcs...), calcs, levels...)

	assert.Equal(t, []string{"$1,000.00", "$2,500.00", "$4,200.00", "$0.00"}, entries(res.Rows, "Cur"))
	assert.Equal(t, []string{"1,000", "2,500", "4,200", "0"}, entries(res.Rows, "Int"))
	assert.Equal(t, []string{"520", "250", "520", "250"}, entries(res.Rows, "Group Total"))

	// footers reduce the values, not the formatted entries
	east, west := res.Records[3], res.Records[7]
	require.Equal(t, fc.FRfooter, east.Type)
	require.Equal(t, fc.FRfooter, west.Type)
	assert.Equal(t, map[string]float64{"cur": 2500, "int": 2500, "top": 2500}, east.Aggregations)
	assert.Equal(t, map[string]float64{"cur": 5200, "int": 5200, "top": 4200}, west.Aggregations)

	// a group-scoped aggregate has no dataset value
	_, ok := res.Summary.Value("Group Total")
	assert.False(t, ok)
}

func TestEngine_GroupFieldMissing(t *testing.T) {
	levels := []*fc.GroupingLevel{{FieldID: "nope"}}

	var buf bytes.Buffer
	res := engine4test(t, &buf).Evaluate(rows4test(), catalog4test(), nil, levels...)

	assert.Contains(t, res.Warnings, "grouping field nope not found, rows grouped as (Empty)")
	assert.Contains(t, buf.String(), "formcalc: grouping field nope not found")
	require.Len(t, res.Groups, 1)
	assert.Equal(t, fc.EmptyGroup, res.Groups[0].Value)
	assert.Len(t, res.Groups[0].Rows, 4)
}

func TestEngine_GroupOnCalculated(t *testing.T) {
	calcs := []*fc.CalculatedField{
		{ID: "band", Label: "Band", Formula: `IF("Score" >= 90, 'high', 'low')`, Format: fc.FMtext},
		{ID: "n", Label: "Band Count", Formula: `GROUP_COUNT("Name")`, Format: fc.FMinteger},
	}

	levels := []*fc.GroupingLevel{{FieldID: "band", SortDirection: "desc"}}

	var buf bytes.Buffer
	res := engine4test(t, &buf).Evaluate(rows4test(), catalog4test(calcs...), calcs, levels...)

	assert.Equal(t, []string{"low", "high", "high", "low"}, entries(res.Rows, "Band"))
	assert.Equal(t, []string{"2", "2", "2", "2"}, entries(res.Rows, "Band Count"))
	assert.Equal(t, "low", res.Groups[0].Value)

	// the band entry is set once, not appended twice
	n := 0
	for _, ent := range res.Rows[0].Data {
		if ent.FieldLabel == "Band" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestEngine_Cycle(t *testing.T) {
	calcs := []*fc.CalculatedField{
		{Label: "A", Formula: `"B" + 1`},
		{Label: "B", Formula: `"A" + 1`},
		{Label: "C", Formula: `"Sales" + 1`, Precision: 0},
	}

	var buf bytes.Buffer
	res := engine4test(t, &buf).Evaluate(rows4test(), catalog4test(calcs...), calcs)

	assert.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors["A"], "CircularReference")
	assert.Equal(t, []string{"101", "251", "421", "1"}, entries(res.Rows, "C"))
}

func TestEngine_Report(t *testing.T) {
	rep, e := fc.ParseReport([]byte(`
fields:
  - {id: region, label: Region}
  - {id: sales, label: Sales}
calculatedFields:
  - {id: t, label: Total, formula: 'SUM("Sales")', format: currency, precision: 0}
grouping:
  - {fieldId: region, sortDirection: desc}
`))
	require.Nil(t, e)

	var buf bytes.Buffer
	res := engine4test(t, &buf).Report(rep, rows4test())
	assert.Equal(t, []string{"$770", "$770", "$770", "$770"}, entries(res.Rows, "Total"))
	assert.Equal(t, "West", res.Groups[0].Value)
	assert.Len(t, res.Records, 6)
}

func TestEngine_Options(t *testing.T) {
	half := func(info bool, ctx *fc.Context, args ...fc.Node) *fc.FnReturn {
		if info {
			return &fc.FnReturn{Name: "HALF", Calc: fc.CTrowwise, MinArgs: 1, MaxArgs: 1}
		}

		v, e := ctx.Eval(args[0])
		if e != nil {
			return &fc.FnReturn{Err: e}
		}

		return &fc.FnReturn{Value: fc.NewFloat(v.AsFloat() / 2)}
	}

	en, e := NewEngine(EngineCurrency("£"), EngineFunctions(fc.Fns{"HALF": half}), EngineLogger(log.New(&bytes.Buffer{}, "", 0)))
	require.Nil(t, e)
	assert.NotNil(t, en.Functions().Get("half"))

	calcs := []*fc.CalculatedField{{Label: "H", Formula: `HALF("Sales")`, Format: fc.FMcurrency, Precision: 2}}
	res := en.Evaluate(rows4test(), catalog4test(calcs...), calcs)
	assert.Equal(t, "£50.00", entries(res.Rows, "H")[0])

	_, e = NewEngine(EngineLogger(nil))
	assert.NotNil(t, e)
}

func TestOrder(t *testing.T) {
	a := &fc.CalculatedField{Label: "A", Formula: `"B" + "C"`}
	b := &fc.CalculatedField{Label: "B", Formula: `"C" * 2`}
	c := &fc.CalculatedField{Label: "C", Formula: `"Sales"`}
	x := &fc.CalculatedField{Label: "X", Formula: `"Y"`}
	y := &fc.CalculatedField{Label: "Y", Formula: `"X"`}

	assert.Equal(t, []*fc.CalculatedField{c, b, a, y, x}, Order([]*fc.CalculatedField{a, x, b, y, c}))
}
