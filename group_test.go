package formcalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func groupRows() []*Row {
	data := [][]string{
		// Region, Team, Amount
		{"West", "b", "10"},
		{"East", "a", "5"},
		{"West", "a", "20"},
		{"", "a", "7"},
		{"West", "b", "30"},
		{"10", "c", "1"},
		{"2", "c", "2"},
	}

	var rows []*Row
	for ind, d := range data {
		rows = append(rows, NewRow(string(rune('a'+ind)), time.Time{},
			&Entry{FieldLabel: "Region", FieldValue: d[0]},
			&Entry{FieldLabel: "Team", FieldValue: d[1]},
			&Entry{FieldLabel: "Amount", FieldValue: d[2]},
		))
	}

	return rows
}

func groupCatalog() *Catalog {
	return NewCatalog([]*Field{
		{ID: "r", Label: "Region"},
		{ID: "t", Label: "Team"},
		{ID: "a", Label: "Amount"},
	})
}

func values(nodes []*GroupNode) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Value)
	}

	return out
}

func TestGroup(t *testing.T) {
	rows := groupRows()
	levels := []*GroupingLevel{{FieldID: "r", SortDirection: "asc"}, {FieldID: "t", SortDirection: "desc"}}

	nodes, warnings := Group(rows, levels, groupCatalog())
	assert.Empty(t, warnings)

	// text order, even for numbers
	assert.Equal(t, []string{"(Empty)", "10", "2", "East", "West"}, values(nodes))

	west := nodes[4]
	assert.False(t, west.IsLeaf())
	assert.Equal(t, "Region", west.FieldLabel)
	assert.Equal(t, []string{"b", "a"}, values(west.SubGroups))

	wb := west.SubGroups[0]
	assert.True(t, wb.IsLeaf())
	assert.Equal(t, 1, wb.Level)
	assert.Equal(t, []*Row{rows[0], rows[4]}, wb.Rows)

	n := 0
	for _, leaf := range Leaves(nodes) {
		n += len(leaf)
	}
	assert.Equal(t, len(rows), n)
}

func TestGroup_UnknownField(t *testing.T) {
	rows := groupRows()
	nodes, warnings := Group(rows, []*GroupingLevel{{FieldID: "nope"}, {FieldID: "t"}}, groupCatalog())
	assert.Equal(t, []string{"grouping field nope not found, rows grouped as (Empty)"}, warnings)
	assert.Len(t, nodes, 1)
	assert.Equal(t, "nope", nodes[0].FieldLabel)
	assert.Equal(t, []string{"a", "b", "c"}, values(nodes[0].SubGroups))
	assert.Equal(t, EmptyGroup, nodes[0].Value)
	assert.Equal(t, rows, nodes[0].Rows)
}

func TestFlatten(t *testing.T) {
	rows := groupRows()
	levels := []*GroupingLevel{
		{FieldID: "r", ShowSubtotals: true, Aggregations: []*Aggregation{
			{FieldID: "a", Function: "sum"},
			{FieldID: "a", Function: "count", Label: "n"},
		}},
		{FieldID: "t", ShowSubtotals: true},
	}

	cat := groupCatalog()
	nodes, _ := Group(rows, levels, cat)
	recs := Flatten(nodes, levels, cat, nil)

	var headers, data, footers int
	for _, r := range recs {
		switch r.Type {
		case FRheader:
			headers++
		case FRdata:
			data++
			assert.Equal(t, 2, r.Level)
			assert.Contains(t, r.GroupContext, r.Row)
		case FRfooter:
			footers++
		}
	}

	// 5 regions, 6 region/team paths; only the first level has aggregations
	assert.Equal(t, 11, headers)
	assert.Equal(t, len(rows), data)
	assert.Equal(t, 5, footers)

	last := recs[len(recs)-1]
	assert.Equal(t, FRfooter, last.Type)
	assert.Equal(t, "West", last.Value)
	assert.Equal(t, map[string]float64{"sum(Amount)": 60, "n": 3}, last.Aggregations)

	assert.Equal(t, FRheader, recs[0].Type)
	assert.Equal(t, EmptyGroup, recs[0].Value)
}

func TestFlatten_Lookup(t *testing.T) {
	rows := groupRows()
	levels := []*GroupingLevel{{FieldID: "r", ShowSubtotals: true, Aggregations: []*Aggregation{
		{FieldID: "a", Function: "sum"},
		{FieldID: "a", Function: "max", Label: "top"},
	}}}

	// footers see the values lookup gives, here ten times the entry
	lookup := func(r *Row, label string) *Value {
		return NewFloat(10 * RowLookup(r, label).AsFloat())
	}

	cat := groupCatalog()
	nodes, _ := Group(rows, levels, cat)
	recs := Flatten(nodes, levels, cat, lookup)

	last := recs[len(recs)-1]
	assert.Equal(t, "West", last.Value)
	assert.Equal(t, map[string]float64{"sum(Amount)": 600, "top": 300}, last.Aggregations)
}

func TestAggregateValues(t *testing.T) {
	vals := []*Value{NewFloat(1500), NewString("$1,000.00"), NewString(""), NewFloat(2500)}

	assert.Equal(t, 4000.0, AggregateValues(vals, "sum"))
	assert.Equal(t, 3.0, AggregateValues(vals, "count"))
	assert.Equal(t, 3.0, AggregateValues(vals, "count_distinct"))
	assert.Equal(t, 2500.0, AggregateValues(vals, "max"))
}

func TestAggregate(t *testing.T) {
	vals := []string{"10", "", "20", "x", "30", "20"}

	x := [][]any{
		{"sum", 80.0},
		{"avg", 80.0 / 6},
		{"min", 0.0},
		{"max", 30.0},
		{"count", 5.0},
		{"count_distinct", 4.0},
		{"median", 0.0},
	}

	for ind := 0; ind < len(x); ind++ {
		assert.InDelta(t, x[ind][1], Aggregate(vals, x[ind][0].(string)), 1e-9, x[ind][0])
	}

	assert.Equal(t, 0.0, Aggregate(nil, "max"))
}
