package formcalc

import "time"

func testFields() []*Field {
	return []*Field{
		{ID: "f1", Label: "Name", Type: "text"},
		{ID: "f2", Label: "Score", Type: "number"},
		{ID: "f3", Label: "Sales", Type: "number"},
		{ID: "f4", Label: "Region", Type: "select"},
		{ID: "f5", Label: "Notes", Type: "text"},
		{ID: "f6", Label: "Items", Type: "grid", Columns: []*Field{
			{ID: "f6a", Label: "Qty", Type: "number"},
			{ID: "f6b", Label: "Product", Type: "text"},
		}},
	}
}

func testRows() []*Row {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	data := [][]string{
		{"Ann", "70", "100", "West", `[{"Qty": 2, "Product": "bolt"}, {"Qty": 3, "Product": "nut"}]`},
		{"Bob", "95", "250", "East", `[{"Qty": 1, "Product": "washer"}]`},
		{"Cy", "95", "420", "West", ``},
		{"Dee", "60", "", "", `[]`},
	}

	var rows []*Row
	for ind, d := range data {
		rows = append(rows, NewRow(string(rune('1'+ind)), at.Add(time.Duration(ind)*time.Hour),
			&Entry{FieldLabel: "Name", FieldValue: d[0]},
			&Entry{FieldLabel: "Score", FieldValue: d[1]},
			&Entry{FieldLabel: "Sales", FieldValue: d[2]},
			&Entry{FieldLabel: "Region", FieldValue: d[3]},
			&Entry{FieldLabel: "Items", FieldValue: d[4]},
		))
	}

	return rows
}

// testFns is a small function library: TWICE doubles its argument, BOOM fails and counts its calls.
func testFns(booms *int) Fns {
	fns := make(Fns)
	fns.Add(func(info bool, ctx *Context, args ...Node) *FnReturn {
		if info {
			return &FnReturn{Name: "TWICE", Calc: CTrowwise, MinArgs: 1, MaxArgs: 1}
		}

		v, e := ctx.Eval(args[0])
		if e != nil {
			return &FnReturn{Err: e}
		}

		return &FnReturn{Value: NewFloat(2 * v.AsFloat())}
	})

	fns.Add(func(info bool, ctx *Context, args ...Node) *FnReturn {
		if info {
			return &FnReturn{Name: "BOOM", Calc: CTrowwise, MaxArgs: -1}
		}

		*booms++

		return &FnReturn{Err: newEvalError(EKparse, -1, "boom")}
	})

	return fns
}

func testContext(booms *int, calcs ...*CalculatedField) *Context {
	return NewContext(NewCatalog(testFields(), calcs...), testFns(booms), testRows())
}
