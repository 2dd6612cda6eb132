package formcalc

import (
	"log"
	"strings"
)

// Context carries what a formula needs while it is evaluated: the row, the rows around it and the
// field being computed. Contexts derived from one another share a single evaluation pass, which holds
// the parsed programs and memoised columns. A pass is not safe for concurrent use; run independent
// evaluations on independent contexts.
type Context struct {
	*pass

	row   *Row
	field *CalculatedField
	call  *Call
}

type pass struct {
	cat *Catalog
	fns Fns

	rows     []*Row
	position map[*Row]int
	groups   map[*Row][]*Row

	programs map[string]*Program
	memo     map[MemoKey]any
	values   map[valueKey]*Value
	visiting map[valueKey]bool

	logger   *log.Logger
	warnings []string
	warned   map[string]bool
}

// MemoKey identifies a value memoised for one pass.
type MemoKey struct {
	node  Node
	field *CalculatedField
	first *Row
	n     int
	tag   string
}

type valueKey struct {
	row   *Row
	field *CalculatedField
}

// NewContext starts an evaluation pass over rows. The context is positioned at the first row.
func NewContext(cat *Catalog, fns Fns, rows []*Row) *Context {
	p := &pass{
		cat:      cat,
		fns:      fns,
		rows:     rows,
		position: make(map[*Row]int, len(rows)),
		programs: make(map[string]*Program),
		memo:     make(map[MemoKey]any),
		values:   make(map[valueKey]*Value),
		visiting: make(map[valueKey]bool),
		warned:   make(map[string]bool),
	}

	for ind, r := range rows {
		p.position[r] = ind
	}

	ctx := &Context{pass: p}
	if len(rows) > 0 {
		ctx.row = rows[0]
	}

	return ctx
}

// SetLogger sends the pass's warnings to l as well as to Warnings.
func (ctx *Context) SetLogger(l *log.Logger) {
	ctx.logger = l
}

// SetGroups assigns each row the rows of its leaf group. Rows not assigned fall back to
// GroupByField or to the whole dataset.
func (ctx *Context) SetGroups(leaves [][]*Row) {
	ctx.groups = make(map[*Row][]*Row)
	for _, leaf := range leaves {
		for _, r := range leaf {
			ctx.groups[r] = leaf
		}
	}

	// columns computed before grouping are stale
	ctx.memo = make(map[MemoKey]any)
	ctx.values = make(map[valueKey]*Value)
}

// At returns a context positioned at row.
func (ctx *Context) At(row *Row) *Context {
	c := *ctx
	c.row = row

	return &c
}

// WithField returns a context evaluating on behalf of cf.
func (ctx *Context) WithField(cf *CalculatedField) *Context {
	c := *ctx
	c.field, c.call = cf, nil

	return &c
}

func (ctx *Context) withCall(call *Call) *Context {
	c := *ctx
	c.call = call

	return &c
}

func (ctx *Context) Row() *Row { return ctx.row }

// Rows returns every row of the pass, in dataset order.
func (ctx *Context) Rows() []*Row { return ctx.rows }

func (ctx *Context) Field() *CalculatedField { return ctx.field }

func (ctx *Context) Catalog() *Catalog { return ctx.cat }

func (ctx *Context) Functions() Fns { return ctx.fns }

// Call is the function call being run, nil outside of a function.
func (ctx *Context) Call() *Call { return ctx.call }

// Warnings lists the distinct problems met so far in the pass.
func (ctx *Context) Warnings() []string { return ctx.warnings }

// Group returns the rows that share the current row's group: its leaf group if groups are set,
// else the rows with the same value of the field's GroupByField, else every row.
func (ctx *Context) Group() []*Row {
	if g, ok := ctx.groups[ctx.row]; ok {
		return g
	}

	if ctx.field != nil && TrimBlank(ctx.field.GroupByField) != "" && ctx.row != nil {
		return ctx.groupBy(ctx.field.GroupByField)
	}

	return ctx.rows
}

func (ctx *Context) groupBy(label string) []*Row {
	key := MemoKey{tag: "groupBy:" + label}

	byValue := ctx.Memo(key, func() any {
		m := make(map[string][]*Row)
		for _, r := range ctx.rows {
			v := ctx.At(r).lookupText(label)
			m[v] = append(m[v], r)
		}

		return m
	}).(map[string][]*Row)

	return byValue[ctx.lookupText(label)]
}

// Window returns the rows column-wise and aggregate functions run over: the group when the field is
// group-scoped, else every row. Order is the order of the dataset.
func (ctx *Context) Window() []*Row {
	if ctx.field != nil && ctx.field.Scope == ScopeGroup {
		return ctx.Group()
	}

	return ctx.rows
}

// Index returns the position of the current row in window, -1 if it is not there.
func (ctx *Context) Index(window []*Row) int {
	if len(window) == 0 {
		return -1
	}

	if len(window) == len(ctx.rows) && window[0] == ctx.rows[0] {
		if indx, ok := ctx.position[ctx.row]; ok {
			return indx
		}

		return -1
	}

	pos := ctx.Memo(MemoKey{first: window[0], n: len(window), tag: "position"}, func() any {
		m := make(map[*Row]int, len(window))
		for ind, r := range window {
			m[r] = ind
		}

		return m
	}).(map[*Row]int)

	if indx, ok := pos[ctx.row]; ok {
		return indx
	}

	return -1
}

// Memo returns the value stored under key, computing it with fn the first time.
func (ctx *Context) Memo(key MemoKey, fn func() any) any {
	if v, ok := ctx.memo[key]; ok {
		return v
	}

	v := fn()
	ctx.memo[key] = v

	return v
}

// Key builds the memo key for node over window. tag separates values computed from the same node.
func (ctx *Context) Key(node Node, window []*Row, tag string) MemoKey {
	key := MemoKey{node: node, field: ctx.field, n: len(window), tag: tag}
	if len(window) > 0 {
		key.first = window[0]
	}

	return key
}

// Column evaluates node at each row of window. The result is memoised for the pass.
func (ctx *Context) Column(node Node, window []*Row) ([]*Value, error) {
	type column struct {
		vals []*Value
		err  error
	}

	col := ctx.Memo(ctx.Key(node, window, "column"), func() any {
		out := make([]*Value, len(window))
		for ind, r := range window {
			v, e := ctx.At(r).Eval(node)
			if e != nil {
				return &column{err: e}
			}

			out[ind] = v
		}

		return &column{vals: out}
	}).(*column)

	return col.vals, col.err
}

// Numbers is Column with every value coerced to a number.
func (ctx *Context) Numbers(node Node, window []*Row) ([]float64, error) {
	vals, e := ctx.Column(node, window)
	if e != nil {
		return nil, e
	}

	out := make([]float64, len(vals))
	for ind, v := range vals {
		out[ind] = v.AsFloat()
	}

	return out, nil
}

// Program returns the parsed formula, parsing it once per pass.
func (ctx *Context) Program(formula string) (*Program, error) {
	if prog, ok := ctx.programs[formula]; ok {
		return prog, nil
	}

	prog, e := Parse(formula)
	if e != nil {
		return nil, e
	}

	ctx.programs[formula] = prog

	return prog, nil
}

// FieldValue evaluates calculated field cf at row, once per pass. A field that fails to evaluate
// takes its default and the failure is returned; a field that refers back to itself returns EKcycle.
func (ctx *Context) FieldValue(cf *CalculatedField, row *Row) (*Value, error) {
	key := valueKey{row: row, field: cf}
	if v, ok := ctx.values[key]; ok {
		return v, nil
	}

	if ctx.visiting[key] {
		return cf.Default(), newEvalError(EKcycle, -1, "%s refers to itself", cf.Label)
	}

	ctx.visiting[key] = true
	defer delete(ctx.visiting, key)

	v, e := ctx.At(row).WithField(cf).evaluateField(cf)
	if e != nil {
		v = cf.Default()
		if KindOf(e) == EKcycle {
			return v, e
		}
	}

	ctx.values[key] = v

	return v, e
}

func (ctx *Context) evaluateField(cf *CalculatedField) (*Value, error) {
	prog, e := ctx.Program(cf.Formula)
	if e != nil {
		return nil, e
	}

	return prog.Eval(ctx)
}

// lookup returns the value of a quoted reference at the current row.
func (ctx *Context) lookup(label string) (*Value, error) {
	if ctx.cat == nil {
		v, _ := ctx.row.Value(label)
		return NewString(v), nil
	}

	ref, e := ctx.cat.Resolve(label)
	if e != nil {
		ctx.Warn("field not found: " + label)
		return unresolvedValue(label), nil
	}

	switch ref.Kind {
	case RKgrid:
		return ctx.gridValue(ref)
	case RKcalculated:
		v, e := ctx.FieldValue(ref.Calc, ctx.row)
		if e != nil && KindOf(e) == EKcycle {
			return nil, e
		}

		return v, nil
	}

	v, _ := ctx.row.Value(label)

	return NewString(v), nil
}

func (ctx *Context) lookupText(label string) string {
	v, e := ctx.lookup(label)
	if e != nil || v.Unresolved() {
		return ""
	}

	return v.AsString()
}

// gridValue sums a column of numbers, or joins a column of text.
func (ctx *Context) gridValue(ref *FieldRef) (*Value, error) {
	if v, ok := ctx.row.Value(ref.Composite()); ok {
		return NewString(v), nil
	}

	payload, _ := ctx.row.Value(ref.Parent.Label)

	cells, e := GridColumn(payload, ref.Field.Label)
	if e != nil {
		ctx.Warn(e.Error())
		return NewString(""), nil
	}

	total := 0.0
	for _, c := range cells {
		f, ok := StrictNumber(c)
		if !ok {
			return NewString(strings.Join(cells, ", ")), nil
		}

		total += f
	}

	if len(cells) == 0 {
		return NewString(""), nil
	}

	return NewFloat(total), nil
}

// Warn records msg once per pass.
func (ctx *Context) Warn(msg string) {
	if ctx.warned[msg] {
		return
	}

	ctx.warned[msg] = true
	ctx.warnings = append(ctx.warnings, msg)

	if ctx.logger != nil {
		ctx.logger.Printf("formcalc: %s", msg)
	}
}
