package mem

import (
	"fmt"
	"log"
	"os"
	"time"

	fc "github.com/invertedv/formcalc"
)

// Engine evaluates the calculated fields of a report over a set of rows.
type Engine struct {
	logger    *log.Logger
	fns       fc.Fns
	formatter *fc.Formatter
}

// EngineOpt sets an option of *Engine.
type EngineOpt func(en *Engine) error

// EngineLogger sends warnings and degraded fields to l. The default is the standard logger.
func EngineLogger(l *log.Logger) EngineOpt {
	return func(en *Engine) error {
		if l == nil {
			return fmt.Errorf("nil logger")
		}

		en.logger = l

		return nil
	}
}

// EngineFunctions adds fns to the function library, replacing functions of the same name.
func EngineFunctions(fns fc.Fns) EngineOpt {
	return func(en *Engine) error {
		for _, fn := range fns {
			en.fns.Add(fn)
		}

		return nil
	}
}

// EngineCurrency sets the symbol of currency formats.
func EngineCurrency(symbol string) EngineOpt {
	return func(en *Engine) error {
		en.formatter = &fc.Formatter{Currency: symbol}
		return nil
	}
}

func NewEngine(opts ...EngineOpt) (*Engine, error) {
	en := &Engine{
		logger:    log.New(os.Stderr, "", log.LstdFlags),
		fns:       StandardFunctions(),
		formatter: &fc.Formatter{Currency: "$"},
	}

	for _, opt := range opts {
		if e := opt(en); e != nil {
			return nil, e
		}
	}

	return en, nil
}

// Functions returns the engine's function library.
func (en *Engine) Functions() fc.Fns {
	return en.fns
}

// Result is the output of an evaluation.
type Result struct {
	// Rows are copies of the input rows, each with one formatted entry per calculated field appended.
	Rows []*fc.Row `json:"rows"`

	// Values holds the unformatted value of each calculated field, by label, in row order.
	Values map[string][]*fc.Value `json:"-"`

	// Summary holds the value of each aggregate field and the total of each numeric base field.
	Summary *fc.Row `json:"summary"`

	// Groups and Records are set if the rows were grouped.
	Groups  []*fc.GroupNode       `json:"groups,omitempty"`
	Records []*fc.FlattenedRecord `json:"records,omitempty"`

	Warnings []string          `json:"warnings,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Report evaluates the calculated fields of rep over rows, grouped as rep says.
func (en *Engine) Report(rep *fc.Report, rows []*fc.Row) *Result {
	return en.Evaluate(rows, rep.Catalog(), rep.Calculated, rep.Grouping...)
}

// Evaluate computes every field in calcs for every row. If levels are given the rows are grouped
// first and GROUP_ functions see each row's leaf group.
// A field that fails is logged and takes its default for the rows where it failed; the other
// fields are not affected. The input rows are not modified.
func (en *Engine) Evaluate(rows []*fc.Row, cat *fc.Catalog, calcs []*fc.CalculatedField, levels ...*fc.GroupingLevel) *Result {
	res := &Result{
		Values: make(map[string][]*fc.Value),
		Errors: make(map[string]string),
	}

	for _, r := range rows {
		res.Rows = append(res.Rows, r.Copy())
	}

	ctx := fc.NewContext(cat, en.fns, res.Rows)
	ctx.SetLogger(en.logger)

	if len(levels) > 0 {
		// grouping may be on a calculated field, which then cannot depend on the groups
		en.keys(ctx, res, levels, cat)

		var warnings []string
		res.Groups, warnings = fc.Group(res.Rows, levels, cat)
		for _, w := range warnings {
			ctx.Warn(w)
		}

		ctx.SetGroups(fc.Leaves(res.Groups))
	}

	ordered := Order(calcs)
	for _, cf := range ordered {
		vals := make([]*fc.Value, len(res.Rows))
		for ind, r := range res.Rows {
			v, e := ctx.FieldValue(cf, r)
			if e != nil {
				en.fail(res, cf, r, e)
			}

			vals[ind] = v
		}

		res.Values[cf.Label] = vals
	}

	// appended in the order the fields were given
	for _, cf := range calcs {
		for ind, r := range res.Rows {
			setEntry(r, cf.Label, en.formatter.Format(res.Values[cf.Label][ind], cf.Format, cf.Precision))
		}
	}

	if len(levels) > 0 {
		// footers reduce the raw values of calculated fields, not their formatted entries
		res.Records = fc.Flatten(res.Groups, levels, cat, en.lookup(res))
		en.attach(res, calcs)
	}

	res.Summary = en.summary(res, cat, calcs)
	res.Warnings = ctx.Warnings()

	return res
}

// keys computes calculated fields used as grouping levels and sets them on the rows.
func (en *Engine) keys(ctx *fc.Context, res *Result, levels []*fc.GroupingLevel, cat *fc.Catalog) {
	for _, lvl := range levels {
		label, ok := cat.LabelByID(lvl.FieldID)
		if !ok {
			continue
		}

		cf := cat.Calculated(label)
		if cf == nil {
			continue
		}

		for _, r := range res.Rows {
			v, e := ctx.FieldValue(cf, r)
			if e != nil {
				en.fail(res, cf, r, e)
			}

			setEntry(r, cf.Label, en.formatter.Format(v, cf.Format, cf.Precision))
		}
	}
}

func (en *Engine) fail(res *Result, cf *fc.CalculatedField, r *fc.Row, e error) {
	if _, seen := res.Errors[cf.Label]; seen {
		return
	}

	res.Errors[cf.Label] = e.Error()
	en.logger.Printf("formcalc: field %s, submission %s: %v", cf.Label, r.SubmissionID, e)
}

func positions(rows []*fc.Row) map[*fc.Row]int {
	pos := make(map[*fc.Row]int, len(rows))
	for ind, r := range rows {
		pos[r] = ind
	}

	return pos
}

// lookup reads calculated fields from res.Values and everything else from the rows.
func (en *Engine) lookup(res *Result) fc.Lookup {
	pos := positions(res.Rows)

	return func(r *fc.Row, label string) *fc.Value {
		if vals, ok := res.Values[label]; ok {
			if ind, found := pos[r]; found {
				return vals[ind]
			}
		}

		return fc.RowLookup(r, label)
	}
}

// attach sets the calculated values of each data record.
func (en *Engine) attach(res *Result, calcs []*fc.CalculatedField) {
	pos := positions(res.Rows)

	for _, rec := range res.Records {
		if rec.Type != fc.FRdata {
			continue
		}

		rec.Calculated = make(map[string]*fc.Value, len(calcs))
		for _, cf := range calcs {
			rec.Calculated[cf.Label] = res.Values[cf.Label][pos[rec.Row]]
		}
	}
}

// summary builds the summary row: the value of each aggregate field that is not group-scoped and the
// sum of each base field whose non-blank values are all numbers.
func (en *Engine) summary(res *Result, cat *fc.Catalog, calcs []*fc.CalculatedField) *fc.Row {
	sum := fc.NewRow("summary", time.Time{})

	if cat != nil {
		for _, label := range cat.Labels() {
			if cat.Calculated(label) != nil {
				continue
			}

			col := fc.ColumnOf(res.Rows, label)
			if !allNumbers(col) {
				continue
			}

			sum.Append(&fc.Entry{FieldLabel: label, FieldValue: en.formatter.Format(fc.Aggregate(col, "sum"), fc.FMdecimal, -1)})
		}
	}

	// a group-scoped aggregate has one value per group, none for the dataset
	for _, cf := range calcs {
		if cf.CalcType != fc.CTaggregate || cf.Scope == fc.ScopeGroup || len(res.Rows) == 0 {
			continue
		}

		sum.Append(&fc.Entry{
			FieldLabel: cf.Label,
			FieldValue: en.formatter.Format(res.Values[cf.Label][0], cf.Format, cf.Precision),
			FieldType:  fc.CalculatedType,
		})
	}

	return sum
}

func allNumbers(col []string) bool {
	n := 0
	for _, v := range col {
		if fc.TrimBlank(v) == "" {
			continue
		}

		if _, ok := fc.StrictNumber(v); !ok {
			return false
		}

		n++
	}

	return n > 0
}

// setEntry sets the calculated entry label on r, replacing one already there.
func setEntry(r *fc.Row, label, value string) {
	if ent := r.Entry(label); ent != nil && ent.FieldType == fc.CalculatedType {
		ent.FieldValue = value
		return
	}

	r.Append(&fc.Entry{FieldLabel: label, FieldValue: value, FieldType: fc.CalculatedType})
}
