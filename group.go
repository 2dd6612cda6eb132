package formcalc

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EmptyGroup is the value of the group holding rows with a blank or missing grouping value.
const EmptyGroup = "(Empty)"

// Aggregation is a footer value computed over the rows of a group.
type Aggregation struct {
	FieldID  string `json:"fieldId" yaml:"fieldId"`
	Function string `json:"function" yaml:"function"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Key is the name of the aggregation in a footer: Label if set, else "function(field)".
func (a *Aggregation) Key(fieldLabel string) string {
	if a.Label != "" {
		return a.Label
	}

	return fmt.Sprintf("%s(%s)", strings.ToLower(a.Function), fieldLabel)
}

// GroupingLevel is one level of a grouping hierarchy. The first level is the outermost.
type GroupingLevel struct {
	FieldID       string         `json:"fieldId" yaml:"fieldId"`
	SortDirection string         `json:"sortDirection" yaml:"sortDirection"`
	ShowSubtotals bool           `json:"showSubtotals" yaml:"showSubtotals"`
	Aggregations  []*Aggregation `json:"aggregations,omitempty" yaml:"aggregations,omitempty"`
}

// GroupNode is a group of rows sharing Value at Level. Leaves have no SubGroups.
type GroupNode struct {
	FieldLabel string       `json:"fieldLabel"`
	Value      string       `json:"value"`
	Level      int          `json:"level"`
	Rows       []*Row       `json:"-"`
	SubGroups  []*GroupNode `json:"subGroups,omitempty"`
}

// IsLeaf is true if the node holds rows rather than sub-groups.
func (gn *GroupNode) IsLeaf() bool {
	return gn.SubGroups == nil
}

// Group partitions rows level by level. Within a level, group values are sorted as text, never as
// numbers, so "10" comes before "2". Rows keep their order inside each group. A level whose field
// is not in cat puts every row in one EmptyGroup and adds a warning.
func Group(rows []*Row, levels []*GroupingLevel, cat *Catalog) (nodes []*GroupNode, warnings []string) {
	if len(levels) == 0 {
		return nil, nil
	}

	labels := make([]string, len(levels))
	for ind, lvl := range levels {
		label, ok := cat.LabelByID(lvl.FieldID)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("grouping field %s not found, rows grouped as %s", lvl.FieldID, EmptyGroup))
			continue
		}

		labels[ind] = label
	}

	return group(rows, levels, labels, 0, collate.New(language.Und)), warnings
}

// group builds the nodes of level. labels holds the field label of each level, "" if it is missing.
func group(rows []*Row, levels []*GroupingLevel, labels []string, level int, cl *collate.Collator) []*GroupNode {
	lvl := levels[level]
	label := labels[level]
	ok := label != ""

	var (
		keys    []string
		buckets = make(map[string][]*Row)
	)

	for _, r := range rows {
		key := EmptyGroup
		if ok {
			if v, found := r.Value(label); found && TrimBlank(v) != "" {
				key = v
			}
		}

		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}

		buckets[key] = append(buckets[key], r)
	}

	desc := Descending(lvl.SortDirection)
	sort.SliceStable(keys, func(i, j int) bool {
		c := cl.CompareString(keys[i], keys[j])
		if desc {
			return c > 0
		}

		return c < 0
	})

	nodes := make([]*GroupNode, 0, len(keys))
	for _, key := range keys {
		node := &GroupNode{FieldLabel: label, Value: key, Level: level, Rows: buckets[key]}
		if !ok {
			node.FieldLabel = lvl.FieldID
		}

		if level+1 < len(levels) {
			node.SubGroups = group(node.Rows, levels, labels, level+1, cl)
		}

		nodes = append(nodes, node)
	}

	return nodes
}

// Leaves returns the rows of each leaf group, in tree order.
func Leaves(nodes []*GroupNode) [][]*Row {
	var out [][]*Row
	for _, n := range nodes {
		if n.IsLeaf() {
			out = append(out, n.Rows)
			continue
		}

		out = append(out, Leaves(n.SubGroups)...)
	}

	return out
}

// RecordTypes tag the records produced by Flatten.
type RecordTypes uint8

// values of RecordTypes
const (
	FRheader RecordTypes = 0 + iota
	FRdata
	FRfooter
)

func (rt RecordTypes) String() string {
	return [...]string{"group-header", "data-row", "group-footer"}[rt]
}

func (rt RecordTypes) MarshalText() ([]byte, error) {
	return []byte(rt.String()), nil
}

// FlattenedRecord is one line of a grouped report.
type FlattenedRecord struct {
	Type  RecordTypes `json:"type"`
	Level int         `json:"level"`

	// header and footer
	FieldLabel   string             `json:"fieldLabel,omitempty"`
	Value        string             `json:"value,omitempty"`
	Count        int                `json:"count,omitempty"`
	Aggregations map[string]float64 `json:"aggregations,omitempty"`

	// data row
	Row          *Row              `json:"row,omitempty"`
	GroupContext []*Row            `json:"-"`
	Calculated   map[string]*Value `json:"calculated,omitempty"`
}

// Lookup returns the value of label at r.
type Lookup func(r *Row, label string) *Value

// RowLookup reads label from the entries of r.
func RowLookup(r *Row, label string) *Value {
	v, _ := r.Value(label)
	return NewString(v)
}

// Flatten walks the tree depth first: a header for each group, then its sub-groups or its rows, then
// a footer if the level shows subtotals and has aggregations. Footers read values through lookup,
// RowLookup if it is nil.
func Flatten(nodes []*GroupNode, levels []*GroupingLevel, cat *Catalog, lookup Lookup) []*FlattenedRecord {
	if lookup == nil {
		lookup = RowLookup
	}

	var out []*FlattenedRecord
	for _, n := range nodes {
		out = append(out, &FlattenedRecord{Type: FRheader, Level: n.Level, FieldLabel: n.FieldLabel, Value: n.Value, Count: len(n.Rows)})

		if n.IsLeaf() {
			for _, r := range n.Rows {
				out = append(out, &FlattenedRecord{Type: FRdata, Level: n.Level + 1, Row: r, GroupContext: n.Rows})
			}
		} else {
			out = append(out, Flatten(n.SubGroups, levels, cat, lookup)...)
		}

		if n.Level >= len(levels) {
			continue
		}

		if lvl := levels[n.Level]; lvl.ShowSubtotals && len(lvl.Aggregations) > 0 {
			out = append(out, &FlattenedRecord{
				Type:         FRfooter,
				Level:        n.Level,
				FieldLabel:   n.FieldLabel,
				Value:        n.Value,
				Count:        len(n.Rows),
				Aggregations: aggregations(n.Rows, lvl.Aggregations, cat, lookup),
			})
		}
	}

	return out
}

func aggregations(rows []*Row, aggs []*Aggregation, cat *Catalog, lookup Lookup) map[string]float64 {
	out := make(map[string]float64, len(aggs))
	for _, a := range aggs {
		label, ok := cat.LabelByID(a.FieldID)
		if !ok {
			label = a.FieldID
		}

		vals := make([]*Value, len(rows))
		for ind, r := range rows {
			vals[ind] = lookup(r, label)
		}

		out[a.Key(label)] = AggregateValues(vals, a.Function)
	}

	return out
}

// ColumnOf returns the value of label in each row. Missing values are "".
func ColumnOf(rows []*Row, label string) []string {
	out := make([]string, len(rows))
	for ind, r := range rows {
		out[ind], _ = r.Value(label)
	}

	return out
}

// Aggregate reduces values with function. See AggregateValues.
func Aggregate(values []string, function string) float64 {
	vals := make([]*Value, len(values))
	for ind, v := range values {
		vals[ind] = NewString(v)
	}

	return AggregateValues(vals, function)
}

// AggregateValues reduces vals with function: sum, avg, count, min, max or count_distinct.
// count and count_distinct skip blanks; the others read each value as a number, 0 if it is not one.
// An unknown function or an empty column gives 0.
func AggregateValues(vals []*Value, function string) float64 {
	switch strings.ToLower(TrimBlank(function)) {
	case "count":
		n := 0
		for _, v := range vals {
			if !v.IsEmpty() && !v.Unresolved() {
				n++
			}
		}

		return float64(n)
	case "count_distinct":
		seen := make(map[string]bool)
		for _, v := range vals {
			if !v.IsEmpty() && !v.Unresolved() {
				seen[v.AsString()] = true
			}
		}

		return float64(len(seen))
	}

	if len(vals) == 0 {
		return 0
	}

	x := make([]float64, len(vals))
	for ind, v := range vals {
		x[ind] = v.AsFloat()
	}

	switch strings.ToLower(TrimBlank(function)) {
	case "sum":
		return floats.Sum(x)
	case "avg", "average", "mean":
		return stat.Mean(x, nil)
	case "min":
		return floats.Min(x)
	case "max":
		return floats.Max(x)
	}

	return 0
}
