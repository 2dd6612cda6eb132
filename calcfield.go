package formcalc

import (
	"fmt"
	"strings"
	"sync"
)

// CalcTypes are the families of calculated fields.
type CalcTypes uint8

// values of CalcTypes
const (
	CTunknown CalcTypes = 0 + iota
	CTaggregate
	CTrowwise
	CTcolumnwise
	CTgrouping
)

var calcTypeNames = []string{"unknown", "aggregate", "rowwise", "columnwise", "grouping"}

func (ct CalcTypes) String() string {
	if int(ct) < len(calcTypeNames) {
		return calcTypeNames[ct]
	}

	return calcTypeNames[0]
}

// CalcTypeFromString maps "aggregate", "rowwise", "columnwise" or "grouping" to its CalcTypes.
func CalcTypeFromString(s string) CalcTypes {
	s = strings.ToLower(strings.ReplaceAll(TrimBlank(s), "-", ""))
	for ind, nm := range calcTypeNames {
		if nm == s {
			return CalcTypes(ind)
		}
	}

	return CTunknown
}

func (ct CalcTypes) MarshalText() ([]byte, error) {
	return []byte(ct.String()), nil
}

func (ct *CalcTypes) UnmarshalText(text []byte) error {
	if *ct = CalcTypeFromString(string(text)); *ct == CTunknown {
		return fmt.Errorf("unknown calculation type %s", text)
	}

	return nil
}

// Scopes say whether a calculated field is evaluated against the whole group or a single row.
type Scopes uint8

// values of Scopes
const (
	ScopeRow Scopes = 0 + iota
	ScopeGroup
)

func (s Scopes) String() string {
	if s == ScopeGroup {
		return "group"
	}

	return "row"
}

func (s Scopes) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scopes) UnmarshalText(text []byte) error {
	switch strings.ToLower(TrimBlank(string(text))) {
	case "", "row":
		*s = ScopeRow
	case "group":
		*s = ScopeGroup
	default:
		return fmt.Errorf("unknown scope %s", text)
	}

	return nil
}

// CalculatedField is a report column computed from Formula.
type CalculatedField struct {
	ID           string    `json:"id" yaml:"id"`
	Label        string    `json:"label" yaml:"label"`
	CalcType     CalcTypes `json:"calculationType" yaml:"calculationType"`
	FunctionType string    `json:"functionType" yaml:"functionType"`
	Formula      string    `json:"formula" yaml:"formula"`
	Format       Formats   `json:"format" yaml:"format"`
	Precision    int       `json:"precision" yaml:"precision"`
	GroupByField string    `json:"groupByField,omitempty" yaml:"groupByField,omitempty"`
	SortOrder    string    `json:"sortOrder,omitempty" yaml:"sortOrder,omitempty"`
	WindowSize   int       `json:"windowSize,omitempty" yaml:"windowSize,omitempty"`
	Scope        Scopes    `json:"scope" yaml:"scope"`

	mu         sync.Mutex
	sources    []string
	sourcesFor string
}

// SetFormula replaces the formula. SourceFields follows on its next call.
func (cf *CalculatedField) SetFormula(formula string) {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	cf.Formula = formula
	cf.sources, cf.sourcesFor = nil, ""
}

// SourceFields lists the distinct quoted field references in Formula, in order of appearance.
// The list is cached against the formula text it was built from.
func (cf *CalculatedField) SourceFields() []string {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	if cf.sources != nil && cf.sourcesFor == cf.Formula {
		return cf.sources
	}

	cf.sources, cf.sourcesFor = QuotedReferences(cf.Formula), cf.Formula
	if cf.sources == nil {
		cf.sources = []string{}
	}

	return cf.sources
}

// Function returns the upper-case function name the field uses: FunctionType if set,
// else the name of the outer call in Formula.
func (cf *CalculatedField) Function() string {
	if ft := strings.ToUpper(TrimBlank(cf.FunctionType)); ft != "" {
		return ft
	}

	if prog, e := Parse(cf.Formula); e == nil {
		if call, ok := prog.Root.(*Call); ok {
			return call.Name
		}
	}

	return ""
}

// Default is the value shown when the field cannot be evaluated.
func (cf *CalculatedField) Default() *Value {
	if cf.Format == FMtext {
		return NewString("")
	}

	return NewFloat(0)
}

// QuotedReferences returns the distinct double-quoted labels in formula, skipping single-quoted text.
func QuotedReferences(formula string) []string {
	var refs []string
	for _, r := range quotedSpans(formula) {
		if !has(r.text, refs) {
			refs = append(refs, r.text)
		}
	}

	return refs
}

type span struct {
	text string
	pos  int
}

// quotedSpans returns each double-quoted reference in formula with its position. An unterminated
// quote runs to the end of formula.
func quotedSpans(formula string) []span {
	var (
		out      []span
		inSingle bool
		start    = -1
	)

	for ind := 0; ind < len(formula); ind++ {
		switch ch := formula[ind]; {
		case ch == '\'' && start < 0:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			if start < 0 {
				start = ind
				continue
			}

			out = append(out, span{text: formula[start+1 : ind], pos: start})
			start = -1
		}
	}

	if start >= 0 {
		out = append(out, span{text: formula[start+1:], pos: start})
	}

	return out
}
