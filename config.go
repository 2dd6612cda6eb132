package formcalc

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Report is the configuration of a report: the form fields it selects, its calculated fields and
// how its rows are grouped.
type Report struct {
	Name       string             `json:"name" yaml:"name"`
	Fields     []*Field           `json:"fields" yaml:"fields"`
	Calculated []*CalculatedField `json:"calculatedFields" yaml:"calculatedFields"`
	Grouping   []*GroupingLevel   `json:"grouping,omitempty" yaml:"grouping,omitempty"`
}

// ParseReport reads a report from YAML or JSON.
func ParseReport(data []byte) (*Report, error) {
	r := &Report{}
	if e := yaml.Unmarshal(data, r); e != nil {
		return nil, errors.WithMessage(e, "parse report")
	}

	for ind, cf := range r.Calculated {
		if cf == nil {
			return nil, errors.Errorf("calculated field %d is empty", ind)
		}

		if cf.Label == "" {
			return nil, errors.Errorf("calculated field %d has no label", ind)
		}

		if cf.CalcType == CTunknown {
			if spec := Functions.Get(cf.Function()); spec != nil {
				cf.CalcType = spec.Calc
			}
		}

		if cf.Format == "" {
			cf.Format = FMdecimal
		}
	}

	return r, nil
}

// Catalog builds the catalog of the report's fields and calculated fields.
func (r *Report) Catalog() *Catalog {
	return NewCatalog(r.Fields, r.Calculated...)
}

// Validate checks every calculated field. The result is keyed by label; only fields with errors
// or warnings appear.
func (r *Report) Validate() map[string]*ValidationResult {
	cat := r.Catalog()

	out := make(map[string]*ValidationResult)
	for _, cf := range r.Calculated {
		vr := Validate(cf.Formula, cf.FunctionType, cat)
		if len(vr.Errors) > 0 || len(vr.Warnings) > 0 {
			out[cf.Label] = vr
		}
	}

	return out
}
