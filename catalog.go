package formcalc

import "github.com/pkg/errors"

// RefKinds are the sources a quoted field reference can resolve to.
type RefKinds uint8

// values of RefKinds
const (
	RKnone RefKinds = 0 + iota
	RKbase
	RKgrid
	RKcalculated
)

func (rk RefKinds) String() string {
	switch rk {
	case RKbase:
		return "base"
	case RKgrid:
		return "grid"
	case RKcalculated:
		return "calculated"
	default:
		return "none"
	}
}

// FieldRef is a resolved field reference.
//   - RKbase: Field is the form field.
//   - RKgrid: Parent is the grid field, Field the column.
//   - RKcalculated: Calc is the calculated field.
type FieldRef struct {
	Kind   RefKinds
	Label  string
	Field  *Field
	Parent *Field
	Calc   *CalculatedField
}

// Composite returns the "Parent → Child" label of a grid reference, else the label.
func (fr *FieldRef) Composite() string {
	if fr.Kind == RKgrid {
		return fr.Parent.CompositeLabel(fr.Field)
	}

	return fr.Label
}

type gridColumn struct {
	parent *Field
	col    *Field
}

// Catalog resolves the labels used inside formulas. It is read-only once built.
type Catalog struct {
	base  []*Field
	grid  []gridColumn
	calcs []*CalculatedField

	byID map[string]*Field
}

// NewCatalog builds a Catalog from the selected form fields and the report's calculated fields.
func NewCatalog(fields []*Field, calcs ...*CalculatedField) *Catalog {
	c := &Catalog{byID: make(map[string]*Field)}

	for _, f := range fields {
		if f == nil {
			continue
		}

		c.base = append(c.base, f)
		c.byID[f.ID] = f

		for _, col := range f.Columns {
			c.grid = append(c.grid, gridColumn{parent: f, col: col})
			if col.ID != "" {
				c.byID[col.ID] = col
			}
		}
	}

	for _, cf := range calcs {
		if cf != nil {
			c.calcs = append(c.calcs, cf)
		}
	}

	return c
}

// Resolve looks label up: base fields first, then grid columns, then calculated fields.
// Matching is exact and case-sensitive. An unknown label returns ErrUnresolved.
func (c *Catalog) Resolve(label string) (*FieldRef, error) {
	if c == nil {
		return nil, errors.WithMessagef(ErrUnresolved, "%q", label)
	}

	for _, f := range c.base {
		if f.Label == label {
			return &FieldRef{Kind: RKbase, Label: label, Field: f}, nil
		}
	}

	for _, g := range c.grid {
		if g.parent.CompositeLabel(g.col) == label {
			return &FieldRef{Kind: RKgrid, Label: label, Field: g.col, Parent: g.parent}, nil
		}
	}

	trailing := TrailingLabel(label)
	for _, g := range c.grid {
		if g.col.Label == trailing {
			return &FieldRef{Kind: RKgrid, Label: label, Field: g.col, Parent: g.parent}, nil
		}
	}

	for _, cf := range c.calcs {
		if cf.Label == label {
			return &FieldRef{Kind: RKcalculated, Label: label, Calc: cf}, nil
		}
	}

	return nil, errors.WithMessagef(ErrUnresolved, "%q", label)
}

// Has is true if label resolves.
func (c *Catalog) Has(label string) bool {
	_, e := c.Resolve(label)
	return e == nil
}

// FieldByID returns the field (or grid column) with id, nil if none.
func (c *Catalog) FieldByID(id string) *Field {
	if c == nil {
		return nil
	}

	return c.byID[id]
}

// LabelByID returns the label of the field, grid column or calculated field with id.
func (c *Catalog) LabelByID(id string) (string, bool) {
	if c == nil {
		return "", false
	}

	if f := c.byID[id]; f != nil {
		for _, g := range c.grid {
			if g.col == f {
				return g.parent.CompositeLabel(f), true
			}
		}

		return f.Label, true
	}

	for _, cf := range c.calcs {
		if cf.ID == id {
			return cf.Label, true
		}
	}

	return "", false
}

// Calculated returns the calculated field with label, nil if none.
func (c *Catalog) Calculated(label string) *CalculatedField {
	if c == nil {
		return nil
	}

	for _, cf := range c.calcs {
		if cf.Label == label {
			return cf
		}
	}

	return nil
}

// CalculatedFields returns the calculated fields in the order they were given.
func (c *Catalog) CalculatedFields() []*CalculatedField {
	return c.calcs
}

// Labels lists every label that resolves: base, composite grid and calculated.
func (c *Catalog) Labels() []string {
	var labels []string
	for _, f := range c.base {
		labels = append(labels, f.Label)
	}

	for _, g := range c.grid {
		labels = append(labels, g.parent.CompositeLabel(g.col))
	}

	for _, cf := range c.calcs {
		labels = append(labels, cf.Label)
	}

	return labels
}
