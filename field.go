package formcalc

import "strings"

// GridSeparator joins a grid field label and a column label, as in "Items → Qty".
const GridSeparator = " → "

// Field is the metadata of one form field. Grid fields list their sub-fields in Columns.
type Field struct {
	ID        string   `json:"id" yaml:"id"`
	Label     string   `json:"label" yaml:"label"`
	Type      string   `json:"type" yaml:"type"`
	GroupPath []string `json:"groupPath,omitempty" yaml:"groupPath,omitempty"`
	Columns   []*Field `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// IsGrid is true if the field holds rows of sub-fields.
func (f *Field) IsGrid() bool {
	return len(f.Columns) > 0 || strings.EqualFold(f.Type, "grid")
}

// CompositeLabel is the label a formula uses for column col of grid field f.
func (f *Field) CompositeLabel(col *Field) string {
	return f.Label + GridSeparator + col.Label
}

// Column returns the grid column with label, nil if there is none.
func (f *Field) Column(label string) *Field {
	for _, c := range f.Columns {
		if c.Label == label {
			return c
		}
	}

	return nil
}

// TrailingLabel returns the part of label after the last "→", trimmed.
func TrailingLabel(label string) string {
	if indx := strings.LastIndex(label, "→"); indx >= 0 {
		return TrimBlank(label[indx+len("→"):])
	}

	return TrimBlank(label)
}

// SplitComposite splits "Parent → Child" into its two labels. ok is false if label is not composite.
func SplitComposite(label string) (parent, child string, ok bool) {
	indx := strings.LastIndex(label, "→")
	if indx < 0 {
		return "", "", false
	}

	return TrimBlank(label[:indx]), TrimBlank(label[indx+len("→"):]), true
}
