package formcalc

import (
	"encoding/json"
	"math"
	"strconv"
)

// DataTypes are the types a formula value can take
type DataTypes uint8

// values of DataTypes
const (
	DTunknown DataTypes = 0 + iota
	DTfloat
	DTstring
)

func (dt DataTypes) String() string {
	switch dt {
	case DTfloat:
		return "DTfloat"
	case DTstring:
		return "DTstring"
	default:
		return "DTunknown"
	}
}

// Value is the result of evaluating a formula or one of its nodes.  It is either a number or a string.
// Field values arrive as strings; numeric meaning is recovered by AsFloat.
type Value struct {
	dt DataTypes

	f float64
	s string

	// unresolved is set for a quoted reference that matched no field. It reads as its own text.
	unresolved bool
}

// NewFloat returns a numeric Value. NaN and +/-Inf are stored as 0 so they never reach arithmetic.
func NewFloat(f float64) *Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}

	return &Value{dt: DTfloat, f: f}
}

func NewString(s string) *Value {
	return &Value{dt: DTstring, s: s}
}

// NewValue builds a Value from a float64, int or string. Other types give nil.
func NewValue(x any) *Value {
	switch v := x.(type) {
	case *Value:
		return v
	case float64:
		return NewFloat(v)
	case int:
		return NewFloat(float64(v))
	case string:
		return NewString(v)
	}

	return nil
}

func unresolvedValue(label string) *Value {
	return &Value{dt: DTstring, s: label, unresolved: true}
}

func (v *Value) DataType() DataTypes {
	if v == nil {
		return DTunknown
	}

	return v.dt
}

// AsFloat coerces v to a number. Strings that do not parse are 0, as is an unresolved reference.
func (v *Value) AsFloat() float64 {
	if v == nil || v.unresolved {
		return 0
	}

	if v.dt == DTfloat {
		return v.f
	}

	return ToNumber(v.s)
}

// AsString returns the text of v. Numbers print in their shortest form.
func (v *Value) AsString() string {
	if v == nil {
		return ""
	}

	if v.dt == DTfloat {
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	}

	return v.s
}

// IsNumeric is true if v is a number or a string that is entirely a number.
func (v *Value) IsNumeric() bool {
	if v == nil || v.unresolved {
		return false
	}

	if v.dt == DTfloat {
		return true
	}

	_, ok := StrictNumber(v.s)

	return ok
}

// IsEmpty is true for nil, and for blank strings.
func (v *Value) IsEmpty() bool {
	return v == nil || (v.dt == DTstring && TrimBlank(v.s) == "")
}

// Unresolved is true if v came from a field reference that the catalog could not resolve.
func (v *Value) Unresolved() bool {
	return v != nil && v.unresolved
}

// Truthy follows the condition rules of IF: numbers are true if non-zero, other strings if non-empty.
func (v *Value) Truthy() bool {
	if v == nil || v.unresolved {
		return false
	}

	if v.dt == DTfloat {
		return v.f != 0
	}

	if f, ok := StrictNumber(v.s); ok {
		return f != 0
	}

	return TrimBlank(v.s) != ""
}

// Any returns the underlying float64 or string.
func (v *Value) Any() any {
	if v == nil {
		return nil
	}

	if v.dt == DTfloat {
		return v.f
	}

	return v.s
}

func (v *Value) String() string {
	return v.AsString()
}

func (v *Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func bToV(b bool) *Value {
	if b {
		return NewFloat(1)
	}

	return NewFloat(0)
}
