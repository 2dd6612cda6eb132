package formcalc

import (
	"regexp"
	"strconv"
	"strings"
)

// numberPrefix matches the leading number of a field value, so "12.5 kg" reads as 12.5.
var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber reads the leading number in s. ok is false if s does not start with a number.
func ParseNumber(s string) (f float64, ok bool) {
	s = TrimBlank(s)
	if s == "" {
		return 0, false
	}

	var m string
	if m = numberPrefix.FindString(s); m == "" {
		return 0, false
	}

	var e error
	if f, e = strconv.ParseFloat(m, 64); e != nil {
		return 0, false
	}

	return f, true
}

// StrictNumber is true only if all of s (ignoring surrounding blanks) is a number.
func StrictNumber(s string) (float64, bool) {
	s = TrimBlank(s)
	if s == "" {
		return 0, false
	}

	if numberPrefix.FindString(s) != s {
		return 0, false
	}

	f, e := strconv.ParseFloat(s, 64)
	if e != nil {
		return 0, false
	}

	return f, true
}

// ToNumber is ParseNumber with a default of 0.
func ToNumber(s string) float64 {
	f, _ := ParseNumber(s)
	return f
}

// Any2Float64 converts x to a number. nil is returned if x has no numeric reading.
func Any2Float64(x any) *float64 {
	var f float64
	switch v := x.(type) {
	case *Value:
		if v == nil || !v.IsNumeric() {
			return nil
		}
		f = v.AsFloat()
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		var ok bool
		if f, ok = StrictNumber(v); !ok {
			return nil
		}
	default:
		return nil
	}

	return &f
}

// TrimBlank trims spaces, tabs and line breaks.
func TrimBlank(s string) string {
	return strings.TrimSpace(s)
}
