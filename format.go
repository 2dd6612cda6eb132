package formcalc

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Formats are the display formats of a calculated field.
type Formats string

// values of Formats
const (
	FMdecimal    Formats = "decimal"
	FMcurrency   Formats = "currency"
	FMpercentage Formats = "percentage"
	FMinteger    Formats = "integer"
	FMtext       Formats = "text"
)

func (f *Formats) UnmarshalText(text []byte) error {
	switch fm := Formats(strings.ToLower(TrimBlank(string(text)))); fm {
	case "":
		*f = FMdecimal
	case FMdecimal, FMcurrency, FMpercentage, FMinteger, FMtext:
		*f = fm
	case "number":
		*f = FMdecimal
	case "percent":
		*f = FMpercentage
	default:
		return fmt.Errorf("unknown format %s", text)
	}

	return nil
}

const (
	// DefaultPrecision is used when a negative precision is asked for.
	DefaultPrecision = 2

	// MaxPrecision is the most digits after the point a float64 can carry. Larger precisions are cut to it.
	MaxPrecision = 15
)

// Formatter renders values for display.
type Formatter struct {
	Currency string // currency symbol
}

var defaultFormatter = &Formatter{Currency: "$"}

// Format renders x with the default formatter. See Formatter.Format.
func Format(x any, format Formats, precision int) string {
	return defaultFormatter.Format(x, format, precision)
}

// Format renders x, a *Value, number or string, in format:
//
//	decimal    12.50
//	currency   $1,234.50
//	percentage 12.50%  (x is already a percentage)
//	integer    1,235
//	text       as is.
//
// A string already in a format is read back first, so formatting twice gives the same result.
// A value that is not a number is returned unchanged.
func (fm *Formatter) Format(x any, format Formats, precision int) string {
	var raw string
	switch v := x.(type) {
	case *Value:
		raw = v.AsString()
	case string:
		raw = v
	case nil:
		raw = ""
	default:
		raw = fmt.Sprint(v)
	}

	if format == FMtext {
		return raw
	}

	f, ok := fm.number(raw)
	if !ok {
		return raw
	}

	if precision < 0 {
		precision = DefaultPrecision
	}

	precision = min(precision, MaxPrecision)

	d := decimal.NewFromFloat(f)
	switch format {
	case FMcurrency:
		return fm.currency(d, int32(precision))
	case FMpercentage:
		return d.StringFixed(int32(precision)) + "%"
	case FMinteger:
		return humanize.BigComma(d.Round(0).BigInt())
	}

	return d.StringFixed(int32(precision))
}

// number reads s, ignoring the currency symbol, grouping commas, a percent sign and blanks.
func (fm *Formatter) number(s string) (float64, bool) {
	if fm.Currency != "" {
		s = strings.ReplaceAll(s, fm.Currency, "")
	}

	s = strings.NewReplacer(",", "", "%", "", " ", "").Replace(s)

	return StrictNumber(s)
}

func (fm *Formatter) currency(d decimal.Decimal, precision int32) string {
	sign := ""
	if d = d.Round(precision); d.IsNegative() {
		sign, d = "-", d.Abs()
	}

	out := sign + fm.Currency + humanize.BigComma(d.BigInt())
	if precision > 0 {
		fixed := d.StringFixed(precision)
		out += fixed[strings.IndexByte(fixed, '.'):]
	}

	return out
}
