package formcalc

import (
	"fmt"
	"strings"
)

// ValidationResult reports what is wrong with a formula. Warnings never make it invalid.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// disallowed are operator sequences a formula may not contain.
var disallowed = []string{"===", "++", "--", "**"}

// Validate checks formula before it is saved. The checks run in order:
//
//   - the formula is not empty
//   - parentheses outside of quotes balance
//   - every quoted reference resolves in cat (warnings)
//   - no disallowed operator sequence
//   - a formula of functionType has at least as many field references as the function needs.
//
// If all of these pass, the formula must also parse.
func Validate(formula, functionType string, cat *Catalog) *ValidationResult {
	vr := &ValidationResult{Errors: []string{}, Warnings: []string{}}

	if TrimBlank(formula) == "" {
		vr.Errors = append(vr.Errors, "Formula cannot be empty")
		return vr
	}

	if msg := checkParens(formula); msg != "" {
		vr.Errors = append(vr.Errors, msg)
	}

	refs := QuotedReferences(formula)
	for _, ref := range refs {
		if isDirection(ref) {
			continue
		}

		if !cat.Has(ref) {
			vr.Warnings = append(vr.Warnings, fmt.Sprintf("Field not found: %s", ref))
		}
	}

	unquoted := stripQuoted(formula)
	for _, op := range disallowed {
		if strings.Contains(unquoted, op) {
			vr.Errors = append(vr.Errors, fmt.Sprintf("Invalid operator sequence: %s", op))
		}
	}

	if spec := Functions.Get(functionType); spec != nil {
		fields := 0
		for _, ref := range refs {
			if !isDirection(ref) {
				fields++
			}
		}

		if fields < spec.MinFields {
			vr.Errors = append(vr.Errors,
				fmt.Sprintf("%s requires at least %d field(s), found %d", spec.Name, spec.MinFields, fields))
		}
	}

	if len(vr.Errors) == 0 {
		if _, e := Parse(formula); e != nil {
			vr.Errors = append(vr.Errors, e.Error())
		}
	}

	vr.IsValid = len(vr.Errors) == 0

	return vr
}

// checkParens returns an error message if the parentheses of formula do not balance.
// Parentheses inside quotes are ignored.
func checkParens(formula string) string {
	var (
		depth int
		quote byte
	)

	for ind := 0; ind < len(formula); ind++ {
		ch := formula[ind]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(':
			depth++
		case ch == ')':
			if depth--; depth < 0 {
				return fmt.Sprintf("Unmatched closing parenthesis at position %d", ind)
			}
		}
	}

	if depth > 0 {
		return "Unmatched opening parenthesis"
	}

	return ""
}

// stripQuoted returns formula with quoted text blanked, so operators inside labels are not seen.
func stripQuoted(formula string) string {
	out := []byte(formula)

	var quote byte
	for ind := 0; ind < len(out); ind++ {
		ch := out[ind]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				out[ind] = ' '
			}
		case ch == '"' || ch == '\'':
			quote = ch
		}
	}

	return string(out)
}
