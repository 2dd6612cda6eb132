package mem

import (
	fc "github.com/invertedv/formcalc"
)

// Order sorts calcs so that a field comes after the calculated fields it refers to. Fields caught
// in a cycle keep their relative order and go last; evaluating them reports the cycle.
func Order(calcs []*fc.CalculatedField) []*fc.CalculatedField {
	byLabel := make(map[string]*fc.CalculatedField, len(calcs))
	for _, cf := range calcs {
		byLabel[cf.Label] = cf
	}

	const (
		unvisited = iota
		visiting
		done
	)

	var (
		out    []*fc.CalculatedField
		cyclic []*fc.CalculatedField
		state  = make(map[*fc.CalculatedField]int)
	)

	var visit func(cf *fc.CalculatedField) bool
	visit = func(cf *fc.CalculatedField) bool {
		switch state[cf] {
		case done:
			return true
		case visiting:
			return false
		}

		state[cf] = visiting
		ok := true
		for _, src := range cf.SourceFields() {
			if dep, found := byLabel[src]; found && dep != cf {
				ok = visit(dep) && ok
			} else if found {
				ok = false
			}
		}

		state[cf] = done
		if ok {
			out = append(out, cf)
		} else {
			cyclic = append(cyclic, cf)
		}

		return ok
	}

	for _, cf := range calcs {
		visit(cf)
	}

	return append(out, cyclic...)
}
