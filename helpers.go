package formcalc

import "strings"

func has[C comparable](needle C, haystack []C) bool {
	return position(needle, haystack) >= 0
}

func position[C comparable](needle C, haystack []C) int {
	for ind, straw := range haystack {
		if needle == straw {
			return ind
		}
	}

	return -1
}

// isDirection is true for the sort keywords ASC and DESC, in any case.
func isDirection(s string) bool {
	s = strings.ToUpper(TrimBlank(s))
	return s == "ASC" || s == "DESC"
}

// Descending is true if direction is "desc" in any case.
func Descending(direction string) bool {
	return strings.EqualFold(TrimBlank(direction), "desc")
}
