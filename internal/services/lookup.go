package services

import (
	"sort"
	"strings"

	"github.com/tbourn/vendorbot/internal/domain"
)

// fold matches the name_key the repo filters on.
func fold(s string) string {
	return domain.NameKey(s)
}

// pickByFragment chooses one candidate deterministically for a name fragment:
// an exact case-insensitive match wins (lowest id among exact matches),
// otherwise the candidate with the smallest folded name, then lowest id.
// Candidates whose folded name does not contain the folded fragment are ignored.
func pickByFragment[T any](cands []T, fragment string, name func(T) string, id func(T) uint) (T, bool) {
	var zero T
	want := fold(fragment)
	if want == "" {
		return zero, false
	}

	matches := make([]T, 0, len(cands))
	for _, c := range cands {
		if strings.Contains(fold(name(c)), want) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return zero, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ei, ej := fold(name(matches[i])) == want, fold(name(matches[j])) == want
		if ei != ej {
			return ei
		}
		ni, nj := fold(name(matches[i])), fold(name(matches[j]))
		if ni != nj {
			return ni < nj
		}
		return id(matches[i]) < id(matches[j])
	})
	return matches[0], true
}
