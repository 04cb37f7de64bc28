package cart

import (
	"strings"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

// Combination is the canonical identity of a set of option values: ids
// deduped, sorted and joined. The zero value means "no options" and never
// collides with a non-empty selection.
type Combination string

const NoOptions Combination = ""

func NewCombination(optionIDs []string) Combination {
	return Combination(strings.Join(catalog.NormalizeOptionIDs(optionIDs), ","))
}

// SameCombination reports whether a and b select the same option values,
// regardless of order or duplicates.
func SameCombination(a, b []string) bool {
	return NewCombination(a) == NewCombination(b)
}

// IDs returns the canonical option ids of c.
func (c Combination) IDs() []string {
	if c == NoOptions {
		return []string{}
	}
	return strings.Split(string(c), ",")
}
