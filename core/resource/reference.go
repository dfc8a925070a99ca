package resource

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Reference stems look like PREFIX + YY + MM, e.g. "SAL2410".
func referenceStem(prefix string, t time.Time) string {
	return fmt.Sprintf("%s%02d%02d", strings.ToUpper(prefix), t.Year()%100, int(t.Month()))
}

// SequentialReference returns the first PREFIX+YY+MM+NNN (NNN from 001) absent from existing.
// Only existing is consulted: uniqueness on the server is not guaranteed.
func SequentialReference(prefix string, t time.Time, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, ref := range existing {
		taken[ref] = struct{}{}
	}
	stem := referenceStem(prefix, t)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s%03d", stem, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// RandomReference returns PREFIX+YY+MM followed by a random suffix of 3 or 4 digits.
func RandomReference(prefix string, t time.Time, digits int, rnd *rand.Rand) string {
	if digits < 3 {
		digits = 3
	} else if digits > 4 {
		digits = 4
	}
	low := 1
	for i := 1; i < digits; i++ {
		low *= 10
	}
	var n int
	if rnd != nil {
		n = low + rnd.Intn(9*low)
	} else {
		n = low + rand.Intn(9*low)
	}
	return fmt.Sprintf("%s%d", referenceStem(prefix, t), n)
}

// NewReference proposes a Reference for res using its generator variant.
func NewReference(res Resource, t time.Time, existing []string) string {
	if res.Sequential {
		return SequentialReference(res.Prefix, t, existing)
	}
	return RandomReference(res.Prefix, t, 4, nil)
}
