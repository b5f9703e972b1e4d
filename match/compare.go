package match

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Code value ordering, fixed project-wide: when every value involved
// parses as a decimal number, comparison is numeric (so "0100" == "100"
// and "99" < "6000"); otherwise comparison is byte-wise lexicographic.
// Mixing the two per-value would make ranges non-transitive.

// Compare returns -1, 0 or 1 ordering a against b under the project
// ordering.
func Compare(a, b string) int {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA == nil && errB == nil {
		return da.Cmp(db)
	}
	return strings.Compare(a, b)
}

// InRange reports whether code lies within [start, end], both bounds
// inclusive. Numeric ordering applies only when the code and both
// bounds all parse as decimal numbers.
func InRange(code, start, end string) bool {
	dc, errC := decimal.NewFromString(code)
	ds, errS := decimal.NewFromString(start)
	de, errE := decimal.NewFromString(end)
	if errC == nil && errS == nil && errE == nil {
		return dc.Cmp(ds) >= 0 && dc.Cmp(de) <= 0
	}
	return strings.Compare(code, start) >= 0 && strings.Compare(code, end) <= 0
}
