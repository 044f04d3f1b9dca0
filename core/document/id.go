package document

import (
	"fmt"
	"strconv"
	"strings"
)

// ToInt64 coerces an id-like value to an integer. JSON numbers arrive as
// float64; ids stored by hand in a fixture file may be strings.
func ToInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		if val == float64(int64(val)) {
			return int64(val), true
		}
		return 0, false
	case float32:
		return ToInt64(float64(val))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// IDKey reduces an id value to a canonical comparison key: numeric ids (and
// numeric strings) collapse to their decimal form, anything else falls back to
// its string form. The second return reports whether the id was numeric.
func IDKey(v any) (string, bool) {
	if n, ok := ToInt64(v); ok {
		return strconv.FormatInt(n, 10), true
	}
	return fmt.Sprintf("%v", v), false
}

// SameID reports whether two id values identify the same record. The store
// tolerates ids supplied as numbers or numeric strings interchangeably, so
// comparison goes through the canonical key rather than raw equality.
func SameID(a, b any) bool {
	ka, _ := IDKey(a)
	kb, _ := IDKey(b)
	return ka == kb
}

// FindByID returns the index of the document whose id matches, or -1.
func FindByID(docs []Document, id any) int {
	for i, d := range docs {
		if SameID(d["id"], id) {
			return i
		}
	}
	return -1
}
