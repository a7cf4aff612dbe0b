// Package varpath resolves dotted variable paths ("user.age") against a
// nested Value object/array tree, shared by the iterative evaluator and the
// bytecode VM so both tiers agree on lookup semantics.
package varpath

import (
	"strconv"
	"strings"

	"ruleforge/internal/value"
)

// Resolve looks up a dotted path inside data (expected to be an Object, but
// any Value is tolerated for the empty path). The second return is false
// when any path segment fails to resolve (object key absent, or array
// index out of bounds/non-numeric) — this is also the definition used by
// missing/missing_some (DESIGN.md Open Question #2).
func Resolve(data value.Value, path string) (value.Value, bool) {
	if path == "" {
		return data, true
	}
	cur := data
	for _, seg := range strings.Split(path, ".") {
		switch cur.Kind() {
		case value.KindObject:
			obj, _ := cur.AsObject()
			v, ok := obj[seg]
			if !ok {
				return value.Null(), false
			}
			cur = v
		case value.KindArray:
			idx, err := strconv.Atoi(seg)
			arr, _ := cur.AsArray()
			if err != nil || idx < 0 || idx >= len(arr) {
				return value.Null(), false
			}
			cur = arr[idx]
		default:
			return value.Null(), false
		}
	}
	return cur, true
}
