// Package value implements the engine's tagged Value sum type: null, bool,
// int, float, decimal, string, array and object, with the coercion,
// truthiness and equality semantics the rule expression language relies on.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind discriminates the Value variants.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the sum type every rule expression operates on. The zero Value is
// Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	d    decimal.Decimal
	s    string
	arr  []Value
	obj  map[string]Value
}

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Int(i int64) Value           { return Value{kind: KindInt, i: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, f: f} }
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }
func String(s string) Value       { return Value{kind: KindString, s: s} }

func Array(vs []Value) Value {
	cp := make([]Value, len(vs))
	copy(cp, vs)
	return Value{kind: KindArray, arr: cp}
}

func Object(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)             { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)             { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)         { return v.f, v.kind == KindFloat }
func (v Value) AsDecimal() (decimal.Decimal, bool) { return v.d, v.kind == KindDecimal }
func (v Value) AsString() (string, bool)         { return v.s, v.kind == KindString }
func (v Value) AsArray() ([]Value, bool)         { return v.arr, v.kind == KindArray }
func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// ToNumber converts any Value to float64. Arrays and objects have no numeric
// reading and coerce to 0 rather than erroring, matching the engine's
// "never fails" stance (spec.md §4.1) — the only numeric failures are
// explicit DivisionByZero/modulo errors raised by the evaluators themselves.
func (v Value) ToNumber() float64 {
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindDecimal:
		f, _ := v.d.Float64()
		return f
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// IsTruthy implements the engine's truthiness rule: null, false, 0, 0.0,
// empty string and empty array are falsy; everything else, including
// empty objects, is truthy.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindDecimal:
		return !v.d.IsZero()
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.arr) != 0
	case KindObject:
		return true
	default:
		return false
	}
}

// ToBool is IsTruthy under the name used by spec.md's algebraic laws
// (to_bool(to_bool(x)) = to_bool(x)).
func (v Value) ToBool() Value { return Bool(v.IsTruthy()) }

// ToDisplayString renders a human-readable representation, used by cat/log
// and error messages.
func (v Value) ToDisplayString() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal:
		return v.d.String()
	case KindString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.ToDisplayString()
		}
		return strings.Join(parts, ",")
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s:%s", k, v.obj[k].ToDisplayString())
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return ""
	}
}

func isNumericKind(k Kind) bool {
	return k == KindInt || k == KindFloat || k == KindDecimal
}

// LooseEquals mirrors JavaScript double-equals: numeric cross-types compare
// by numeric value, string-to-number by parse, null only equals null,
// booleans only equal booleans.
func (v Value) LooseEquals(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == KindNull && o.kind == KindNull
	}
	if v.kind == KindBool || o.kind == KindBool {
		return v.kind == KindBool && o.kind == KindBool && v.b == o.b
	}
	if isNumericKind(v.kind) && isNumericKind(o.kind) {
		return numericEqual(v, o)
	}
	if isNumericKind(v.kind) && o.kind == KindString {
		return v.ToNumber() == o.ToNumber()
	}
	if v.kind == KindString && isNumericKind(o.kind) {
		return v.ToNumber() == o.ToNumber()
	}
	if v.kind == KindString && o.kind == KindString {
		return v.s == o.s
	}
	if v.kind == KindArray && o.kind == KindArray {
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].LooseEquals(o.arr[i]) {
				return false
			}
		}
		return true
	}
	if v.kind == KindObject && o.kind == KindObject {
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, ve := range v.obj {
			oe, ok := o.obj[k]
			if !ok || !ve.LooseEquals(oe) {
				return false
			}
		}
		return true
	}
	return false
}

func numericEqual(a, b Value) bool {
	if a.kind == KindDecimal && b.kind == KindDecimal {
		return a.d.Equal(b.d)
	}
	return a.ToNumber() == b.ToNumber()
}

// StrictEquals is structural type-and-value equality. Numeric kinds must
// match exactly (Int(1) is not StrictEquals Float(1)).
func (v Value) StrictEquals(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDecimal:
		return v.d.Equal(o.d)
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].StrictEquals(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, ve := range v.obj {
			oe, ok := o.obj[k]
			if !ok || !ve.StrictEquals(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Ordering is a three-way comparison result.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

// Compare implements partial ordering: defined only between compatible
// numerics and between strings. The second return is false when the pair is
// incomparable (e.g. array vs object).
func (v Value) Compare(o Value) (Ordering, bool) {
	if isNumericKind(v.kind) && isNumericKind(o.kind) {
		if v.kind == KindDecimal && o.kind == KindDecimal {
			c := v.d.Cmp(o.d)
			return Ordering(c), true
		}
		a, b := v.ToNumber(), o.ToNumber()
		switch {
		case a < b:
			return Less, true
		case a > b:
			return Greater, true
		default:
			return Equal, true
		}
	}
	if v.kind == KindString && o.kind == KindString {
		switch {
		case v.s < o.s:
			return Less, true
		case v.s > o.s:
			return Greater, true
		default:
			return Equal, true
		}
	}
	return Equal, false
}

// FromJSON converts a decoded encoding/json value (as produced by
// json.Unmarshal into interface{}) into a Value.
func FromJSON(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && x >= math.MinInt64 && x <= math.MaxInt64 {
			return Int(int64(x))
		}
		return Float(x)
	case int:
		return Int(int64(x))
	case int64:
		return Int(x)
	case string:
		return String(x)
	case []any:
		vs := make([]Value, len(x))
		for i, e := range x {
			vs[i] = FromJSON(e)
		}
		return Array(vs)
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			m[k] = FromJSON(e)
		}
		return Object(m)
	default:
		return Null()
	}
}

// ToJSON converts a Value back to a plain interface{} tree suitable for
// encoding/json.Marshal.
func (v Value) ToJSON() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		f, _ := v.d.Float64()
		return f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToJSON()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToJSON()
		}
		return out
	default:
		return nil
	}
}
