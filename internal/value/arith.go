package value

import (
	"math"

	"github.com/shopspring/decimal"

	"ruleforge/internal/rerr"
)

// Add implements the VM/bytecode tier's type-preserving addition:
// int+int->int, mixing int/float->float, both-decimal->decimal, decimal
// mixed with int promotes to decimal, decimal mixed with float downgrades
// to float (spec.md §4.1: "mixing decimal with float downgrades to float").
func Add(a, b Value) Value {
	if a.kind == KindDecimal && b.kind == KindFloat || a.kind == KindFloat && b.kind == KindDecimal {
		return Float(a.ToNumber() + b.ToNumber())
	}
	if a.kind == KindDecimal || b.kind == KindDecimal {
		return Decimal(toDecimal(a).Add(toDecimal(b)))
	}
	if a.kind == KindInt && b.kind == KindInt {
		return Int(a.i + b.i)
	}
	return Float(a.ToNumber() + b.ToNumber())
}

func Sub(a, b Value) Value {
	if a.kind == KindDecimal && b.kind == KindFloat || a.kind == KindFloat && b.kind == KindDecimal {
		return Float(a.ToNumber() - b.ToNumber())
	}
	if a.kind == KindDecimal || b.kind == KindDecimal {
		return Decimal(toDecimal(a).Sub(toDecimal(b)))
	}
	if a.kind == KindInt && b.kind == KindInt {
		return Int(a.i - b.i)
	}
	return Float(a.ToNumber() - b.ToNumber())
}

func Mul(a, b Value) Value {
	if a.kind == KindDecimal && b.kind == KindFloat || a.kind == KindFloat && b.kind == KindDecimal {
		return Float(a.ToNumber() * b.ToNumber())
	}
	if a.kind == KindDecimal || b.kind == KindDecimal {
		return Decimal(toDecimal(a).Mul(toDecimal(b)))
	}
	if a.kind == KindInt && b.kind == KindInt {
		return Int(a.i * b.i)
	}
	return Float(a.ToNumber() * b.ToNumber())
}

// Div is always float-typed, per spec.md §4.6/§4.7, and zero-checked first.
func Div(a, b Value) (Value, error) {
	if b.ToNumber() == 0 {
		return Null(), &rerr.DivisionByZero{Op: "/"}
	}
	return Float(a.ToNumber() / b.ToNumber()), nil
}

// Mod is only supported for Int/Int; non-int operands truncate via
// asIntOrZero's int64 conversion, matching the original's `as_int().unwrap_or(0)` zero
// check.
func Mod(a, b Value) (Value, error) {
	bi := asIntOrZero(b)
	if bi == 0 {
		return Null(), &rerr.DivisionByZero{Op: "%"}
	}
	ai := asIntOrZero(a)
	return Int(ai % bi), nil
}

// Pow is the single shared exponentiation helper for both evaluation tiers
// (the iterative evaluator and the VM previously each hand-rolled an
// integer-only loop that silently truncated fractional exponents; both now
// call this).
func Pow(base, exp float64) float64 {
	return math.Pow(base, exp)
}

func Negate(a Value) Value {
	switch a.kind {
	case KindInt:
		return Int(-a.i)
	case KindDecimal:
		return Decimal(a.d.Neg())
	default:
		return Float(-a.ToNumber())
	}
}

func Min(vs ...Value) Value { return extremum(vs, Less) }
func Max(vs ...Value) Value { return extremum(vs, Greater) }

func extremum(vs []Value, want Ordering) Value {
	if len(vs) == 0 {
		return Null()
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if ord, ok := v.Compare(best); ok && ord == want {
			best = v
		}
	}
	return best
}

func toDecimal(v Value) decimal.Decimal {
	if v.kind == KindDecimal {
		return v.d
	}
	if v.kind == KindInt {
		return decimal.NewFromInt(v.i)
	}
	return decimal.NewFromFloat(v.ToNumber())
}

func asIntOrZero(v Value) int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	case KindDecimal:
		return v.d.IntPart()
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}
