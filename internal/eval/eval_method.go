package eval

import (
	"math"
	"strings"

	"ruleforge/internal/ast"
	"ruleforge/internal/rerr"
	"ruleforge/internal/value"
)

// evalMethodCall implements the small set of builtin methods/free functions
// the infix surface's postfix `.method()` and bare-call syntax lower to:
// length, contains, keys, values, round, floor, ceil, abs, upper, lower,
// trim. Unrecognized names raise RuntimeError.
func (ev0 *evaluator) evalMethodCall(n *ast.Node) error {
	return ev0.pushWork(ev0.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
		return callBuiltin(n.MethodName, vs)
	}, n.Args...))
}

func callBuiltin(name string, args []value.Value) (value.Value, error) {
	switch name {
	case "length":
		return builtinLength(args[0])
	case "contains":
		return builtinContains(args[0], args[1])
	case "keys":
		obj, ok := args[0].AsObject()
		if !ok {
			return value.Array(nil), nil
		}
		out := make([]value.Value, 0, len(obj))
		for k := range obj {
			out = append(out, value.String(k))
		}
		return value.Array(out), nil
	case "values":
		obj, ok := args[0].AsObject()
		if !ok {
			return value.Array(nil), nil
		}
		out := make([]value.Value, 0, len(obj))
		for _, v := range obj {
			out = append(out, v)
		}
		return value.Array(out), nil
	case "round":
		return value.Int(int64(math.Round(args[0].ToNumber()))), nil
	case "floor":
		return value.Int(int64(math.Floor(args[0].ToNumber()))), nil
	case "ceil":
		return value.Int(int64(math.Ceil(args[0].ToNumber()))), nil
	case "abs":
		return value.Float(math.Abs(args[0].ToNumber())), nil
	case "upper":
		return value.String(strings.ToUpper(args[0].ToDisplayString())), nil
	case "lower":
		return value.String(strings.ToLower(args[0].ToDisplayString())), nil
	case "trim":
		return value.String(strings.TrimSpace(args[0].ToDisplayString())), nil
	default:
		return value.Null(), &rerr.RuntimeError{Reason: "unknown method or function: " + name}
	}
}

func builtinLength(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindArray:
		arr, _ := v.AsArray()
		return value.Int(int64(len(arr))), nil
	case value.KindString:
		s, _ := v.AsString()
		return value.Int(int64(len([]rune(s)))), nil
	case value.KindObject:
		obj, _ := v.AsObject()
		return value.Int(int64(len(obj))), nil
	default:
		return value.Int(0), nil
	}
}

func builtinContains(haystack, needle value.Value) (value.Value, error) {
	switch haystack.Kind() {
	case value.KindArray:
		arr, _ := haystack.AsArray()
		for _, e := range arr {
			if e.LooseEquals(needle) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case value.KindString:
		s, _ := haystack.AsString()
		return value.Bool(containsSubstring(s, needle.ToDisplayString())), nil
	default:
		return value.Bool(false), nil
	}
}
