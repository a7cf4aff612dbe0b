package eval

import (
	"ruleforge/internal/ast"
	"ruleforge/internal/value"
)

// evalArrayOp evaluates the array-family operators. Other than `in`, which
// the bytecode compiler lowers to OpIn, these are never compiled to
// bytecode, so this is the only home for their semantics; each per-element
// lambda body runs through a fresh, separately
// bounded Eval call with the element (or the reducer's accumulator/current
// pair) as its data root — the lambda's reserved variable names ("" for a
// single parameter, "accumulator"/"current" for reduce) are resolved
// against that nested root, never against the outer rule context.
func (ev0 *evaluator) evalArrayOp(n *ast.Node) error {
	switch n.ArrayOp {
	case ast.ArrayMerge:
		return ev0.pushWork(ev0.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
			var out []value.Value
			for _, v := range vs {
				if arr, ok := v.AsArray(); ok {
					out = append(out, arr...)
				} else {
					out = append(out, v)
				}
			}
			return value.Array(out), nil
		}, n.Args...))
	case ast.ArrayIn:
		return ev0.pushWork(ev0.stepCombineN(2, func(vs []value.Value) (value.Value, error) {
			needle, haystack := vs[0], vs[1]
			if arr, ok := haystack.AsArray(); ok {
				for _, e := range arr {
					if e.LooseEquals(needle) {
						return value.Bool(true), nil
					}
				}
				return value.Bool(false), nil
			}
			if s, ok := haystack.AsString(); ok {
				sub := needle.ToDisplayString()
				return value.Bool(containsSubstring(s, sub)), nil
			}
			return value.Bool(false), nil
		}, n.Args[0], n.Args[1]))
	case ast.ArrayReduce:
		return ev0.pushWork(ev0.stepCombineN(2, func(vs []value.Value) (value.Value, error) {
			arr, _ := vs[0].AsArray()
			acc := vs[1]
			for _, cur := range arr {
				root := value.Object(map[string]value.Value{"accumulator": acc, "current": cur})
				v, err := Eval(n.Lambda.Body, root, ev0.limits)
				if err != nil {
					return value.Null(), err
				}
				acc = v
			}
			return acc, nil
		}, n.Args[0], n.Args[1]))
	default:
		return ev0.pushWork(ev0.stepCombine1(n.Args[0], func(arrVal value.Value) (value.Value, error) {
			arr, ok := arrVal.AsArray()
			if !ok {
				return defaultForArrayOp(n.ArrayOp), nil
			}
			return applyElementwise(n.ArrayOp, n.Lambda, arr, ev0.limits)
		}))
	}
}

func defaultForArrayOp(op ast.ArrayOpKind) value.Value {
	switch op {
	case ast.ArrayMap, ast.ArrayFilter:
		return value.Array(nil)
	case ast.ArrayAll, ast.ArrayNone:
		return value.Bool(true)
	case ast.ArraySome:
		return value.Bool(false)
	default:
		return value.Null()
	}
}

func applyElementwise(op ast.ArrayOpKind, lambda *ast.Lambda, arr []value.Value, limits Limits) (value.Value, error) {
	switch op {
	case ast.ArrayMap:
		out := make([]value.Value, len(arr))
		for i, e := range arr {
			v, err := Eval(lambda.Body, e, limits)
			if err != nil {
				return value.Null(), err
			}
			out[i] = v
		}
		return value.Array(out), nil
	case ast.ArrayFilter:
		var out []value.Value
		for _, e := range arr {
			v, err := Eval(lambda.Body, e, limits)
			if err != nil {
				return value.Null(), err
			}
			if v.IsTruthy() {
				out = append(out, e)
			}
		}
		return value.Array(out), nil
	case ast.ArrayAll:
		for _, e := range arr {
			v, err := Eval(lambda.Body, e, limits)
			if err != nil {
				return value.Null(), err
			}
			if !v.IsTruthy() {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	case ast.ArraySome:
		for _, e := range arr {
			v, err := Eval(lambda.Body, e, limits)
			if err != nil {
				return value.Null(), err
			}
			if v.IsTruthy() {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case ast.ArrayNone:
		for _, e := range arr {
			v, err := Eval(lambda.Body, e, limits)
			if err != nil {
				return value.Null(), err
			}
			if v.IsTruthy() {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	default:
		return value.Null(), nil
	}
}

func containsSubstring(s, sub string) bool {
	if sub == "" {
		return true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
