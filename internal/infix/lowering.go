package infix

import (
	"ruleforge/internal/ast"
	"ruleforge/internal/value"
)

var arrayOpMethodNames = map[string]ast.ArrayOpKind{
	"map": ast.ArrayMap, "filter": ast.ArrayFilter,
	"all": ast.ArrayAll, "some": ast.ArraySome, "none": ast.ArrayNone,
}

func lowerPropertyAccess(recv *ast.Node, name string) *ast.Node {
	return ast.Index(recv, ast.Literal(value.String(name)))
}

// lowerMethodCall handles both generalized builtin methods (length,
// contains, keys, values, round, floor, ceil, abs, upper, lower, trim) and
// the array-family operators when invoked in method-call position
// (arr.map(x => ...), arr.filter(x => ...), arr.reduce(init, (acc, cur) =>
// ...)): the lambda argument's parameter names are substituted with the
// reserved current-element / accumulator names, matching how the JSON-logic
// surface always uses those reserved names directly.
func lowerMethodCall(recv *ast.Node, name string, args []*ast.Node) *ast.Node {
	if opKind, ok := arrayOpMethodNames[name]; ok && len(args) == 1 {
		if lambda := asLambda(args[0]); lambda != nil {
			return ast.ArrayOp(opKind, toSingleParamLambda(lambda), recv)
		}
	}
	if name == "reduce" && len(args) == 2 {
		if lambda := asLambda(args[1]); lambda != nil {
			return ast.ArrayOp(ast.ArrayReduce, toReduceLambda(lambda), recv, args[0])
		}
	}
	return ast.MethodCall(recv, name, args...)
}

func lowerCall(name string, args []*ast.Node) (*ast.Node, error) {
	if opKind, ok := arrayOpMethodNames[name]; ok && len(args) == 2 {
		if lambda := asLambda(args[1]); lambda != nil {
			return ast.ArrayOp(opKind, toSingleParamLambda(lambda), args[0]), nil
		}
	}
	if name == "reduce" && len(args) == 3 {
		if lambda := asLambda(args[2]); lambda != nil {
			return ast.ArrayOp(ast.ArrayReduce, toReduceLambda(lambda), args[0], args[1]), nil
		}
	}
	return ast.MethodCall(nil, name, args...), nil
}

func asLambda(n *ast.Node) *ast.Lambda {
	if n.Kind == ast.KindLambdaValue {
		return n.Lambda
	}
	return nil
}

// toSingleParamLambda substitutes a one-parameter lambda's parameter with
// the reserved current-element variable (the bare-path "" var, matching the
// JSON-logic convention for map/filter/all/some/none).
func toSingleParamLambda(l *ast.Lambda) *ast.Lambda {
	body := l.Body
	if len(l.Params) == 1 {
		body = ast.Substitute(body, l.Params[0], ast.Var("", nil))
	}
	return &ast.Lambda{Params: []string{""}, Body: body}
}

// toReduceLambda substitutes a two-parameter reducer's (accumulator,
// current) parameters with the reserved names.
func toReduceLambda(l *ast.Lambda) *ast.Lambda {
	body := l.Body
	if len(l.Params) == 2 {
		body = ast.Substitute(body, l.Params[0], ast.Var("accumulator", nil))
		body = ast.Substitute(body, l.Params[1], ast.Var("current", nil))
	}
	return &ast.Lambda{Params: []string{"accumulator", "current"}, Body: body}
}

// lowerLambdaAsValue produces a first-class lambda value node. When it is
// later consumed as the argument to map/filter/reduce/all/some/none, the
// consuming site (lowerCall/lowerMethodCall) performs the reserved-name
// substitution; a lambda that escapes to any other context is evaluated as
// an error by the evaluators (spec.md does not define lambda-as-value
// semantics outside array operators).
func lowerLambdaAsValue(params []string, body *ast.Node) *ast.Node {
	return ast.LambdaValue(params, body)
}

func lowerArrayLiteral(elems []*ast.Node) *ast.Node {
	return ast.ArrayLiteral(elems...)
}
