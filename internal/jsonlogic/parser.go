// Package jsonlogic parses the JSON-shaped logic-tree surface form into the
// shared AST (C3). Surface form: JSON objects of shape {"<op>": <args>}
// with exactly one key; literals pass through unchanged.
package jsonlogic

import (
	"encoding/json"
	"fmt"

	"ruleforge/internal/ast"
	"ruleforge/internal/rerr"
	"ruleforge/internal/value"
)

// Parse parses raw JSON bytes into an AST.
func Parse(data []byte) (*ast.Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &rerr.ParseError{Reason: err.Error()}
	}
	return ParseValue(raw)
}

// ParseValue parses an already-decoded JSON value (as from
// encoding/json.Unmarshal into interface{}) into an AST.
func ParseValue(raw any) (*ast.Node, error) {
	return parseAt(raw, 0)
}

func parseAt(raw any, pos int) (*ast.Node, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return ast.Literal(value.FromJSON(raw)), nil
	}
	if len(obj) != 1 {
		return nil, &rerr.ParseError{Position: pos, Reason: "logic object must have exactly one operator key"}
	}
	var op string
	var args any
	for k, v := range obj {
		op, args = k, v
	}
	return parseOp(op, args, pos)
}

// argList normalizes an operator's argument payload to a slice: a bare
// (non-array) value is treated as a single-element argument list, matching
// JSON-logic's convention that {"!":true} == {"!":[true]}.
func argList(args any) []any {
	if arr, ok := args.([]any); ok {
		return arr
	}
	return []any{args}
}

func parseNodes(args []any, pos int) ([]*ast.Node, error) {
	out := make([]*ast.Node, len(args))
	for i, a := range args {
		n, err := parseAt(a, pos)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func parseOp(op string, rawArgs any, pos int) (*ast.Node, error) {
	switch op {
	case "var":
		return parseVar(rawArgs, pos)
	case "==":
		return parseComparisonArgs(ast.OpEq, rawArgs, pos)
	case "===":
		return parseComparisonArgs(ast.OpStrictEq, rawArgs, pos)
	case "!=":
		return parseComparisonArgs(ast.OpNe, rawArgs, pos)
	case "!==":
		return parseComparisonArgs(ast.OpStrictNe, rawArgs, pos)
	case "<":
		return parseComparisonArgs(ast.OpLt, rawArgs, pos)
	case "<=":
		return parseComparisonArgs(ast.OpLe, rawArgs, pos)
	case ">":
		return parseComparisonArgs(ast.OpGt, rawArgs, pos)
	case ">=":
		return parseComparisonArgs(ast.OpGe, rawArgs, pos)
	case "!":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, &rerr.ParseError{Position: pos, Reason: "! takes exactly one argument", Op: op}
		}
		return ast.Not(args[0]), nil
	case "!!":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, &rerr.ParseError{Position: pos, Reason: "!! takes exactly one argument", Op: op}
		}
		return ast.ToBool(args[0]), nil
	case "and":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		return ast.And(args...), nil
	case "or":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		return ast.Or(args...), nil
	case "if", "?:":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		if len(args)%2 == 0 {
			return nil, &rerr.ParseError{Position: pos, Reason: "if requires an odd-length argument list (cond,then,...,else)", Op: op}
		}
		return ast.If(args...), nil
	case "+":
		return parseArith(ast.OpAdd, rawArgs, pos)
	case "-":
		return parseArith(ast.OpSub, rawArgs, pos)
	case "*":
		return parseArith(ast.OpMul, rawArgs, pos)
	case "/":
		return parseArithBinary(ast.OpDiv, rawArgs, pos, op)
	case "%":
		return parseArithBinary(ast.OpMod, rawArgs, pos, op)
	case "min":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		return ast.Min(args...), nil
	case "max":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		return ast.Max(args...), nil
	case "cat":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		return ast.Cat(args...), nil
	case "substr":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 || len(args) > 3 {
			return nil, &rerr.ParseError{Position: pos, Reason: "substr takes 2 or 3 arguments", Op: op}
		}
		return ast.Substr(args...), nil
	case "log":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, &rerr.ParseError{Position: pos, Reason: "log takes exactly one argument", Op: op}
		}
		return ast.Log(args[0]), nil
	case "missing":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		return ast.Missing(args...), nil
	case "missing_some":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, &rerr.ParseError{Position: pos, Reason: "missing_some takes exactly two arguments", Op: op}
		}
		return ast.MissingSome(args[0], args[1]), nil
	case "in":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, &rerr.ParseError{Position: pos, Reason: "in takes exactly two arguments", Op: op}
		}
		return ast.ArrayOp(ast.ArrayIn, nil, args...), nil
	case "merge":
		args, err := parseNodes(argList(rawArgs), pos)
		if err != nil {
			return nil, err
		}
		return ast.ArrayOp(ast.ArrayMerge, nil, args...), nil
	case "map", "filter", "all", "some", "none":
		return parseArrayLambdaOp(op, rawArgs, pos)
	case "reduce":
		return parseReduce(rawArgs, pos)
	default:
		return nil, &rerr.ParseError{Position: pos, Reason: "unknown operator", Op: op}
	}
}

func parseVar(rawArgs any, pos int) (*ast.Node, error) {
	switch a := rawArgs.(type) {
	case string:
		return ast.Var(a, nil), nil
	case []any:
		if len(a) == 0 {
			return ast.Var("", nil), nil
		}
		path, ok := a[0].(string)
		if !ok {
			return nil, &rerr.ParseError{Position: pos, Reason: "var path must be a string"}
		}
		if len(a) == 1 {
			return ast.Var(path, nil), nil
		}
		def, err := parseAt(a[1], pos)
		if err != nil {
			return nil, err
		}
		return ast.Var(path, def), nil
	case nil:
		return ast.Var("", nil), nil
	default:
		return nil, &rerr.ParseError{Position: pos, Reason: fmt.Sprintf("unsupported var argument shape %T", rawArgs)}
	}
}

func parseComparisonArgs(op ast.CompareOp, rawArgs any, pos int) (*ast.Node, error) {
	args, err := parseNodes(argList(rawArgs), pos)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, &rerr.ParseError{Position: pos, Reason: "comparison requires at least two arguments"}
	}
	return ast.Comparison(op, args...), nil
}

func parseArith(op ast.ArithOp, rawArgs any, pos int) (*ast.Node, error) {
	args, err := parseNodes(argList(rawArgs), pos)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 && op == ast.OpSub {
		return ast.Negate(args[0]), nil
	}
	if len(args) < 1 {
		return nil, &rerr.ParseError{Position: pos, Reason: "arithmetic operator requires at least one argument"}
	}
	return ast.Arith(op, args...), nil
}

func parseArithBinary(op ast.ArithOp, rawArgs any, pos int, name string) (*ast.Node, error) {
	args, err := parseNodes(argList(rawArgs), pos)
	if err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, &rerr.ParseError{Position: pos, Reason: name + " requires exactly two arguments", Op: name}
	}
	return ast.Arith(op, args...), nil
}

var arrayOpKindByName = map[string]ast.ArrayOpKind{
	"map":    ast.ArrayMap,
	"filter": ast.ArrayFilter,
	"all":    ast.ArrayAll,
	"some":   ast.ArraySome,
	"none":   ast.ArrayNone,
}

// parseArrayLambdaOp handles map/filter/all/some/none: {"op": [array, lambda-expr]}
// where lambda-expr is an expression referencing the bare var "" (current
// element) — JSON-logic's convention, not a named parameter.
func parseArrayLambdaOp(op string, rawArgs any, pos int) (*ast.Node, error) {
	args := argList(rawArgs)
	if len(args) != 2 {
		return nil, &rerr.ParseError{Position: pos, Reason: op + " requires exactly two arguments", Op: op}
	}
	arrNode, err := parseAt(args[0], pos)
	if err != nil {
		return nil, err
	}
	bodyNode, err := parseAt(args[1], pos)
	if err != nil {
		return nil, err
	}
	lambda := &ast.Lambda{Params: []string{""}, Body: bodyNode}
	return ast.ArrayOp(arrayOpKindByName[op], lambda, arrNode), nil
}

func parseReduce(rawArgs any, pos int) (*ast.Node, error) {
	args := argList(rawArgs)
	if len(args) != 3 {
		return nil, &rerr.ParseError{Position: pos, Reason: "reduce requires exactly three arguments", Op: "reduce"}
	}
	arrNode, err := parseAt(args[0], pos)
	if err != nil {
		return nil, err
	}
	bodyNode, err := parseAt(args[1], pos)
	if err != nil {
		return nil, err
	}
	initNode, err := parseAt(args[2], pos)
	if err != nil {
		return nil, err
	}
	lambda := &ast.Lambda{Params: []string{"accumulator", "current"}, Body: bodyNode}
	return ast.ArrayOp(ast.ArrayReduce, lambda, arrNode, initNode), nil
}
