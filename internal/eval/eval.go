// Package eval implements the loop-based tree-walk interpreter (C5): an
// explicit work stack of pending steps and an explicit value stack of
// computed intermediates, with no host call-stack recursion through the
// expression tree. Steps are Go closures capturing just enough state to
// perform one unit of work and push further steps/values — the idiomatic
// Go rendition of the original's enumerated step/continuation state
// machine (see iter_eval.rs in DESIGN.md).
package eval

import (
	"ruleforge/internal/ast"
	"ruleforge/internal/rerr"
	"ruleforge/internal/value"
	"ruleforge/internal/varpath"
)

// Limits bounds the evaluator's step count and work-stack depth.
type Limits struct {
	MaxSteps     int
	MaxStackDepth int
}

// DefaultLimits returns the step and work-stack bounds used by the engine
// and executor, tuned generously for hand-authored rules.
func DefaultLimits() Limits {
	return Limits{MaxSteps: 1_000_000, MaxStackDepth: 10_000}
}

type step func(ev *evaluator) error

type evaluator struct {
	work   []step
	values []value.Value
	data   value.Value
	limits Limits
	steps  int
}

func (ev *evaluator) pushWork(s step) error {
	if len(ev.work) >= ev.limits.MaxStackDepth {
		return &rerr.StackOverflow{Limit: ev.limits.MaxStackDepth}
	}
	ev.work = append(ev.work, s)
	return nil
}

func (ev *evaluator) popWork() step {
	s := ev.work[len(ev.work)-1]
	ev.work = ev.work[:len(ev.work)-1]
	return s
}

func (ev *evaluator) pushValue(v value.Value) { ev.values = append(ev.values, v) }

func (ev *evaluator) popValue() value.Value {
	v := ev.values[len(ev.values)-1]
	ev.values = ev.values[:len(ev.values)-1]
	return v
}

func (ev *evaluator) popValues(n int) []value.Value {
	vs := make([]value.Value, n)
	copy(vs, ev.values[len(ev.values)-n:])
	ev.values = ev.values[:len(ev.values)-n]
	return vs
}

// Eval runs n against data using the iterative tree-walk interpreter.
func Eval(n *ast.Node, data value.Value, limits Limits) (value.Value, error) {
	ev := &evaluator{data: data, limits: limits}
	if err := ev.pushWork(ev.stepEval(n)); err != nil {
		return value.Null(), err
	}
	for len(ev.work) > 0 {
		ev.steps++
		if ev.steps > ev.limits.MaxSteps {
			return value.Null(), &rerr.StackOverflow{Limit: ev.limits.MaxSteps}
		}
		s := ev.popWork()
		if err := s(ev); err != nil {
			return value.Null(), err
		}
	}
	if len(ev.values) != 1 {
		return value.Null(), &rerr.RuntimeError{Reason: "evaluator did not leave exactly one value on the stack"}
	}
	return ev.popValue(), nil
}

// stepEval returns a step that dispatches on n.Kind, pushing further steps
// and/or a result value.
func (ev0 *evaluator) stepEval(n *ast.Node) step {
	return func(ev *evaluator) error {
		switch n.Kind {
		case ast.KindLiteral:
			ev.pushValue(n.Literal)
			return nil
		case ast.KindArrayLiteral:
			return ev.pushWork(ev.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
				return value.Array(vs), nil
			}, n.Args...))
		case ast.KindVar:
			return ev.evalVar(n)
		case ast.KindNot:
			return ev.pushWork(ev.stepCombine1(n.Args[0], func(v value.Value) (value.Value, error) {
				return value.Bool(!v.IsTruthy()), nil
			}))
		case ast.KindToBool:
			return ev.pushWork(ev.stepCombine1(n.Args[0], func(v value.Value) (value.Value, error) {
				return v.ToBool(), nil
			}))
		case ast.KindNegate:
			return ev.pushWork(ev.stepCombine1(n.Args[0], func(v value.Value) (value.Value, error) {
				return value.Negate(v), nil
			}))
		case ast.KindAnd:
			return ev.evalAnd(n.Args)
		case ast.KindOr:
			return ev.evalOr(n.Args)
		case ast.KindIf:
			return ev.evalIf(n.Args)
		case ast.KindComparison:
			return ev.evalComparison(n)
		case ast.KindArith:
			return ev.evalArith(n)
		case ast.KindMin:
			return ev.pushWork(ev.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
				return value.Min(vs...), nil
			}, n.Args...))
		case ast.KindMax:
			return ev.pushWork(ev.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
				return value.Max(vs...), nil
			}, n.Args...))
		case ast.KindCat:
			return ev.pushWork(ev.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
				out := ""
				for _, v := range vs {
					out += v.ToDisplayString()
				}
				return value.String(out), nil
			}, n.Args...))
		case ast.KindSubstr:
			return ev.pushWork(ev.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
				return evalSubstr(vs)
			}, n.Args...))
		case ast.KindLog:
			return ev.pushWork(ev.stepCombine1(n.Args[0], func(v value.Value) (value.Value, error) {
				return v, nil
			}))
		case ast.KindMissing:
			return ev.evalMissing(n)
		case ast.KindMissingSome:
			return ev.evalMissingSome(n)
		case ast.KindIndex:
			return ev.pushWork(ev.stepCombineN(2, func(vs []value.Value) (value.Value, error) {
				return evalIndex(vs[0], vs[1])
			}, n.Args[0], n.Args[1]))
		case ast.KindArrayOp:
			return ev.evalArrayOp(n)
		case ast.KindMethodCall:
			return ev.evalMethodCall(n)
		case ast.KindLambdaValue:
			return &rerr.RuntimeError{Reason: "lambda value used outside an array operator"}
		default:
			return &rerr.RuntimeError{Reason: "unknown AST node kind"}
		}
	}
}

func (ev *evaluator) evalVar(n *ast.Node) error {
	v, ok := varpath.Resolve(ev.data, n.VarPath)
	if ok && !v.IsNull() {
		ev.pushValue(v)
		return nil
	}
	if n.VarDefault != nil {
		return ev.pushWork(ev.stepEval(n.VarDefault))
	}
	if ok && v.IsNull() {
		ev.pushValue(value.Null())
		return nil
	}
	return &rerr.VariableNotFound{Path: n.VarPath}
}

// stepCombine1 evaluates a single operand then applies f.
func (ev0 *evaluator) stepCombine1(operand *ast.Node, f func(value.Value) (value.Value, error)) step {
	return func(ev *evaluator) error {
		if err := ev.pushWork(ev.stepApply1(f)); err != nil {
			return err
		}
		return ev.pushWork(ev.stepEval(operand))
	}
}

func (ev0 *evaluator) stepApply1(f func(value.Value) (value.Value, error)) step {
	return func(ev *evaluator) error {
		v, err := f(ev.popValue())
		if err != nil {
			return err
		}
		ev.pushValue(v)
		return nil
	}
}

// stepCombineN evaluates n operands in order then applies f to the
// collected results.
func (ev0 *evaluator) stepCombineN(n int, f func([]value.Value) (value.Value, error), operands ...*ast.Node) step {
	return func(ev *evaluator) error {
		if err := ev.pushWork(ev.stepApplyN(n, f)); err != nil {
			return err
		}
		for i := len(operands) - 1; i >= 0; i-- {
			if err := ev.pushWork(ev.stepEval(operands[i])); err != nil {
				return err
			}
		}
		return nil
	}
}

func (ev0 *evaluator) stepApplyN(n int, f func([]value.Value) (value.Value, error)) step {
	return func(ev *evaluator) error {
		vs := ev.popValues(n)
		v, err := f(vs)
		if err != nil {
			return err
		}
		ev.pushValue(v)
		return nil
	}
}

// evalAnd implements short-circuit AND: evaluate left to right, stop and
// return the first falsy value; otherwise return the last value.
func (ev0 *evaluator) evalAnd(args []*ast.Node) error {
	return ev0.pushWork(ev0.andOrStep(args, 0, true))
}

func (ev0 *evaluator) evalOr(args []*ast.Node) error {
	return ev0.pushWork(ev0.andOrStep(args, 0, false))
}

func (ev0 *evaluator) andOrStep(args []*ast.Node, idx int, isAnd bool) step {
	return func(ev *evaluator) error {
		if err := ev.pushWork(ev.andOrContinuation(args, idx, isAnd)); err != nil {
			return err
		}
		return ev.pushWork(ev.stepEval(args[idx]))
	}
}

func (ev0 *evaluator) andOrContinuation(args []*ast.Node, idx int, isAnd bool) step {
	return func(ev *evaluator) error {
		v := ev.popValue()
		isLast := idx == len(args)-1
		shortCircuit := v.IsTruthy() != isAnd
		if isLast || shortCircuit {
			ev.pushValue(v)
			return nil
		}
		return ev.pushWork(ev.andOrStep(args, idx+1, isAnd))
	}
}

// evalIf implements an if-chain: cond,then,cond,then,...,else.
func (ev0 *evaluator) evalIf(branches []*ast.Node) error {
	return ev0.pushWork(ev0.ifStep(branches, 0))
}

func (ev0 *evaluator) ifStep(branches []*ast.Node, idx int) step {
	return func(ev *evaluator) error {
		if idx == len(branches)-1 {
			return ev.pushWork(ev.stepEval(branches[idx]))
		}
		if err := ev.pushWork(ev.ifContinuation(branches, idx)); err != nil {
			return err
		}
		return ev.pushWork(ev.stepEval(branches[idx]))
	}
}

func (ev0 *evaluator) ifContinuation(branches []*ast.Node, idx int) step {
	return func(ev *evaluator) error {
		cond := ev.popValue()
		if cond.IsTruthy() {
			return ev.pushWork(ev.stepEval(branches[idx+1]))
		}
		return ev.pushWork(ev.ifStep(branches, idx+2))
	}
}

// evalComparison implements a (possibly chained) comparison as a
// conjunction of pairwise comparisons: a<b<c <=> a<b and b<c.
func (ev0 *evaluator) evalComparison(n *ast.Node) error {
	return ev0.pushWork(ev0.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
		for i := 0; i+1 < len(vs); i++ {
			if !compareOne(n.CompareOp, vs[i], vs[i+1]) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	}, n.Args...))
}

func compareOne(op ast.CompareOp, a, b value.Value) bool {
	switch op {
	case ast.OpEq:
		return a.LooseEquals(b)
	case ast.OpStrictEq:
		return a.StrictEquals(b)
	case ast.OpNe:
		return !a.LooseEquals(b)
	case ast.OpStrictNe:
		return !a.StrictEquals(b)
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		ord, ok := a.Compare(b)
		if !ok {
			return false
		}
		switch op {
		case ast.OpLt:
			return ord == value.Less
		case ast.OpLe:
			return ord != value.Greater
		case ast.OpGt:
			return ord == value.Greater
		case ast.OpGe:
			return ord != value.Less
		}
	}
	return false
}

// evalArith combines operands left to right via value.ToNumber-based
// float arithmetic — the iterative tier always collapses to float
// (DESIGN.md deviation #3); the VM tier preserves int/float/decimal.
func (ev0 *evaluator) evalArith(n *ast.Node) error {
	return ev0.pushWork(ev0.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
		return combineArith(n.ArithOp, vs)
	}, n.Args...))
}

func combineArith(op ast.ArithOp, vs []value.Value) (value.Value, error) {
	if len(vs) == 1 && op == ast.OpSub {
		return value.Float(-vs[0].ToNumber()), nil
	}
	acc := vs[0].ToNumber()
	for _, v := range vs[1:] {
		n := v.ToNumber()
		switch op {
		case ast.OpAdd:
			acc += n
		case ast.OpSub:
			acc -= n
		case ast.OpMul:
			acc *= n
		case ast.OpDiv:
			if n == 0 {
				return value.Null(), &rerr.DivisionByZero{Op: "/"}
			}
			acc /= n
		case ast.OpMod:
			if int64(n) == 0 {
				return value.Null(), &rerr.DivisionByZero{Op: "%"}
			}
			acc = float64(int64(acc) % int64(n))
		case ast.OpPow:
			acc = value.Pow(acc, n)
		}
	}
	return value.Float(acc), nil
}

func evalSubstr(vs []value.Value) (value.Value, error) {
	s, _ := vs[0].AsString()
	if s == "" {
		s = vs[0].ToDisplayString()
	}
	runes := []rune(s)
	start := int(vs[1].ToNumber())
	if start < 0 {
		start = len(runes) + start
		if start < 0 {
			start = 0
		}
	}
	if start > len(runes) {
		start = len(runes)
	}
	end := len(runes)
	if len(vs) == 3 {
		length := int(vs[2].ToNumber())
		if length < 0 {
			end = len(runes) + length
		} else {
			end = start + length
		}
		if end > len(runes) {
			end = len(runes)
		}
		if end < start {
			end = start
		}
	}
	return value.String(string(runes[start:end])), nil
}

func (ev0 *evaluator) evalMissing(n *ast.Node) error {
	return ev0.pushWork(ev0.stepCombineN(len(n.Args), func(vs []value.Value) (value.Value, error) {
		var missing []value.Value
		for _, pv := range vs {
			path, _ := pv.AsString()
			if _, ok := varpath.Resolve(ev0.data, path); !ok {
				missing = append(missing, pv)
			}
		}
		return value.Array(missing), nil
	}, n.Args...))
}

func (ev0 *evaluator) evalMissingSome(n *ast.Node) error {
	return ev0.pushWork(ev0.stepCombineN(2, func(vs []value.Value) (value.Value, error) {
		required := int(vs[0].ToNumber())
		paths, _ := vs[1].AsArray()
		var missing []value.Value
		found := 0
		for _, pv := range paths {
			path, _ := pv.AsString()
			if _, ok := varpath.Resolve(ev0.data, path); ok {
				found++
			} else {
				missing = append(missing, pv)
			}
		}
		if found >= required {
			return value.Array(nil), nil
		}
		return value.Array(missing), nil
	}, n.Args[0], n.Args[1]))
}

func evalIndex(collection, key value.Value) (value.Value, error) {
	switch collection.Kind() {
	case value.KindArray:
		arr, _ := collection.AsArray()
		idx := int(key.ToNumber())
		if idx < 0 || idx >= len(arr) {
			return value.Null(), nil
		}
		return arr[idx], nil
	case value.KindObject:
		obj, _ := collection.AsObject()
		k, _ := key.AsString()
		v, ok := obj[k]
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	default:
		return value.Null(), nil
	}
}
