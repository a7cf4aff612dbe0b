package bytecode

import (
	"encoding/binary"

	"ruleforge/internal/rerr"
	"ruleforge/internal/value"
	"ruleforge/internal/varpath"
)

// MaxStackDepth bounds the VM's evaluation stack (spec.md §4.7: "bounded
// evaluation stack (default ~1024)").
const MaxStackDepth = 1024

type vm struct {
	prog  *Program
	stack []value.Value
	pc    int
	data  value.Value
}

// Run executes a compiled Program against data.
func Run(prog *Program, data value.Value) (value.Value, error) {
	m := &vm{prog: prog, data: data}
	for {
		if m.pc >= len(m.prog.Code) {
			return value.Null(), &rerr.InvalidBytecode{Reason: "program counter ran off the end without a return"}
		}
		op := OpCode(m.prog.Code[m.pc])
		m.pc++
		switch op {
		case OpReturn:
			return m.pop()
		case OpLoadConst:
			idx := m.readU16()
			if err := m.push(m.prog.Constants[idx]); err != nil {
				return value.Null(), err
			}
		case OpLoadVar:
			idx := m.readU16()
			v, ok := varpath.Resolve(m.data, m.prog.VarNames[idx])
			if !ok {
				return value.Null(), &rerr.VariableNotFound{Path: m.prog.VarNames[idx]}
			}
			if err := m.push(v); err != nil {
				return value.Null(), err
			}
		case OpLoadVarWithDefault:
			idx := m.readU16()
			defIdx := m.readU16()
			v, ok := varpath.Resolve(m.data, m.prog.VarNames[idx])
			if !ok || v.IsNull() {
				v = m.prog.Constants[defIdx]
			}
			if err := m.push(v); err != nil {
				return value.Null(), err
			}
		case OpDup:
			v, err := m.peek()
			if err != nil {
				return value.Null(), err
			}
			if err := m.push(v); err != nil {
				return value.Null(), err
			}
		case OpPop:
			if _, err := m.pop(); err != nil {
				return value.Null(), err
			}
		case OpNot:
			v, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if err := m.push(value.Bool(!v.IsTruthy())); err != nil {
				return value.Null(), err
			}
		case OpToBool:
			v, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if err := m.push(v.ToBool()); err != nil {
				return value.Null(), err
			}
		case OpNegate:
			v, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if err := m.push(value.Negate(v)); err != nil {
				return value.Null(), err
			}
		case OpEq, OpStrictEq, OpNe, OpStrictNe, OpLt, OpLe, OpGt, OpGe:
			b, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			a, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if err := m.push(value.Bool(compare(op, a, b))); err != nil {
				return value.Null(), err
			}
		case OpAnd:
			b, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			a, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if !a.IsTruthy() {
				if err := m.push(a); err != nil {
					return value.Null(), err
				}
			} else {
				if err := m.push(b); err != nil {
					return value.Null(), err
				}
			}
		case OpOr:
			b, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			a, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if a.IsTruthy() {
				if err := m.push(a); err != nil {
					return value.Null(), err
				}
			} else {
				if err := m.push(b); err != nil {
					return value.Null(), err
				}
			}
		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
			b, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			a, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			v, err := arith(op, a, b)
			if err != nil {
				return value.Null(), err
			}
			if err := m.push(v); err != nil {
				return value.Null(), err
			}
		case OpMin, OpMax:
			n := int(m.prog.Code[m.pc])
			m.pc++
			vs, err := m.popN(n)
			if err != nil {
				return value.Null(), err
			}
			if op == OpMin {
				if err := m.push(value.Min(vs...)); err != nil {
					return value.Null(), err
				}
			} else {
				if err := m.push(value.Max(vs...)); err != nil {
					return value.Null(), err
				}
			}
		case OpCat:
			n := int(m.prog.Code[m.pc])
			m.pc++
			vs, err := m.popN(n)
			if err != nil {
				return value.Null(), err
			}
			out := ""
			for _, v := range vs {
				out += v.ToDisplayString()
			}
			if err := m.push(value.String(out)); err != nil {
				return value.Null(), err
			}
		case OpSubstr:
			n := int(m.prog.Code[m.pc])
			m.pc++
			vs, err := m.popN(n)
			if err != nil {
				return value.Null(), err
			}
			v, err := substr(vs)
			if err != nil {
				return value.Null(), err
			}
			if err := m.push(v); err != nil {
				return value.Null(), err
			}
		case OpIn:
			b, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			a, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if err := m.push(value.Bool(inOp(a, b))); err != nil {
				return value.Null(), err
			}
		case OpJump:
			delta := m.readU16()
			m.pc += delta
		case OpJumpIfFalse:
			delta := m.readU16()
			v, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if !v.IsTruthy() {
				m.pc += delta
			}
		case OpJumpIfTrue:
			delta := m.readU16()
			v, err := m.pop()
			if err != nil {
				return value.Null(), err
			}
			if v.IsTruthy() {
				m.pc += delta
			}
		default:
			return value.Null(), &rerr.InvalidBytecode{Reason: "unknown opcode"}
		}
	}
}

func (m *vm) readU16() int {
	v := binary.BigEndian.Uint16(m.prog.Code[m.pc : m.pc+2])
	m.pc += 2
	return int(v)
}

func (m *vm) push(v value.Value) error {
	if len(m.stack) >= MaxStackDepth {
		return &rerr.StackOverflow{Limit: MaxStackDepth}
	}
	m.stack = append(m.stack, v)
	return nil
}

func (m *vm) pop() (value.Value, error) {
	if len(m.stack) == 0 {
		return value.Null(), &rerr.StackUnderflow{}
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func (m *vm) peek() (value.Value, error) {
	if len(m.stack) == 0 {
		return value.Null(), &rerr.StackUnderflow{}
	}
	return m.stack[len(m.stack)-1], nil
}

func (m *vm) popN(n int) ([]value.Value, error) {
	if len(m.stack) < n {
		return nil, &rerr.StackUnderflow{}
	}
	vs := make([]value.Value, n)
	copy(vs, m.stack[len(m.stack)-n:])
	m.stack = m.stack[:len(m.stack)-n]
	return vs, nil
}

func compare(op OpCode, a, b value.Value) bool {
	switch op {
	case OpEq:
		return a.LooseEquals(b)
	case OpStrictEq:
		return a.StrictEquals(b)
	case OpNe:
		return !a.LooseEquals(b)
	case OpStrictNe:
		return !a.StrictEquals(b)
	}
	ord, ok := a.Compare(b)
	if !ok {
		return false
	}
	switch op {
	case OpLt:
		return ord == value.Less
	case OpLe:
		return ord != value.Greater
	case OpGt:
		return ord == value.Greater
	case OpGe:
		return ord != value.Less
	}
	return false
}

// arith dispatches on value kinds per spec.md §4.7: int⊕int->int (except
// division, always float), int⊕float->float, both-decimal->decimal, else
// documented coercion; this is the VM's type-preserving tier, distinct from
// the iterative evaluator's always-float arithmetic (DESIGN.md deviation
// #3).
func arith(op OpCode, a, b value.Value) (value.Value, error) {
	switch op {
	case OpAdd:
		return value.Add(a, b), nil
	case OpSub:
		return value.Sub(a, b), nil
	case OpMul:
		return value.Mul(a, b), nil
	case OpDiv:
		return value.Div(a, b)
	case OpMod:
		return value.Mod(a, b)
	case OpPow:
		return value.Float(value.Pow(a.ToNumber(), b.ToNumber())), nil
	}
	return value.Null(), &rerr.RuntimeError{Reason: "unreachable arithmetic opcode"}
}

func substr(vs []value.Value) (value.Value, error) {
	s := vs[0].ToDisplayString()
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

func inOp(needle, haystack value.Value) bool {
	if arr, ok := haystack.AsArray(); ok {
		for _, e := range arr {
			if e.LooseEquals(needle) {
				return true
			}
		}
		return false
	}
	if s, ok := haystack.AsString(); ok {
		sub := needle.ToDisplayString()
		if sub == "" {
			return true
		}
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
	}
	return false
}
