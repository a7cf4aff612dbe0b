package bytecode

import (
	"encoding/binary"

	"ruleforge/internal/ast"
	"ruleforge/internal/rerr"
	"ruleforge/internal/value"
)

// Program is the compiled artifact: a byte vector of opcodes and inline
// operands, a deduplicated constant pool, a variable-path-to-index map, and
// the ordered list of variable names (spec.md §4.6).
type Program struct {
	Code      []byte
	Constants []value.Value
	VarIndex  map[string]int
	VarNames  []string
}

type compiler struct {
	code      []byte
	constants []value.Value
	varIndex  map[string]int
	varNames  []string
}

// Compile lowers an AST to bytecode. Array operators other than `in`, and
// missing/missing_some, are not compiled — CompilationError — so the tiered facade
// falls back to the iterative evaluator for those (spec.md §4.6).
func Compile(n *ast.Node) (*Program, error) {
	c := &compiler{varIndex: map[string]int{}}
	if err := c.compileNode(n); err != nil {
		return nil, err
	}
	c.emit(OpReturn)
	return &Program{Code: c.code, Constants: c.constants, VarIndex: c.varIndex, VarNames: c.varNames}, nil
}

func (c *compiler) emit(op OpCode) int {
	c.code = append(c.code, byte(op))
	return len(c.code) - 1
}

func (c *compiler) emitU8(v int) { c.code = append(c.code, byte(v)) }

func (c *compiler) emitU16(v int) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	c.code = append(c.code, b[:]...)
}

// patchU16 overwrites the u16 at byte offset pos with v.
func (c *compiler) patchU16(pos int, v int) {
	binary.BigEndian.PutUint16(c.code[pos:pos+2], uint16(v))
}

func (c *compiler) constIndex(v value.Value) int {
	for i, existing := range c.constants {
		if existing.StrictEquals(v) {
			return i
		}
	}
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

func (c *compiler) varIdx(path string) int {
	if idx, ok := c.varIndex[path]; ok {
		return idx
	}
	idx := len(c.varNames)
	c.varIndex[path] = idx
	c.varNames = append(c.varNames, path)
	return idx
}

func (c *compiler) compileNode(n *ast.Node) error {
	switch n.Kind {
	case ast.KindLiteral:
		c.emit(OpLoadConst)
		c.emitU16(c.constIndex(n.Literal))
		return nil
	case ast.KindVar:
		idx := c.varIdx(n.VarPath)
		if n.VarDefault == nil {
			c.emit(OpLoadVar)
			c.emitU16(idx)
			return nil
		}
		if n.VarDefault.Kind != ast.KindLiteral {
			return &rerr.CompilationError{Reason: "variable default must be a literal to compile"}
		}
		c.emit(OpLoadVarWithDefault)
		c.emitU16(idx)
		c.emitU16(c.constIndex(n.VarDefault.Literal))
		return nil
	case ast.KindNot:
		return c.compileUnary(n.Args[0], OpNot)
	case ast.KindToBool:
		return c.compileUnary(n.Args[0], OpToBool)
	case ast.KindNegate:
		return c.compileUnary(n.Args[0], OpNegate)
	case ast.KindAnd:
		return c.compileShortCircuit(n.Args, true)
	case ast.KindOr:
		return c.compileShortCircuit(n.Args, false)
	case ast.KindIf:
		return c.compileIf(n.Args)
	case ast.KindComparison:
		return c.compileComparison(n)
	case ast.KindArith:
		return c.compileArith(n)
	case ast.KindMin:
		return c.compileNAry(n.Args, OpMin)
	case ast.KindMax:
		return c.compileNAry(n.Args, OpMax)
	case ast.KindCat:
		return c.compileNAry(n.Args, OpCat)
	case ast.KindSubstr:
		return c.compileNAry(n.Args, OpSubstr)
	case ast.KindArrayOp:
		if n.ArrayOp == ast.ArrayIn {
			if err := c.compileNode(n.Args[0]); err != nil {
				return err
			}
			if err := c.compileNode(n.Args[1]); err != nil {
				return err
			}
			c.emit(OpIn)
			return nil
		}
		return &rerr.CompilationError{Reason: "array operators are not compiled to bytecode"}
	case ast.KindMissing, ast.KindMissingSome:
		return &rerr.CompilationError{Reason: "missing/missing_some are not compiled to bytecode"}
	case ast.KindLog:
		return c.compileNode(n.Args[0])
	default:
		return &rerr.CompilationError{Reason: "unsupported node kind for bytecode compilation"}
	}
}

func (c *compiler) compileUnary(arg *ast.Node, op OpCode) error {
	if err := c.compileNode(arg); err != nil {
		return err
	}
	c.emit(op)
	return nil
}

func (c *compiler) compileNAry(args []*ast.Node, op OpCode) error {
	if len(args) > 255 {
		return &rerr.CompilationError{Reason: "too many operands for a single bytecode instruction"}
	}
	for _, a := range args {
		if err := c.compileNode(a); err != nil {
			return err
		}
	}
	c.emit(op)
	c.emitU8(len(args))
	return nil
}

// compileArith left-folds the operator across all operands, including Sub:
// unlike the original, which silently dropped any 3rd+ Sub operand, this
// compiles a - b - c - ... the same way Add/Mul do (DESIGN.md deviation #1).
func (c *compiler) compileArith(n *ast.Node) error {
	if len(n.Args) == 1 && n.ArithOp == ast.OpSub {
		return c.compileUnary(n.Args[0], OpNegate)
	}
	op := arithOpCode(n.ArithOp)
	if err := c.compileNode(n.Args[0]); err != nil {
		return err
	}
	for _, a := range n.Args[1:] {
		if err := c.compileNode(a); err != nil {
			return err
		}
		c.emit(op)
	}
	return nil
}

func arithOpCode(op ast.ArithOp) OpCode {
	switch op {
	case ast.OpAdd:
		return OpAdd
	case ast.OpSub:
		return OpSub
	case ast.OpMul:
		return OpMul
	case ast.OpDiv:
		return OpDiv
	case ast.OpMod:
		return OpMod
	case ast.OpPow:
		return OpPow
	}
	return OpNoOp
}

// compileShortCircuit lowers and/or to: evaluate operand, dup, to-bool,
// jump-if-false/true to end, pop intermediate, evaluate next (spec.md
// §4.6). Jump offsets are u16 deltas from the end of the jump instruction.
func (c *compiler) compileShortCircuit(args []*ast.Node, isAnd bool) error {
	var jumpEnds []int
	for i, a := range args {
		if err := c.compileNode(a); err != nil {
			return err
		}
		if i == len(args)-1 {
			break
		}
		c.emit(OpDup)
		c.emit(OpToBool)
		jumpOp := OpJumpIfFalse
		if !isAnd {
			jumpOp = OpJumpIfTrue
		}
		c.emit(jumpOp)
		pos := len(c.code)
		c.emitU16(0) // patched below
		jumpEnds = append(jumpEnds, pos)
		c.emit(OpPop)
	}
	end := len(c.code)
	for _, pos := range jumpEnds {
		c.patchU16(pos, end-(pos+2))
	}
	return nil
}

// compileIf lowers an if-chain via standard forward-patching: each
// condition jumps over its then-branch on false; each then-branch jumps to
// the very end after executing.
func (c *compiler) compileIf(branches []*ast.Node) error {
	var endJumps []int
	i := 0
	for i+1 < len(branches) {
		cond, then := branches[i], branches[i+1]
		if err := c.compileNode(cond); err != nil {
			return err
		}
		c.emit(OpJumpIfFalse)
		falsePos := len(c.code)
		c.emitU16(0)
		if err := c.compileNode(then); err != nil {
			return err
		}
		c.emit(OpJump)
		endPos := len(c.code)
		c.emitU16(0)
		endJumps = append(endJumps, endPos)
		c.patchU16(falsePos, len(c.code)-(falsePos+2))
		i += 2
	}
	if err := c.compileNode(branches[len(branches)-1]); err != nil {
		return err
	}
	end := len(c.code)
	for _, pos := range endJumps {
		c.patchU16(pos, end-(pos+2))
	}
	return nil
}

var compareOpCode = map[ast.CompareOp]OpCode{
	ast.OpEq: OpEq, ast.OpStrictEq: OpStrictEq, ast.OpNe: OpNe, ast.OpStrictNe: OpStrictNe,
	ast.OpLt: OpLt, ast.OpLe: OpLe, ast.OpGt: OpGt, ast.OpGe: OpGe,
}

// compileComparison compiles a (possibly chained) comparison with proper
// short-circuit jump-patched bytecode. a<b<c lowers to the conjunction
// (a<b) and (b<c): since expressions are pure, the shared middle operand is
// simply re-emitted for each pairwise comparison rather than juggled on the
// stack — trivially correct, unlike the original's self-documented
// simplified/unsafe chain lowering (DESIGN.md deviation #2).
func (c *compiler) compileComparison(n *ast.Node) error {
	op := compareOpCode[n.CompareOp]
	if len(n.Args) == 2 {
		if err := c.compileNode(n.Args[0]); err != nil {
			return err
		}
		if err := c.compileNode(n.Args[1]); err != nil {
			return err
		}
		c.emit(op)
		return nil
	}
	pairs := make([]*ast.Node, 0, len(n.Args)-1)
	for i := 0; i+1 < len(n.Args); i++ {
		pairs = append(pairs, ast.Comparison(n.CompareOp, n.Args[i], n.Args[i+1]))
	}
	return c.compileShortCircuit(pairs, true)
}
