package bytecode

import (
	"testing"

	"ruleforge/internal/ast"
	"ruleforge/internal/jsonlogic"
	"ruleforge/internal/value"
)

func compileAndRun(t *testing.T, src string, data value.Value) value.Value {
	t.Helper()
	n, err := jsonlogic.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	prog, err := Compile(n)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := Run(prog, data)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return v
}

func TestVMChainedComparison(t *testing.T) {
	n := ast.Comparison(ast.OpLt, ast.Literal(value.Int(1)), ast.Literal(value.Int(5)), ast.Literal(value.Int(10)))
	prog, err := Compile(n)
	if err != nil {
		t.Fatal(err)
	}
	v, err := Run(prog, value.Object(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsTruthy() {
		t.Error("expected true")
	}

	n2 := ast.Comparison(ast.OpLt, ast.Literal(value.Int(1)), ast.Literal(value.Int(5)), ast.Literal(value.Int(3)))
	prog2, err := Compile(n2)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := Run(prog2, value.Object(nil))
	if err != nil {
		t.Fatal(err)
	}
	if v2.IsTruthy() {
		t.Error("expected false")
	}
}

func TestVMArithmeticTypePreservation(t *testing.T) {
	v := compileAndRun(t, `{"+":[2,3]}`, value.Object(nil))
	if v.Kind() != value.KindInt || v.ToNumber() != 5 {
		t.Errorf("expected int 5, got %v", v)
	}
}

func TestVMDeeplyNested(t *testing.T) {
	v := compileAndRun(t, `{"/":[{"-":[{"*":[{"+":[{"var":"x"},1]},2]},3]},2]}`, value.Object(map[string]value.Value{"x": value.Int(5)}))
	if v.ToNumber() != 4.5 {
		t.Errorf("got %v want 4.5", v.ToNumber())
	}
}

func TestVMDivisionByZero(t *testing.T) {
	n, _ := jsonlogic.Parse([]byte(`{"/":[1,0]}`))
	prog, err := Compile(n)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Run(prog, value.Object(nil)); err == nil {
		t.Error("expected division by zero error")
	}
}

func TestArrayOpsNotCompiled(t *testing.T) {
	n, _ := jsonlogic.Parse([]byte(`{"map":[[1,2,3],{"+":[{"var":""},1]}]}`))
	if _, err := Compile(n); err == nil {
		t.Error("expected CompilationError for array ops")
	}
}

func TestVMIfBranchSelection(t *testing.T) {
	v := compileAndRun(t, `{"if":[true,"a","b"]}`, value.Object(nil))
	if s, _ := v.AsString(); s != "a" {
		t.Errorf("got %v want a", v)
	}
	v2 := compileAndRun(t, `{"if":[false,"a","b"]}`, value.Object(nil))
	if s, _ := v2.AsString(); s != "b" {
		t.Errorf("got %v want b", v2)
	}
}

func TestVMAndOrShortCircuit(t *testing.T) {
	v := compileAndRun(t, `{"and":[{"var":"x"},false]}`, value.Object(map[string]value.Value{"x": value.Int(99)}))
	if v.IsTruthy() {
		t.Error("and(x,false) must be falsy")
	}
	v2 := compileAndRun(t, `{"or":[{"var":"x"},true]}`, value.Object(map[string]value.Value{"x": value.Int(0)}))
	if !v2.IsTruthy() {
		t.Error("or(x,true) must be truthy")
	}
}
