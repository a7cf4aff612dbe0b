package tiered

import (
	"testing"

	"ruleforge/internal/eval"
	"ruleforge/internal/jsonlogic"
	"ruleforge/internal/value"
)

func TestBelowThresholdRunsInterpreter(t *testing.T) {
	f := New(5)
	n, err := jsonlogic.Parse([]byte(`{"+":[1,2]}`))
	if err != nil {
		t.Fatal(err)
	}
	v, err := f.Eval("simple", n, value.Object(nil), eval.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if v.ToNumber() != 3 {
		t.Errorf("got %v want 3", v)
	}
	if f.HasBytecode("simple") {
		t.Error("expression below threshold should not compile to bytecode")
	}
}

func TestAboveThresholdCompiles(t *testing.T) {
	f := New(5)
	src := `{"+":[{"var":"a"},{"var":"b"},{"var":"c"},{"var":"d"},{"var":"e"},{"var":"f"}]}`
	n, err := jsonlogic.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	data := value.Object(map[string]value.Value{
		"a": value.Int(1), "b": value.Int(2), "c": value.Int(3),
		"d": value.Int(4), "e": value.Int(5), "f": value.Int(6),
	})
	v, err := f.Eval(src, n, data, eval.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if v.ToNumber() != 21 {
		t.Errorf("got %v want 21", v)
	}
	if !f.HasBytecode(src) {
		t.Error("expression above threshold should compile to bytecode")
	}
}

func TestArrayOpsFallBackToInterpreter(t *testing.T) {
	f := New(5)
	src := `{"map":[[1,2,3,4,5,6],{"+":[{"var":""},1]}]}`
	n, err := jsonlogic.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	v, err := f.Eval(src, n, value.Object(nil), eval.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	arr, _ := v.AsArray()
	if len(arr) != 6 {
		t.Errorf("expected 6 elements, got %v", v)
	}
	if f.HasBytecode(src) {
		t.Error("array ops must never compile to bytecode")
	}
}

func TestCacheReusesCompiledProgram(t *testing.T) {
	f := New(2)
	src := `{"+":[1,2,3]}`
	n, err := jsonlogic.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Eval(src, n, value.Object(nil), eval.DefaultLimits()); err != nil {
		t.Fatal(err)
	}
	nc1 := f.NodeCount(src, n)
	first := f.prepare(src, n)
	if first.program == nil {
		t.Fatal("expected the expression to be compiled to bytecode")
	}
	if _, err := f.Eval(src, n, value.Object(nil), eval.DefaultLimits()); err != nil {
		t.Fatal(err)
	}
	if f.prepare(src, n) != first {
		t.Error("second evaluation should reuse the cached compiled program")
	}
	nc2 := f.NodeCount(src, n)
	if nc1 != nc2 {
		t.Error("node count should be stable across cached evaluations")
	}
}
