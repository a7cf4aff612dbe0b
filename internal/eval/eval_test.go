package eval

import (
	"testing"

	"ruleforge/internal/ast"
	"ruleforge/internal/jsonlogic"
	"ruleforge/internal/value"
)

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	n, err := jsonlogic.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return n
}

func TestChainedComparison(t *testing.T) {
	n := ast.Comparison(ast.OpLt, ast.Literal(value.Int(1)), ast.Literal(value.Int(5)), ast.Literal(value.Int(10)))
	v, err := Eval(n, value.Object(nil), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsTruthy() {
		t.Error("1 < 5 < 10 should be true")
	}

	n2 := ast.Comparison(ast.OpLt, ast.Literal(value.Int(1)), ast.Literal(value.Int(5)), ast.Literal(value.Int(3)))
	v2, err := Eval(n2, value.Object(nil), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if v2.IsTruthy() {
		t.Error("1 < 5 < 3 should be false")
	}
}

func TestVariableWithDefault(t *testing.T) {
	n := mustParse(t, `{"var":["missing",42]}`)
	cases := []struct {
		name string
		data value.Value
		want int64
	}{
		{"absent", value.Object(map[string]value.Value{}), 42},
		{"explicit null", value.Object(map[string]value.Value{"missing": value.Null()}), 42},
		{"present", value.Object(map[string]value.Value{"missing": value.Int(7)}), 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Eval(n, tc.data, DefaultLimits())
			if err != nil {
				t.Fatal(err)
			}
			if got, _ := v.AsInt(); got != tc.want {
				t.Errorf("got %v want %d", v, tc.want)
			}
		})
	}
}

func TestSubstrNegativeStart(t *testing.T) {
	n := mustParse(t, `{"substr":["Hello World",-5]}`)
	v, err := Eval(n, value.Object(nil), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := v.AsString(); s != "World" {
		t.Errorf("got %q want World", s)
	}

	n2 := mustParse(t, `{"substr":["Hello World",0,5]}`)
	v2, err := Eval(n2, value.Object(nil), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := v2.AsString(); s != "Hello" {
		t.Errorf("got %q want Hello", s)
	}
}

func TestDeeplyNested(t *testing.T) {
	// ((((x+1)*2)-3)/2) with x=5 -> 4.5
	n := mustParse(t, `{"/":[{"-":[{"*":[{"+":[{"var":"x"},1]},2]},3]},2]}`)
	v, err := Eval(n, value.Object(map[string]value.Value{"x": value.Int(5)}), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if v.ToNumber() != 4.5 {
		t.Errorf("got %v want 4.5", v.ToNumber())
	}
}

func TestDivisionByZero(t *testing.T) {
	n := mustParse(t, `{"/":[1,0]}`)
	if _, err := Eval(n, value.Object(nil), DefaultLimits()); err == nil {
		t.Error("expected DivisionByZero")
	}
	n2 := mustParse(t, `{"%":[1,0]}`)
	if _, err := Eval(n2, value.Object(nil), DefaultLimits()); err == nil {
		t.Error("expected DivisionByZero")
	}
}

func TestShortCircuitAndOr(t *testing.T) {
	n := mustParse(t, `{"and":[{"var":"x"},false]}`)
	v, err := Eval(n, value.Object(map[string]value.Value{"x": value.Int(99)}), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if v.IsTruthy() {
		t.Error("and(x,false) must be falsy")
	}

	n2 := mustParse(t, `{"or":[{"var":"x"},true]}`)
	v2, err := Eval(n2, value.Object(map[string]value.Value{"x": value.Int(0)}), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if !v2.IsTruthy() {
		t.Error("or(x,true) must be truthy")
	}
}

func TestIfBranchSelection(t *testing.T) {
	n := mustParse(t, `{"if":[true,"then-val","else-val"]}`)
	v, err := Eval(n, value.Object(nil), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := v.AsString(); s != "then-val" {
		t.Errorf("got %q want then-val", s)
	}

	n2 := mustParse(t, `{"if":[false,"then-val","else-val"]}`)
	v2, err := Eval(n2, value.Object(nil), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := v2.AsString(); s != "else-val" {
		t.Errorf("got %q want else-val", s)
	}
}

func TestArrayMapFilterReduce(t *testing.T) {
	n := mustParse(t, `{"map":[[1,2,3],{"+":[{"var":""},1]}]}`)
	v, err := Eval(n, value.Object(nil), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	arr, _ := v.AsArray()
	if len(arr) != 3 || arr[0].ToNumber() != 2 {
		t.Errorf("got %v", v)
	}

	n2 := mustParse(t, `{"reduce":[[1,2,3],{"+":[{"var":"accumulator"},{"var":"current"}]},0]}`)
	v2, err := Eval(n2, value.Object(nil), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if v2.ToNumber() != 6 {
		t.Errorf("got %v want 6", v2)
	}
}
