package executor

import (
	"context"
	"testing"

	"ruleforge/internal/rerr"
	"ruleforge/internal/rule"
	"ruleforge/internal/value"
)

func jsonRule(id string, inputs, outputs []string, orderIndex int, expr map[string]interface{}) *rule.Rule {
	return &rule.Rule{
		ID: id, Inputs: inputs, Outputs: outputs, OrderIndex: orderIndex,
		Enabled: true, ExpressionJSON: expr,
	}
}

func mustFloat(t *testing.T, res *ExecutionResult, path string) float64 {
	t.Helper()
	v, ok := res.GetOutput(path)
	if !ok {
		t.Fatalf("output %q not found", path)
	}
	return v.ToNumber()
}

func TestSimpleExecution(t *testing.T) {
	rules := []*rule.Rule{
		jsonRule("double", []string{"input"}, []string{"doubled"}, 0,
			map[string]interface{}{"*": []interface{}{map[string]interface{}{"var": "input"}, 2.0}}),
	}
	e := New(0)
	ctx := rule.NewExecutionContext(map[string]value.Value{"input": value.Int(21)})
	res, err := e.Execute(context.Background(), rules, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if mustFloat(t, res, "doubled") != 42 {
		t.Errorf("got %v", mustFloat(t, res, "doubled"))
	}
}

func TestChainedExecution(t *testing.T) {
	rules := []*rule.Rule{
		jsonRule("r1", []string{"input"}, []string{"a"}, 0, jlAdd("input", 10)),
		jsonRule("r2", []string{"a"}, []string{"b"}, 0, jlMul("a", 2)),
		jsonRule("r3", []string{"b"}, []string{"c"}, 0, jlAdd("b", -5)),
	}
	e := New(0)
	ctx := rule.NewExecutionContext(map[string]value.Value{"input": value.Int(5)})
	res, err := e.Execute(context.Background(), rules, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if mustFloat(t, res, "a") != 15 || mustFloat(t, res, "b") != 30 || mustFloat(t, res, "c") != 25 {
		t.Errorf("got a=%v b=%v c=%v", mustFloat(t, res, "a"), mustFloat(t, res, "b"), mustFloat(t, res, "c"))
	}
}

func jlAdd(path string, n float64) map[string]interface{} {
	return map[string]interface{}{"+": []interface{}{map[string]interface{}{"var": path}, n}}
}

func jlMul(path string, n float64) map[string]interface{} {
	return map[string]interface{}{"*": []interface{}{map[string]interface{}{"var": path}, n}}
}

func diamondRules() []*rule.Rule {
	return []*rule.Rule{
		jsonRule("base", []string{"input"}, []string{"a"}, 0, map[string]interface{}{"var": "input"}),
		jsonRule("left", []string{"a"}, []string{"b"}, 0, jlAdd("a", 1)),
		jsonRule("right", []string{"a"}, []string{"c"}, 1, jlAdd("a", 2)),
		jsonRule("final", []string{"b", "c"}, []string{"d"}, 0,
			map[string]interface{}{"+": []interface{}{map[string]interface{}{"var": "b"}, map[string]interface{}{"var": "c"}}}),
	}
}

func TestExecutionLevelsDiamond(t *testing.T) {
	rules := diamondRules()
	e := New(0)
	ctx := rule.NewExecutionContext(map[string]value.Value{"input": value.Int(10)})
	res, err := e.Execute(context.Background(), rules, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Levels) != 3 || len(res.Levels[0]) != 1 || len(res.Levels[1]) != 2 || len(res.Levels[2]) != 1 {
		t.Fatalf("unexpected levels: %v", res.Levels)
	}
	if mustFloat(t, res, "d") != 23 {
		t.Errorf("got %v want 23", mustFloat(t, res, "d"))
	}
}

func TestParallelVsSequentialSameResult(t *testing.T) {
	rules := diamondRules()

	eParallel := New(0)
	ctxParallel := rule.NewExecutionContext(map[string]value.Value{"input": value.Int(10)})
	resParallel, err := eParallel.Execute(context.Background(), rules, ctxParallel)
	if err != nil {
		t.Fatal(err)
	}

	eSequential := New(0)
	ctxSequential := rule.NewExecutionContext(map[string]value.Value{"input": value.Int(10)})
	resSequential, err := eSequential.ExecuteSequential(context.Background(), rules, ctxSequential)
	if err != nil {
		t.Fatal(err)
	}

	if mustFloat(t, resParallel, "d") != mustFloat(t, resSequential, "d") {
		t.Error("parallel and sequential execution must agree")
	}
	if mustFloat(t, resParallel, "d") != 23 {
		t.Errorf("got %v want 23", mustFloat(t, resParallel, "d"))
	}
}

func TestMissingDependencyError(t *testing.T) {
	rules := []*rule.Rule{
		jsonRule("r1", []string{"missing_input"}, []string{"result"}, 0, jlAdd("missing_input", 10)),
	}
	e := New(0)
	ctx := rule.NewExecutionContext(map[string]value.Value{"other_input": value.Int(5)})
	_, err := e.Execute(context.Background(), rules, ctx)
	if err == nil {
		t.Fatal("expected MissingDependencies")
	}
	md, ok := err.(*rerr.MissingDependencies)
	if !ok {
		t.Fatalf("expected *rerr.MissingDependencies, got %T", err)
	}
	if len(md.Pairs) != 1 || md.Pairs[0].Path != "missing_input" {
		t.Errorf("got %v", md.Pairs)
	}
}

func TestDependencySatisfiedByOtherRule(t *testing.T) {
	rules := []*rule.Rule{
		jsonRule("rule_a", []string{"input"}, []string{"intermediate"}, 0, jlAdd("input", 10)),
		jsonRule("rule_b", []string{"intermediate"}, []string{"result"}, 0, jlMul("intermediate", 2)),
	}
	e := New(0)
	ctx := rule.NewExecutionContext(map[string]value.Value{"input": value.Int(5)})
	res, err := e.Execute(context.Background(), rules, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if mustFloat(t, res, "intermediate") != 15 || mustFloat(t, res, "result") != 30 {
		t.Errorf("got intermediate=%v result=%v", mustFloat(t, res, "intermediate"), mustFloat(t, res, "result"))
	}
}

func TestMultipleRuleFailuresAggregated(t *testing.T) {
	rules := []*rule.Rule{
		jsonRule("bad1", []string{"x"}, []string{"a"}, 0,
			map[string]interface{}{"/": []interface{}{map[string]interface{}{"var": "x"}, 0.0}}),
		jsonRule("bad2", []string{"x"}, []string{"b"}, 1,
			map[string]interface{}{"%": []interface{}{map[string]interface{}{"var": "x"}, 0.0}}),
	}
	e := New(0)
	ctx := rule.NewExecutionContext(map[string]value.Value{"x": value.Int(10)})
	_, err := e.Execute(context.Background(), rules, ctx)
	if err == nil {
		t.Fatal("expected MultipleRuleFailures")
	}
	mrf, ok := err.(*rerr.MultipleRuleFailures)
	if !ok {
		t.Fatalf("expected *rerr.MultipleRuleFailures, got %T", err)
	}
	if len(mrf.Failures) != 2 {
		t.Errorf("expected 2 failures, got %d", len(mrf.Failures))
	}
}

func TestCompileRulesCachesAcrossExecutes(t *testing.T) {
	rules := []*rule.Rule{
		jsonRule("r1", []string{"x"}, []string{"y"}, 0, jlAdd("x", 1)),
	}
	e := New(0)
	if err := e.CompileRules(rules); err != nil {
		t.Fatal(err)
	}
	ctx := rule.NewExecutionContext(map[string]value.Value{"x": value.Int(1)})
	res, err := e.Execute(context.Background(), rules, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if mustFloat(t, res, "y") != 2 {
		t.Errorf("got %v", mustFloat(t, res, "y"))
	}
}
