package validator

import (
	"testing"

	"ruleforge/internal/rerr"
	"ruleforge/internal/rule"
)

func vr(id string, inputs, outputs []string, orderIndex int, enabled bool, expr map[string]interface{}) *rule.Rule {
	return &rule.Rule{
		ID: id, Inputs: inputs, Outputs: outputs, OrderIndex: orderIndex,
		Enabled: enabled, ExpressionJSON: expr,
	}
}

func addExpr(path string, n float64) map[string]interface{} {
	return map[string]interface{}{"+": []interface{}{map[string]interface{}{"var": path}, n}}
}

func TestEmptyRuleSet(t *testing.T) {
	res := Validate(nil)
	if res.Valid() {
		t.Fatal("expected empty rule set to be invalid")
	}
	if _, ok := res.Errors[0].Err.(*rerr.EmptyRuleSet); !ok {
		t.Errorf("expected EmptyRuleSet, got %T", res.Errors[0].Err)
	}
}

func TestValidChainProducesLevels(t *testing.T) {
	rules := []*rule.Rule{
		vr("r1", []string{"input"}, []string{"a"}, 0, true, addExpr("input", 1)),
		vr("r2", []string{"a"}, []string{"b"}, 0, true, addExpr("a", 1)),
	}
	res := Validate(rules)
	if !res.Valid() {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if len(res.Levels) != 2 {
		t.Fatalf("expected 2 levels, got %v", res.Levels)
	}
}

func TestInvalidSyntaxCollected(t *testing.T) {
	rules := []*rule.Rule{
		vr("bad", []string{"x"}, []string{"y"}, 0, true, map[string]interface{}{"nonexistent_op": []interface{}{1, 2}}),
	}
	res := Validate(rules)
	if res.Valid() {
		t.Fatal("expected invalid syntax to fail validation")
	}
	found := false
	for _, e := range res.Errors {
		if _, ok := e.Err.(*rerr.InvalidSyntax); ok {
			found = true
		}
	}
	if !found {
		t.Errorf("expected InvalidSyntax among errors, got %v", res.Errors)
	}
}

func TestDuplicateOutputDetectedWithoutCycle(t *testing.T) {
	rules := []*rule.Rule{
		vr("r1", []string{"input"}, []string{"shared"}, 0, true, addExpr("input", 1)),
		vr("r2", []string{"input"}, []string{"shared"}, 1, true, addExpr("input", 2)),
	}
	res := Validate(rules)
	if res.Valid() {
		t.Fatal("expected duplicate output to fail validation")
	}
	dup, ok := res.Errors[0].Err.(*rerr.DuplicateOutput)
	if !ok {
		t.Fatalf("expected DuplicateOutput, got %T", res.Errors[0].Err)
	}
	if dup.Path != "shared" || len(dup.RuleIDs) != 2 {
		t.Errorf("got %v", dup)
	}
}

func TestCyclicDependencyDetected(t *testing.T) {
	rules := []*rule.Rule{
		vr("r1", []string{"y"}, []string{"x"}, 0, true, addExpr("y", 1)),
		vr("r2", []string{"x"}, []string{"y"}, 0, true, addExpr("x", 1)),
	}
	res := Validate(rules)
	if res.Valid() {
		t.Fatal("expected cycle to fail validation")
	}
	if _, ok := res.Errors[0].Err.(*rerr.CyclicDependency); !ok {
		t.Errorf("expected CyclicDependency, got %T", res.Errors[0].Err)
	}
}

func TestWarningsForNoInputsNoOutputs(t *testing.T) {
	rules := []*rule.Rule{
		vr("no_outputs", []string{"input"}, nil, 0, true, addExpr("input", 1)),
		vr("no_inputs", nil, []string{"constant_value"}, 0, true, map[string]interface{}{"+": []interface{}{1, 2}}),
	}
	res := Validate(rules)
	if !res.Valid() {
		t.Fatalf("expected valid (warnings only), got errors: %v", res.Errors)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", res.Warnings)
	}
}

func TestWarningForDisabledRuleDependency(t *testing.T) {
	rules := []*rule.Rule{
		vr("disabled_source", []string{"input"}, []string{"intermediate"}, 0, false, addExpr("input", 1)),
		vr("consumer", []string{"intermediate"}, []string{"result"}, 0, true, addExpr("intermediate", 2)),
	}
	res := Validate(rules)
	if !res.Valid() {
		t.Fatalf("expected valid (disabled dependency is a warning, not an error), got errors: %v", res.Errors)
	}
	found := false
	for _, w := range res.Warnings {
		if w == "consumer: input intermediate is only produced by disabled rule disabled_source" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected disabled-dependency warning, got %v", res.Warnings)
	}
}

func TestDisabledRulesExcludedFromDAG(t *testing.T) {
	rules := []*rule.Rule{
		vr("enabled_a", []string{"input"}, []string{"a"}, 0, true, addExpr("input", 1)),
		vr("disabled_b", []string{"a"}, []string{"b"}, 0, false, addExpr("a", 1)),
	}
	res := Validate(rules)
	if !res.Valid() {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if len(res.Levels) != 1 {
		t.Errorf("expected disabled rule excluded from levels, got %v", res.Levels)
	}
}
