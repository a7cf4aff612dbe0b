package ruledag

import (
	"testing"

	"ruleforge/internal/rule"
)

func r(id string, inputs, outputs []string, orderIndex int) *rule.Rule {
	return &rule.Rule{ID: id, Inputs: inputs, Outputs: outputs, OrderIndex: orderIndex, Enabled: true}
}

func TestThreeRuleChain(t *testing.T) {
	rules := []*rule.Rule{
		r("r1", []string{"input"}, []string{"a"}, 0),
		r("r2", []string{"a"}, []string{"b"}, 0),
		r("r3", []string{"b"}, []string{"c"}, 0),
	}
	d := Build(rules)
	levels, err := d.Levels()
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d: %v", len(levels), levels)
	}
	for _, l := range levels {
		if len(l) != 1 {
			t.Errorf("expected single-rule levels in a chain, got %v", l)
		}
	}
}

func TestDiamond(t *testing.T) {
	rules := []*rule.Rule{
		r("base", []string{"input"}, []string{"a"}, 0),
		r("left", []string{"a"}, []string{"b"}, 0),
		r("right", []string{"a"}, []string{"c"}, 1),
		r("final", []string{"b", "c"}, []string{"d"}, 0),
	}
	d := Build(rules)
	levels, err := d.Levels()
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d: %v", len(levels), levels)
	}
	if len(levels[0]) != 1 || len(levels[1]) != 2 || len(levels[2]) != 1 {
		t.Fatalf("unexpected level shape: %v", levels)
	}
	if levels[1][0] != "left" || levels[1][1] != "right" {
		t.Errorf("expected (order_index, rule_id) ordering within level, got %v", levels[1])
	}
}

func TestTwoRuleCycle(t *testing.T) {
	rules := []*rule.Rule{
		r("r1", []string{"y"}, []string{"x"}, 0),
		r("r2", []string{"x"}, []string{"y"}, 0),
	}
	d := Build(rules)
	if _, err := d.Levels(); err == nil {
		t.Error("expected CyclicDependency error")
	}
}

func TestMissingInputs(t *testing.T) {
	rules := []*rule.Rule{
		r("r1", []string{"input", "other"}, []string{"a"}, 0),
	}
	d := Build(rules)
	missing := d.FindMissingInputs(map[string]bool{"input": true})
	if len(missing) != 1 || missing[0].Path != "other" {
		t.Errorf("expected missing [other], got %v", missing)
	}
}

func TestExternalInputsDoNotEdge(t *testing.T) {
	rules := []*rule.Rule{
		r("r1", []string{"input"}, []string{"a"}, 0),
	}
	d := Build(rules)
	levels, err := d.Levels()
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 1 || len(levels[0]) != 1 {
		t.Fatalf("expected single level single rule, got %v", levels)
	}
}
