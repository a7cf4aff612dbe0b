package engine

import (
	"context"
	"testing"

	"ruleforge/internal/rule"
	"ruleforge/internal/value"
)

func TestEvaluateJSONLogic(t *testing.T) {
	e := New(0)
	v, err := e.Evaluate(`{"+":[1,2,3]}`, SyntaxJSONLogic, value.Object(nil))
	if err != nil {
		t.Fatal(err)
	}
	if v.ToNumber() != 6 {
		t.Errorf("got %v want 6", v)
	}
}

func TestEvaluateInfix(t *testing.T) {
	e := New(0)
	data := value.Object(map[string]value.Value{"x": value.Int(10)})
	v, err := e.Evaluate("x + 5", SyntaxInfix, data)
	if err != nil {
		t.Fatal(err)
	}
	if v.ToNumber() != 15 {
		t.Errorf("got %v want 15", v)
	}
}

func TestValidateAndExecuteRoundTrip(t *testing.T) {
	e := New(0)
	rules := []*rule.Rule{
		{ID: "r1", Inputs: []string{"input"}, Outputs: []string{"a"}, Enabled: true,
			ExpressionJSON: map[string]interface{}{"+": []interface{}{map[string]interface{}{"var": "input"}, 1.0}}},
	}
	result := e.Validate(rules)
	if !result.Valid() {
		t.Fatalf("expected valid, got %v", result.Errors)
	}

	execCtx := rule.NewExecutionContext(map[string]value.Value{"input": value.Int(41)})
	res, err := e.Execute(context.Background(), rules, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := res.GetOutput("a")
	if !ok || v.ToNumber() != 42 {
		t.Errorf("got %v", v)
	}
}

type doublingEvaluator struct{}

func (doublingEvaluator) Evaluate(config map[string]interface{}, inputs map[string]value.Value, outputNames []string) (map[string]value.Value, error) {
	in := inputs["x"].ToNumber()
	out := make(map[string]value.Value, len(outputNames))
	for _, name := range outputNames {
		out[name] = value.Float(in * 2)
	}
	return out, nil
}

func TestCustomEvaluatorExtensionPoint(t *testing.T) {
	e := New(0)
	e.RegisterEvaluator("doubler", doublingEvaluator{})

	rules := []*rule.Rule{
		{ID: "custom", Inputs: []string{"x"}, Outputs: []string{"y"}, Enabled: true, Evaluator: "doubler"},
	}
	execCtx := rule.NewExecutionContext(map[string]value.Value{"x": value.Int(21)})
	res, err := e.Execute(context.Background(), rules, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := res.GetOutput("y")
	if !ok || v.ToNumber() != 42 {
		t.Errorf("got %v", v)
	}
}
