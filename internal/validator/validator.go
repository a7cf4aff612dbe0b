// Package validator implements the static rule-set checks (C11): parse
// every expression, reject duplicate outputs and cycles, and surface
// warnings for rules that are syntactically fine but structurally
// suspicious. Validate never panics and never evaluates an expression —
// it only inspects the shapes the parser and the DAG expose.
package validator

import (
	"sort"

	"ruleforge/internal/ast"
	"ruleforge/internal/jsonlogic"
	"ruleforge/internal/rerr"
	"ruleforge/internal/ruledag"
	"ruleforge/internal/rule"
)

// Validate runs the full static check suite over rules and returns a
// populated rule.ValidationResult. On success (no errors), Levels holds
// the computed execution order so callers don't need to rebuild the DAG.
func Validate(rules []*rule.Rule) *rule.ValidationResult {
	result := &rule.ValidationResult{}

	if len(rules) == 0 {
		result.Errors = append(result.Errors, rule.ValidationError{
			Code: "empty_rule_set", Err: &rerr.EmptyRuleSet{},
		})
		return result
	}

	enabled := make([]*rule.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}

	checkSyntax(rules, result)
	checkDuplicateOutputs(enabled, result)
	checkWarnings(rules, enabled, result)

	if !result.Valid() {
		return result
	}

	dag := ruledag.Build(enabled)
	levels, err := dag.Levels()
	if err != nil {
		result.Errors = append(result.Errors, rule.ValidationError{
			Code: "cyclic_dependency", Err: err,
		})
		return result
	}

	result.Levels = levels
	return result
}

// checkSyntax parses every rule's expression (whichever surface it was
// authored in), collecting one InvalidSyntax error per failure rather
// than stopping at the first.
func checkSyntax(rules []*rule.Rule, result *rule.ValidationResult) {
	for _, r := range rules {
		if r.IsCustomEvaluated() {
			continue // delegated rule: no json-logic expression to parse
		}
		if r.Expression != nil {
			continue // already an AST: parsed upstream
		}
		if _, err := parseExpression(r); err != nil {
			result.Errors = append(result.Errors, rule.ValidationError{
				RuleID: r.ID, Code: "invalid_syntax",
				Err: &rerr.InvalidSyntax{RuleID: r.ID, Err: err},
			})
		}
	}
}

func parseExpression(r *rule.Rule) (*ast.Node, error) {
	return jsonlogic.ParseValue(r.ExpressionJSON)
}

// checkDuplicateOutputs rejects rule sets where two enabled rules claim
// the same output path — the DAG's output index can only resolve one
// producer per path, so a collision here would silently hide a rule from
// execution rather than error (spec.md §4.9 step 1).
func checkDuplicateOutputs(enabled []*rule.Rule, result *rule.ValidationResult) {
	producers := make(map[string][]string)
	for _, r := range enabled {
		for _, out := range r.Outputs {
			producers[out] = append(producers[out], r.ID)
		}
	}
	paths := make([]string, 0, len(producers))
	for path := range producers {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		ids := producers[path]
		if len(ids) > 1 {
			sort.Strings(ids)
			result.Errors = append(result.Errors, rule.ValidationError{
				Code: "duplicate_output",
				Err:  &rerr.DuplicateOutput{Path: path, RuleIDs: ids},
			})
		}
	}
}

// checkWarnings surfaces non-fatal structural oddities: a rule with no
// declared outputs can never affect anything downstream; a rule with no
// inputs only ever reads constants; an input of an enabled rule whose
// only producer is a disabled rule has no enabled producer in the DAG
// that validation builds.
func checkWarnings(all, enabled []*rule.Rule, result *rule.ValidationResult) {
	for _, r := range all {
		if !r.Enabled {
			continue
		}
		if len(r.Outputs) == 0 {
			result.Warnings = append(result.Warnings, r.ID+": rule has no declared outputs")
		}
		if len(r.Inputs) == 0 {
			result.Warnings = append(result.Warnings, r.ID+": rule has no declared inputs")
		}
	}

	disabledOutputs := make(map[string]string)
	for _, r := range all {
		if r.Enabled {
			continue
		}
		for _, out := range r.Outputs {
			disabledOutputs[out] = r.ID
		}
	}
	seen := make(map[string]bool)
	for _, r := range enabled {
		for _, in := range r.Inputs {
			if producer, ok := disabledOutputs[in]; ok && !seen[in] {
				seen[in] = true
				result.Warnings = append(result.Warnings,
					r.ID+": input "+in+" is only produced by disabled rule "+producer)
			}
		}
	}
}
