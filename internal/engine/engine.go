// Package engine composes the pipeline packages (jsonlogic/infix parsing,
// the tiered evaluator, the DAG-scheduled executor, and the validator)
// behind the three ports spec.md §6 names: an Evaluator port for one-off
// expression evaluation, a Rule-engine port for compiling/validating/
// executing whole rule sets, and an extension point for delegating
// individual rules to a host-supplied evaluator.
package engine

import (
	"context"

	"ruleforge/internal/ast"
	"ruleforge/internal/eval"
	"ruleforge/internal/executor"
	"ruleforge/internal/infix"
	"ruleforge/internal/jsonlogic"
	"ruleforge/internal/rerr"
	"ruleforge/internal/rule"
	"ruleforge/internal/tiered"
	"ruleforge/internal/validator"
	"ruleforge/internal/value"
)

// Engine is the single composition root entrypoint collaborators (HTTP
// handlers, the CLI) are expected to use.
type Engine struct {
	facade *tiered.Facade
	exec   *executor.Executor
}

// New builds an Engine with the given intra-level parallelism bound (0
// = unbounded).
func New(maxParallelism int) *Engine {
	return &Engine{
		facade: tiered.Default(),
		exec:   executor.New(maxParallelism),
	}
}

// RegisterEvaluator wires a custom rule evaluator under tag (spec.md
// §6's extension port).
func (e *Engine) RegisterEvaluator(tag string, ev rule.CustomEvaluator) {
	e.exec.RegisterEvaluator(tag, ev)
}

// --- Evaluator port ---

// Syntax names which surface an expression source string is in.
type Syntax int

const (
	// SyntaxJSONLogic parses source as a JSON-logic tree.
	SyntaxJSONLogic Syntax = iota
	// SyntaxInfix parses source as FarmScript-style infix syntax.
	SyntaxInfix
)

// Evaluate parses source under the given syntax and evaluates it
// against data, using source as the tiered facade's cache key so
// repeated calls with the same expression skip recompilation. The source
// is parsed again on every call.
func (e *Engine) Evaluate(source string, syntax Syntax, data value.Value) (value.Value, error) {
	n, err := e.Parse(source, syntax)
	if err != nil {
		return value.Value{}, err
	}
	return e.EvaluateNode(source, n, data)
}

// EvaluateNode evaluates a pre-parsed AST against data. cacheKey may be
// "" to bypass the tiered facade's compilation cache for one-off ASTs.
func (e *Engine) EvaluateNode(cacheKey string, n *ast.Node, data value.Value) (value.Value, error) {
	return e.facade.Eval(cacheKey, n, data, eval.DefaultLimits())
}

// Parse parses source under the given surface syntax into the shared AST.
func (e *Engine) Parse(source string, syntax Syntax) (*ast.Node, error) {
	switch syntax {
	case SyntaxInfix:
		return infix.Parse(source)
	default:
		return jsonlogic.Parse([]byte(source))
	}
}

// --- Rule-engine port ---

// CompileRules pre-compiles rules into the executor's cache, surfacing
// any InvalidSyntax failures before execution begins.
func (e *Engine) CompileRules(rules []*rule.Rule) error {
	return e.exec.CompileRules(rules)
}

// Validate runs the full static validation suite (C11) over rules.
func (e *Engine) Validate(rules []*rule.Rule) *rule.ValidationResult {
	return validator.Validate(rules)
}

// Execute runs rules against execCtx with intra-level parallelism.
func (e *Engine) Execute(ctx context.Context, rules []*rule.Rule, execCtx *rule.ExecutionContext) (*executor.ExecutionResult, error) {
	return e.exec.Execute(ctx, rules, execCtx)
}

// ExecuteSequential runs the same plan with parallelism disabled, for
// debugging and determinism proofs against Execute (spec.md §4.10
// point 6).
func (e *Engine) ExecuteSequential(ctx context.Context, rules []*rule.Rule, execCtx *rule.ExecutionContext) (*executor.ExecutionResult, error) {
	return e.exec.ExecuteSequential(ctx, rules, execCtx)
}

// ValidateThenExecute validates rules first and only calls Execute if
// the rule set passed. On failure it returns the first validation error,
// whatever its code, wrapped in an InvalidSyntax carrying that error's
// rule ID.
func (e *Engine) ValidateThenExecute(ctx context.Context, rules []*rule.Rule, execCtx *rule.ExecutionContext) (*executor.ExecutionResult, error) {
	result := e.Validate(rules)
	if !result.Valid() {
		return nil, &rerr.InvalidSyntax{RuleID: result.Errors[0].RuleID, Err: result.Errors[0]}
	}
	return e.Execute(ctx, rules, execCtx)
}
