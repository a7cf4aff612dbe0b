// Package rerr collects the engine's error kinds. None of them are
// sentinels: every error carries the fields needed to report what went
// wrong (spec.md §7).
package rerr

import "fmt"

// ParseError — surface parsing (JSON-logic or infix) failed.
type ParseError struct {
	Position int
	Reason   string
	Op       string // operator the error concerns, if any; else ""
}

func (e *ParseError) Error() string {
	if e.Op != "" && (e.Reason == "" || e.Reason == "unknown operator") {
		return fmt.Sprintf("parse error at %d: unknown operator %q", e.Position, e.Op)
	}
	if e.Op != "" {
		return fmt.Sprintf("parse error at %d: %s (operator %q)", e.Position, e.Reason, e.Op)
	}
	return fmt.Sprintf("parse error at %d: %s", e.Position, e.Reason)
}

// CompilationError — AST-to-bytecode lowering refused an operator.
type CompilationError struct {
	Reason string
}

func (e *CompilationError) Error() string { return "compilation error: " + e.Reason }

// VariableNotFound — variable path unresolved with no default.
type VariableNotFound struct {
	Path string
}

func (e *VariableNotFound) Error() string { return "variable not found: " + e.Path }

// DivisionByZero — division or modulo with zero denominator.
type DivisionByZero struct {
	Op string
}

func (e *DivisionByZero) Error() string { return "division by zero in " + e.Op }

// InvalidBytecode — corrupt instruction stream (programming error).
type InvalidBytecode struct {
	Reason string
}

func (e *InvalidBytecode) Error() string { return "invalid bytecode: " + e.Reason }

// StackOverflow — iterative evaluator exceeded its step/queue bound, or the
// VM stack exceeded its depth.
type StackOverflow struct {
	Limit int
}

func (e *StackOverflow) Error() string { return fmt.Sprintf("stack overflow: limit %d exceeded", e.Limit) }

// StackUnderflow — VM popped an empty stack (programming error).
type StackUnderflow struct{}

func (e *StackUnderflow) Error() string { return "stack underflow" }

// RuntimeError — catch-all for "can't happen" value-shape failures.
type RuntimeError struct {
	Reason string
}

func (e *RuntimeError) Error() string { return "runtime error: " + e.Reason }

// --- Rule-engine errors ---

// EmptyRuleSet — the rule slice passed to the validator/executor is empty.
type EmptyRuleSet struct{}

func (e *EmptyRuleSet) Error() string { return "empty rule set" }

// InvalidSyntax — a rule's expression failed to parse.
type InvalidSyntax struct {
	RuleID string
	Err    error
}

func (e *InvalidSyntax) Error() string { return fmt.Sprintf("rule %s: invalid syntax: %v", e.RuleID, e.Err) }
func (e *InvalidSyntax) Unwrap() error { return e.Err }

// DuplicateOutput — two rules claim the same output path.
type DuplicateOutput struct {
	Path     string
	RuleIDs  []string
}

func (e *DuplicateOutput) Error() string {
	return fmt.Sprintf("duplicate output %q produced by rules %v", e.Path, e.RuleIDs)
}

// CyclicDependency — the rule DAG contains a cycle.
type CyclicDependency struct {
	Residual []string
}

func (e *CyclicDependency) Error() string { return fmt.Sprintf("cyclic dependency among rules %v", e.Residual) }

// MissingDependencies — rule inputs unsatisfied by caller-supplied context
// or any rule output.
type MissingDependencies struct {
	Pairs []MissingPair
}

type MissingPair struct {
	RuleID string
	Path   string
}

func (e *MissingDependencies) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.Pairs)
}

// MultipleRuleFailures — one or more rules in a level failed evaluation.
type MultipleRuleFailures struct {
	Failures []RuleFailure
}

type RuleFailure struct {
	RuleID string
	Err    error
}

func (e *MultipleRuleFailures) Error() string {
	return fmt.Sprintf("%d rule(s) failed evaluation: %v", len(e.Failures), e.Failures)
}

// RuleNotFound — a referenced rule ID is absent from the rule set.
type RuleNotFound struct {
	RuleID string
}

func (e *RuleNotFound) Error() string { return "rule not found: " + e.RuleID }
