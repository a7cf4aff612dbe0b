// Package rule holds the data types shared by the DAG, executor, and
// validator: the rule definition itself, its compiled form, the mutable
// execution context rules read from and write into, and the result shape
// the validator returns.
package rule

import (
	"encoding/json"

	"ruleforge/internal/ast"
	"ruleforge/internal/bytecode"
	"ruleforge/internal/value"
)

// Rule is immutable after validation. Identity is the opaque ID; ProductID
// groups rules for a caller-defined unit (a product, a policy, whatever the
// host domain is) and is itself opaque to the core.
type Rule struct {
	ID             string                 `json:"id" bson:"_id"`
	ProductID      string                 `json:"productId" bson:"product_id"`
	RuleType       string                 `json:"ruleType" bson:"rule_type"`
	Expression     *ast.Node              `json:"-" bson:"-"`
	ExpressionJSON map[string]interface{} `json:"expression" bson:"expression"`
	Inputs         []string               `json:"inputs" bson:"inputs"`
	Outputs        []string               `json:"outputs" bson:"outputs"`
	OrderIndex     int                    `json:"orderIndex" bson:"order_index"`
	Enabled        bool                   `json:"enabled" bson:"enabled"`
	Description    string                 `json:"description,omitempty" bson:"description,omitempty"`

	// Evaluator names which engine handles this rule's expression:
	// "json-logic" (default, the core) or a host-supplied custom tag
	// delegated through CustomEvaluator (spec.md §6's extension port).
	Evaluator string `json:"evaluator,omitempty" bson:"evaluator,omitempty"`
	// EvaluatorConfig is opaque configuration passed verbatim to a
	// custom evaluator; unused for "json-logic" rules.
	EvaluatorConfig map[string]interface{} `json:"evaluatorConfig,omitempty" bson:"evaluator_config,omitempty"`
}

// IsCustomEvaluated reports whether this rule delegates to a
// host-supplied CustomEvaluator instead of the core json-logic engine.
func (r *Rule) IsCustomEvaluated() bool {
	return r.Evaluator != "" && r.Evaluator != "json-logic"
}

// CustomEvaluator is the extension port spec.md §6 describes: for rules
// whose Evaluator tag isn't "json-logic", the executor delegates to a
// host-supplied implementation instead of compiling/running an AST. Its
// outputs are treated identically to a native rule's outputs for DAG
// and execution-context purposes.
type CustomEvaluator interface {
	Evaluate(config map[string]interface{}, inputs map[string]value.Value, outputNames []string) (map[string]value.Value, error)
}

// HasDisjointPaths reports whether no path appears in both Inputs and
// Outputs, per spec.md §3's rule invariant.
func (r *Rule) HasDisjointPaths() bool {
	outs := make(map[string]bool, len(r.Outputs))
	for _, o := range r.Outputs {
		outs[o] = true
	}
	for _, in := range r.Inputs {
		if outs[in] {
			return false
		}
	}
	return true
}

// CompiledRule associates a rule with its parsed AST and an optional
// bytecode program. The executor does not fill Bytecode; tier selection
// and program caching live in internal/tiered. Compiled rules are
// logically immutable and safe to share across goroutines.
type CompiledRule struct {
	RuleID    string
	AST       *ast.Node
	Bytecode  *bytecode.Program // nil if running on the interpreter tier
	NodeCount int
}

// HasBytecode reports whether this rule was promoted to the VM tier.
func (c *CompiledRule) HasBytecode() bool { return c.Bytecode != nil }

// ExecutionContext is the mutable attribute-path-to-Value mapping rules
// read from and write into over the course of one execute() call. It is
// owned exclusively by the caller that created it for the duration of that
// call (spec.md §3).
type ExecutionContext struct {
	data map[string]value.Value
}

// NewExecutionContext builds a context from caller-supplied inputs.
func NewExecutionContext(inputs map[string]value.Value) *ExecutionContext {
	data := make(map[string]value.Value, len(inputs))
	for k, v := range inputs {
		data[k] = v
	}
	return &ExecutionContext{data: data}
}

// FromValue builds a context from a Value::Object, the shape the HTTP
// surface and CLI decode caller-supplied JSON into.
func FromValue(v value.Value) *ExecutionContext {
	obj, _ := v.AsObject()
	return NewExecutionContext(obj)
}

// Get resolves a top-level attribute path. Dotted nested lookup is an
// expression-evaluation concern (internal/varpath), not a context concern:
// inter-rule attribute paths are compared by equality only (spec.md §3).
func (c *ExecutionContext) Get(path string) (value.Value, bool) {
	v, ok := c.data[path]
	return v, ok
}

// Set writes a rule output back into the context.
func (c *ExecutionContext) Set(path string, v value.Value) {
	c.data[path] = v
}

// AvailableInputs returns the set of attribute paths currently present,
// used by the DAG's missing-input analysis.
func (c *ExecutionContext) AvailableInputs() map[string]bool {
	present := make(map[string]bool, len(c.data))
	for k := range c.data {
		present[k] = true
	}
	return present
}

// Snapshot returns a Value::Object view of the context, frozen at the
// point of the call, for read-only use by a level's parallel rule
// evaluations (spec.md §4.10's "snapshot-then-merge").
func (c *ExecutionContext) Snapshot() value.Value {
	cp := make(map[string]value.Value, len(c.data))
	for k, v := range c.data {
		cp[k] = v
	}
	return value.Object(cp)
}

// Clone deep-copies the context (shallow-copies Values, which are
// themselves immutable once constructed).
func (c *ExecutionContext) Clone() *ExecutionContext {
	cp := make(map[string]value.Value, len(c.data))
	for k, v := range c.data {
		cp[k] = v
	}
	return &ExecutionContext{data: cp}
}

// ValidationResult carries accumulated errors and warnings plus, on
// success, the execution levels so callers need not re-derive them
// (spec.md §3/§4.11).
type ValidationResult struct {
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
	Levels   [][]string        `json:"levels,omitempty"`
}

// ValidationError pairs an underlying error with the rule it concerns, when
// known.
type ValidationError struct {
	RuleID string `json:"ruleId,omitempty"`
	Code   string `json:"code"`
	Err    error  `json:"-"`
}

func (e ValidationError) Error() string {
	if e.RuleID != "" {
		return e.RuleID + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// MarshalJSON serializes the underlying error's message alongside the
// rule ID and code, per spec.md §3's "errors … with optional rule ID,
// code, message" (Err itself is excluded since error isn't a JSON type).
func (e ValidationError) MarshalJSON() ([]byte, error) {
	type alias struct {
		RuleID  string `json:"ruleId,omitempty"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	a := alias{RuleID: e.RuleID, Code: e.Code}
	if e.Err != nil {
		a.Message = e.Err.Error()
	}
	return json.Marshal(a)
}

// Valid reports whether no errors were accumulated.
func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }
