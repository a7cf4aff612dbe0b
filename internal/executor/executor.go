// Package executor implements the parallel rule executor (C10): build the
// dependency DAG, validate it against the caller's context, compile each
// rule through the tiered facade, then run level by level — one rule
// inline, several rules concurrently with a snapshot-then-merge barrier
// between levels.
package executor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ruleforge/internal/ast"
	"ruleforge/internal/eval"
	"ruleforge/internal/jsonlogic"
	"ruleforge/internal/rerr"
	"ruleforge/internal/ruledag"
	"ruleforge/internal/rule"
	"ruleforge/internal/tiered"
	"ruleforge/internal/value"

	"github.com/montanaflynn/stats"
)

// RuleResult is the outcome of evaluating a single rule.
type RuleResult struct {
	RuleID          string
	Outputs         map[string]value.Value
	ExecutionTimeNs int64
}

// TimingStats summarizes per-rule execution durations for a run, computed
// with montanaflynn/stats over the nanosecond timings collected per rule.
type TimingStats struct {
	MeanNs   float64
	StdDevNs float64
	MinNs    float64
	MaxNs    float64
}

// ExecutionResult carries everything spec.md §4.10 asks the executor to
// report: per-rule outputs and timings, the final context, the levels used
// (for telemetry), and the total wall-clock duration.
type ExecutionResult struct {
	RuleResults []RuleResult
	Context     *rule.ExecutionContext
	TotalTimeNs int64
	Levels      [][]string
	Timing      TimingStats
}

// GetOutput looks up a path in the final execution context, which holds
// the caller's inputs as well as every rule's outputs.
func (r *ExecutionResult) GetOutput(path string) (value.Value, bool) {
	return r.Context.Get(path)
}

// Executor caches parsed ASTs per rule ID and delegates tier selection and
// bytecode caching to a tiered facade, so repeated Execute calls over the
// same rule set skip both JSON-logic parsing and recompilation.
type Executor struct {
	facade         *tiered.Facade
	maxParallelism int

	mu       sync.RWMutex
	compiled map[string]*rule.CompiledRule

	evaluatorsMu sync.RWMutex
	evaluators   map[string]rule.CustomEvaluator
}

// New builds an Executor. maxParallelism bounds concurrent rule
// evaluations within a level (DESIGN.md Open Question #3); 0 means
// unbounded.
func New(maxParallelism int) *Executor {
	return &Executor{
		facade:         tiered.Default(),
		maxParallelism: maxParallelism,
		compiled:       make(map[string]*rule.CompiledRule),
		evaluators:     make(map[string]rule.CustomEvaluator),
	}
}

// RegisterEvaluator wires a host-supplied CustomEvaluator under tag, so
// rules whose Evaluator field names tag delegate to it instead of the
// core json-logic engine (spec.md §6's extension port).
func (e *Executor) RegisterEvaluator(tag string, ev rule.CustomEvaluator) {
	e.evaluatorsMu.Lock()
	defer e.evaluatorsMu.Unlock()
	e.evaluators[tag] = ev
}

// CompileRules pre-compiles rules into the shared cache so a later
// Execute call skips parsing. Safe to call multiple times; already-cached
// rules are skipped.
func (e *Executor) CompileRules(rules []*rule.Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range rules {
		if r.IsCustomEvaluated() {
			continue // nothing to parse: the custom evaluator owns its own config format
		}
		if _, ok := e.compiled[r.ID]; ok {
			continue
		}
		cr, err := compileOne(r)
		if err != nil {
			return err
		}
		e.compiled[r.ID] = cr
	}
	return nil
}

func compileOne(r *rule.Rule) (*rule.CompiledRule, error) {
	n := r.Expression
	if n == nil {
		var err error
		n, err = jsonlogic.ParseValue(r.ExpressionJSON)
		if err != nil {
			return nil, &rerr.InvalidSyntax{RuleID: r.ID, Err: err}
		}
	}
	return &rule.CompiledRule{RuleID: r.ID, AST: n, NodeCount: ast.NodeCount(n)}, nil
}

func (e *Executor) getCompiled(r *rule.Rule) (*rule.CompiledRule, error) {
	e.mu.RLock()
	cr, ok := e.compiled[r.ID]
	e.mu.RUnlock()
	if ok {
		return cr, nil
	}
	cr, err := compileOne(r)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.compiled[r.ID] = cr
	e.mu.Unlock()
	return cr, nil
}

// Execute runs rules against context with intra-level parallelism.
func (e *Executor) Execute(ctx context.Context, rules []*rule.Rule, execCtx *rule.ExecutionContext) (*ExecutionResult, error) {
	return e.run(ctx, rules, execCtx, true)
}

// ExecuteSequential runs the same plan with no parallelism, for debugging
// and determinism proofs against Execute (spec.md §4.10 point 6).
func (e *Executor) ExecuteSequential(ctx context.Context, rules []*rule.Rule, execCtx *rule.ExecutionContext) (*ExecutionResult, error) {
	return e.run(ctx, rules, execCtx, false)
}

func (e *Executor) run(ctx context.Context, rules []*rule.Rule, execCtx *rule.ExecutionContext, parallel bool) (*ExecutionResult, error) {
	start := time.Now()

	ruleByID := make(map[string]*rule.Rule, len(rules))
	for _, r := range rules {
		ruleByID[r.ID] = r
	}

	dag := ruledag.Build(rules)
	missing := dag.FindMissingInputs(execCtx.AvailableInputs())
	if len(missing) > 0 {
		pairs := make([]rerr.MissingPair, len(missing))
		for i, m := range missing {
			pairs[i] = rerr.MissingPair{RuleID: m.RuleID, Path: m.Path}
		}
		return nil, &rerr.MissingDependencies{Pairs: pairs}
	}

	levels, err := dag.Levels()
	if err != nil {
		return nil, err
	}

	var results []RuleResult
	var timingsNs []float64

	for _, level := range levels {
		var levelResults []RuleResult
		var levelErr error
		if parallel && len(level) > 1 {
			levelResults, levelErr = e.runLevelParallel(ctx, level, ruleByID, execCtx)
		} else {
			levelResults, levelErr = e.runLevelSequential(level, ruleByID, execCtx)
		}
		if levelErr != nil {
			return nil, levelErr
		}
		for _, res := range levelResults {
			for path, v := range res.Outputs {
				execCtx.Set(path, v)
			}
			timingsNs = append(timingsNs, float64(res.ExecutionTimeNs))
		}
		results = append(results, levelResults...)
	}

	timing := computeTimingStats(timingsNs)

	return &ExecutionResult{
		RuleResults: results,
		Context:     execCtx,
		TotalTimeNs: time.Since(start).Nanoseconds(),
		Levels:      levels,
		Timing:      timing,
	}, nil
}

// runLevelSequential runs a level's rules one at a time, writing each
// rule's outputs into context immediately — used both when a level has a
// single rule and when the caller asked for execute_sequential.
func (e *Executor) runLevelSequential(level []string, ruleByID map[string]*rule.Rule, execCtx *rule.ExecutionContext) ([]RuleResult, error) {
	results := make([]RuleResult, 0, len(level))
	var failures []rerr.RuleFailure
	for _, id := range level {
		res, err := e.evaluateRule(id, ruleByID, execCtx.Snapshot())
		if err != nil {
			failures = append(failures, rerr.RuleFailure{RuleID: id, Err: err})
			continue
		}
		for path, v := range res.Outputs {
			execCtx.Set(path, v)
		}
		results = append(results, res)
	}
	if len(failures) > 0 {
		return nil, &rerr.MultipleRuleFailures{Failures: failures}
	}
	return results, nil
}

// runLevelParallel snapshots the context once, evaluates every rule in
// the level concurrently against that snapshot, and defers all writes
// back into context to the caller after the whole level completes — the
// snapshot-then-merge pattern that keeps context mutation single-threaded
// (spec.md §4.10 point 4).
func (e *Executor) runLevelParallel(ctx context.Context, level []string, ruleByID map[string]*rule.Rule, execCtx *rule.ExecutionContext) ([]RuleResult, error) {
	snapshot := execCtx.Snapshot()
	g, _ := errgroup.WithContext(ctx)
	if e.maxParallelism > 0 {
		g.SetLimit(e.maxParallelism)
	}

	results := make([]RuleResult, len(level))
	errs := make([]error, len(level))

	for i, id := range level {
		i, id := i, id
		g.Go(func() error {
			res, err := e.evaluateRule(id, ruleByID, snapshot)
			if err != nil {
				errs[i] = err
				return nil // collected, not short-circuited (spec.md §4.10 point 5)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // evaluateRule never returns a non-nil group error; failures are per-slot

	var failures []rerr.RuleFailure
	out := make([]RuleResult, 0, len(level))
	for i, id := range level {
		if errs[i] != nil {
			failures = append(failures, rerr.RuleFailure{RuleID: id, Err: errs[i]})
			continue
		}
		out = append(out, results[i])
	}
	if len(failures) > 0 {
		return nil, &rerr.MultipleRuleFailures{Failures: failures}
	}
	return out, nil
}

func (e *Executor) evaluateRule(id string, ruleByID map[string]*rule.Rule, data value.Value) (RuleResult, error) {
	r, ok := ruleByID[id]
	if !ok {
		return RuleResult{}, &rerr.RuleNotFound{RuleID: id}
	}

	if r.IsCustomEvaluated() {
		return e.evaluateCustomRule(r, data)
	}

	cr, err := e.getCompiled(r)
	if err != nil {
		return RuleResult{}, err
	}

	start := time.Now()
	v, err := e.facade.Eval(r.ID, cr.AST, data, eval.DefaultLimits())
	if err != nil {
		return RuleResult{}, err
	}
	elapsed := time.Since(start).Nanoseconds()

	outputs := make(map[string]value.Value, len(r.Outputs))
	for _, out := range r.Outputs {
		outputs[out] = v
	}
	return RuleResult{RuleID: id, Outputs: outputs, ExecutionTimeNs: elapsed}, nil
}

// evaluateCustomRule delegates to the host-supplied CustomEvaluator
// registered under r.Evaluator, passing the rule's declared inputs read
// from the level snapshot and its declared output names.
func (e *Executor) evaluateCustomRule(r *rule.Rule, data value.Value) (RuleResult, error) {
	e.evaluatorsMu.RLock()
	ev, ok := e.evaluators[r.Evaluator]
	e.evaluatorsMu.RUnlock()
	if !ok {
		return RuleResult{}, &rerr.RuleNotFound{RuleID: r.ID}
	}

	inputs := make(map[string]value.Value, len(r.Inputs))
	obj, _ := data.AsObject()
	for _, in := range r.Inputs {
		if v, ok := obj[in]; ok {
			inputs[in] = v
		}
	}

	start := time.Now()
	outputs, err := ev.Evaluate(r.EvaluatorConfig, inputs, r.Outputs)
	if err != nil {
		return RuleResult{}, err
	}
	elapsed := time.Since(start).Nanoseconds()

	return RuleResult{RuleID: r.ID, Outputs: outputs, ExecutionTimeNs: elapsed}, nil
}

func computeTimingStats(timingsNs []float64) TimingStats {
	if len(timingsNs) == 0 {
		return TimingStats{}
	}
	mean, _ := stats.Mean(timingsNs)
	stddev, _ := stats.StandardDeviation(timingsNs)
	min, _ := stats.Min(timingsNs)
	max, _ := stats.Max(timingsNs)
	return TimingStats{MeanNs: mean, StdDevNs: stddev, MinNs: min, MaxNs: max}
}
