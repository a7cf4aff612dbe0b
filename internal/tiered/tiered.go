// Package tiered implements the facade (C8) through which the executor and
// the engine evaluate expressions: below a node-count threshold, run
// the iterative work-stack evaluator; at or above it, compile once to
// bytecode and run the VM, falling back to the interpreter when
// compilation refuses an operator (array ops, missing/missing_some).
package tiered

import (
	"sync"

	"ruleforge/internal/ast"
	"ruleforge/internal/bytecode"
	"ruleforge/internal/eval"
	"ruleforge/internal/value"
)

// DefaultThreshold is the node-count cutoff at or above which the facade
// attempts bytecode compilation (spec.md §4.8).
const DefaultThreshold = 5

// entry owns an AST and its optional compiled bytecode. Both are
// logically immutable once built, so a single entry is safe to share
// across goroutines evaluating the same rule concurrently.
type entry struct {
	ast       *ast.Node
	program   *bytecode.Program // nil: run on the interpreter (below threshold, or CompilationError)
	nodeCount int
}

// Facade selects an execution tier per expression and caches the decision
// (and, where applicable, the compiled program) keyed by source
// expression text.
type Facade struct {
	threshold int
	mu        sync.RWMutex
	cache     map[string]*entry
}

// New builds a Facade with the given node-count threshold.
func New(threshold int) *Facade {
	return &Facade{threshold: threshold, cache: make(map[string]*entry)}
}

// Default builds a Facade using spec.md's default threshold of 5.
func Default() *Facade { return New(DefaultThreshold) }

// prepare builds (or fetches from cache) the entry for n, keyed by
// source. An empty source key bypasses the cache entirely — callers
// evaluating a programmatically-built AST with no stable textual key get
// tier selection but not caching.
func (f *Facade) prepare(source string, n *ast.Node) *entry {
	if source != "" {
		f.mu.RLock()
		e, ok := f.cache[source]
		f.mu.RUnlock()
		if ok {
			return e
		}
	}
	e := f.build(n)
	if source != "" {
		f.mu.Lock()
		f.cache[source] = e
		f.mu.Unlock()
	}
	return e
}

func (f *Facade) build(n *ast.Node) *entry {
	count := ast.NodeCount(n)
	e := &entry{ast: n, nodeCount: count}
	if count < f.threshold {
		return e
	}
	prog, err := bytecode.Compile(n)
	if err != nil {
		// CompilationError: array ops, missing/missing_some, or any other
		// node the compiler refuses. Degrade to the interpreter.
		return e
	}
	e.program = prog
	return e
}

// Eval evaluates n against data, using source as the cache key (pass ""
// to skip caching for a one-off or programmatically-built AST).
func (f *Facade) Eval(source string, n *ast.Node, data value.Value, limits eval.Limits) (value.Value, error) {
	e := f.prepare(source, n)
	if e.program == nil {
		return eval.Eval(e.ast, data, limits)
	}
	return bytecode.Run(e.program, data)
}

// NodeCount returns the cached (or freshly computed) node count for n
// under source, without forcing evaluation.
func (f *Facade) NodeCount(source string, n *ast.Node) int {
	return f.prepare(source, n).nodeCount
}

// HasBytecode reports whether the cached entry for source was promoted to
// the VM tier. Used for executor/CLI telemetry.
func (f *Facade) HasBytecode(source string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.cache[source]
	return ok && e.program != nil
}

// Clear empties the cache.
func (f *Facade) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]*entry)
}
