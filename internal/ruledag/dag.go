// Package ruledag builds the rule dependency graph (C9): an output-index
// mapping attribute paths to their producing rule, edges derived from
// input/output overlap, topological levels via iterative Kahn, and
// missing-input analysis relative to a caller-supplied attribute set.
package ruledag

import (
	"sort"

	"ruleforge/internal/rerr"
	"ruleforge/internal/rule"
)

// DAG is the dependency graph over a rule slice. Vertices are rule IDs;
// edge A -> B exists iff some output of A appears in B's inputs.
type DAG struct {
	rules       map[string]*rule.Rule
	order       []string // rule IDs in input order, for stable iteration
	outputIndex map[string]string // output path -> producing rule ID
	successors  map[string][]string
	inDegree    map[string]int
}

// OutputIndex exposes the output-path-to-rule-ID map built during
// construction.
func (d *DAG) OutputIndex() map[string]string { return d.outputIndex }

// Build constructs a DAG over rules. Duplicate outputs across rules are a
// validation-time concern (spec.md §4.9 step 1); Build assumes uniqueness
// and simply lets a later rule's output-index entry win silently — the
// validator is what rejects the rule set before execution ever reaches
// here.
func Build(rules []*rule.Rule) *DAG {
	d := &DAG{
		rules:       make(map[string]*rule.Rule, len(rules)),
		order:       make([]string, 0, len(rules)),
		outputIndex: make(map[string]string),
		successors:  make(map[string][]string),
		inDegree:    make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		d.rules[r.ID] = r
		d.order = append(d.order, r.ID)
		d.inDegree[r.ID] = 0
		for _, out := range r.Outputs {
			d.outputIndex[out] = r.ID
		}
	}
	for _, r := range rules {
		seen := make(map[string]bool)
		for _, in := range r.Inputs {
			producer, ok := d.outputIndex[in]
			if !ok || producer == r.ID || seen[producer] {
				continue
			}
			seen[producer] = true
			d.successors[producer] = append(d.successors[producer], r.ID)
			d.inDegree[r.ID]++
		}
	}
	return d
}

// Levels computes topological levels by iterative Kahn: level 0 holds all
// vertices with in-degree 0; removing them and decrementing successors'
// in-degree yields level 1, and so on. Within a level, rules are ordered
// by (OrderIndex, RuleID) so parallel and sequential execution produce
// identical per-rule ordering (spec.md §4.9). Any vertex left over once no
// further zero-in-degree vertex exists indicates a cycle.
func (d *DAG) Levels() ([][]string, error) {
	remaining := make(map[string]int, len(d.inDegree))
	for id, deg := range d.inDegree {
		remaining[id] = deg
	}

	var levels [][]string
	placed := 0
	for len(remaining) > 0 {
		var level []string
		for id, deg := range remaining {
			if deg == 0 {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			residual := make([]string, 0, len(remaining))
			for id := range remaining {
				residual = append(residual, id)
			}
			sort.Strings(residual)
			return nil, &rerr.CyclicDependency{Residual: residual}
		}
		d.sortLevel(level)
		for _, id := range level {
			delete(remaining, id)
			for _, succ := range d.successors[id] {
				remaining[succ]--
			}
		}
		levels = append(levels, level)
		placed += len(level)
	}
	return levels, nil
}

func (d *DAG) sortLevel(level []string) {
	sort.Slice(level, func(i, j int) bool {
		a, b := d.rules[level[i]], d.rules[level[j]]
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex < b.OrderIndex
		}
		return a.ID < b.ID
	})
}

// MissingPair names a rule and the input path it needs that nothing
// supplies.
type MissingPair struct {
	RuleID string
	Path   string
}

// FindMissingInputs returns, for every rule, the inputs satisfied neither
// by another rule's output nor by the caller-provided attribute set.
func (d *DAG) FindMissingInputs(available map[string]bool) []MissingPair {
	var missing []MissingPair
	for _, id := range d.order {
		r := d.rules[id]
		for _, in := range r.Inputs {
			if _, fromRule := d.outputIndex[in]; fromRule {
				continue
			}
			if available[in] {
				continue
			}
			missing = append(missing, MissingPair{RuleID: id, Path: in})
		}
	}
	return missing
}
