// Package memory provides an in-process ruleset store with the same
// shape as internal/repository/mongo.RuleRepository, for tests and for
// running the engine without a MongoDB instance.
package memory

import (
	"context"
	"sync"

	"ruleforge/internal/rule"
)

// RuleStore is a concurrency-safe, in-memory stand-in for
// mongo.RuleRepository.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]*rule.Rule
}

// NewRuleStore creates an empty RuleStore.
func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[string]*rule.Rule)}
}

// Upsert inserts or replaces a rule by ID.
func (s *RuleStore) Upsert(_ context.Context, rl *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rl.ID] = rl
	return nil
}

// UpsertMany upserts each rule in turn; stored rules not in the slice are
// left untouched.
func (s *RuleStore) UpsertMany(ctx context.Context, rules []*rule.Rule) error {
	for _, rl := range rules {
		if err := s.Upsert(ctx, rl); err != nil {
			return err
		}
	}
	return nil
}

// GetByProductID returns every rule for a product, in insertion order
// is not preserved (map-backed); callers that need execution order rely
// on Rule.OrderIndex, not store iteration order.
func (s *RuleStore) GetByProductID(_ context.Context, productID string) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*rule.Rule
	for _, rl := range s.rules {
		if rl.ProductID == productID {
			out = append(out, rl)
		}
	}
	return out, nil
}

// GetByID returns a single rule, or nil if absent.
func (s *RuleStore) GetByID(_ context.Context, id string) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules[id], nil
}

// Delete removes a rule by ID.
func (s *RuleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, id)
	return nil
}

// DeleteByProductID removes every rule belonging to a product.
func (s *RuleStore) DeleteByProductID(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rl := range s.rules {
		if rl.ProductID == productID {
			delete(s.rules, id)
		}
	}
	return nil
}
