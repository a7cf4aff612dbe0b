package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ruleforge/internal/rule"
)

// RuleRepository persists rule definitions, one document per rule,
// grouped for retrieval by the caller-defined ProductID (spec.md §3's
// rule identity). A rule set, for this repository's purposes, is simply
// every enabled-or-not rule sharing a ProductID.
type RuleRepository struct {
	collection *mongo.Collection
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(db *mongo.Database) *RuleRepository {
	return &RuleRepository{collection: db.Collection("rules")}
}

// Upsert inserts or replaces a rule by ID.
func (r *RuleRepository) Upsert(ctx context.Context, rl *rule.Rule) error {
	filter := bson.M{"_id": rl.ID}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, filter, rl, opts)
	return err
}

// UpsertMany upserts each rule in turn; stored rules not in the slice are
// left untouched.
func (r *RuleRepository) UpsertMany(ctx context.Context, rules []*rule.Rule) error {
	for _, rl := range rules {
		if err := r.Upsert(ctx, rl); err != nil {
			return err
		}
	}
	return nil
}

// GetByProductID returns every rule (enabled or not) for a product, in
// insertion order.
func (r *RuleRepository) GetByProductID(ctx context.Context, productID string) ([]*rule.Rule, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"product_id": productID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []*rule.Rule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// GetByID returns a single rule.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*rule.Rule, error) {
	var rl rule.Rule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rl)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rl, nil
}

// Delete removes a rule by ID.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteByProductID removes every rule belonging to a product.
func (r *RuleRepository) DeleteByProductID(ctx context.Context, productID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"product_id": productID})
	return err
}
