// Command rulectl loads a rule set and an input context from JSON files,
// round-trips the rule set through the in-memory ruleset store, and
// prints the execution (or validation) result — for exercising the
// engine without standing up the HTTP server or a MongoDB instance.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"ruleforge/internal/engine"
	"ruleforge/internal/repository/memory"
	"ruleforge/internal/rule"
	"ruleforge/internal/value"
)

func main() {
	rulesPath := flag.String("rules", "", "path to a JSON file containing an array of rules")
	inputPath := flag.String("input", "", "path to a JSON file containing the input object")
	productID := flag.String("product", "", "product ID to load from the rule set (defaults to the first rule's productId)")
	validateOnly := flag.Bool("validate", false, "only validate the rule set, don't execute it")
	sequential := flag.Bool("sequential", false, "disable intra-level parallelism")
	maxParallelism := flag.Int("max-parallelism", 0, "bound on concurrent rule evaluations per level (0 = unbounded)")
	flag.Parse()

	if *rulesPath == "" {
		log.Fatal("-rules is required")
	}

	loaded, err := loadRules(*rulesPath)
	if err != nil {
		log.Fatalf("failed to load rules: %v", err)
	}
	if len(loaded) == 0 {
		log.Fatal("rule file contains no rules")
	}

	ctx := context.Background()
	store := memory.NewRuleStore()
	if err := store.UpsertMany(ctx, loaded); err != nil {
		log.Fatalf("failed to load rules into store: %v", err)
	}

	product := *productID
	if product == "" {
		product = loaded[0].ProductID
	}
	rules, err := store.GetByProductID(ctx, product)
	if err != nil {
		log.Fatalf("failed to read rules back from store: %v", err)
	}
	if len(rules) == 0 {
		log.Fatalf("no rules found in store for product %q", product)
	}

	eng := engine.New(*maxParallelism)

	result := eng.Validate(rules)
	printJSON(result)
	if !result.Valid() {
		os.Exit(1)
	}
	if *validateOnly {
		return
	}

	if *inputPath == "" {
		log.Fatal("-input is required unless -validate is set")
	}
	input, err := loadInput(*inputPath)
	if err != nil {
		log.Fatalf("failed to load input: %v", err)
	}
	execCtx := rule.FromValue(input)

	var execResult interface{}
	if *sequential {
		execResult, err = eng.ExecuteSequential(ctx, rules, execCtx)
	} else {
		execResult, err = eng.Execute(ctx, rules, execCtx)
	}
	if err != nil {
		log.Fatalf("execution failed: %v", err)
	}
	printJSON(execResult)
}

func loadRules(path string) ([]*rule.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rules []*rule.Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func loadInput(path string) (value.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, err
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return value.Value{}, err
	}
	return value.FromJSON(decoded), nil
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal result: %v", err)
	}
	fmt.Println(string(out))
}
