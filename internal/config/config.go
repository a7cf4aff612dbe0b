package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
)

// Config holds all configuration for the application.
type Config struct {
	Environment Environment

	AppPort   string
	MongoURI  string
	MongoDB   string
	JWTSecret string

	// Evaluator limits and tier threshold. These four are loaded and logged
	// only; the evaluator, VM and tiered facade use their own built-in
	// defaults (eval.DefaultLimits, bytecode.MaxStackDepth,
	// tiered.DefaultThreshold) and do not read these fields.
	EvalMaxSteps      int // work-stack evaluator step bound before StackOverflow
	EvalMaxStackDepth int // work-stack depth bound before StackOverflow
	VMMaxStackDepth   int // bytecode VM operand-stack depth bound

	// Tiered facade (internal/tiered).
	BytecodeNodeThreshold int // node count at/above which an expression compiles to bytecode

	// Executor (internal/executor).
	ExecutorMaxParallelism int // bound on concurrent rule evaluations within a DAG level
}

// Load reads configuration from environment variables with sensible
// defaults. It loads the appropriate .env file based on APP_ENV:
//   - APP_ENV=local      -> .env.local (fallback: .env)
//   - APP_ENV=staging    -> .env.staging
//   - APP_ENV=production -> .env.production
func Load() *Config {
	env := LoadEnvFile()

	baseDBName := getEnv("MONGO_DB_NAME", "ruleforge")
	mongoDB := GetMongoDBName(env, baseDBName)

	cfg := &Config{
		Environment: env,

		AppPort:   getEnv("APP_PORT", "8080"),
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   mongoDB,
		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		EvalMaxSteps:      getEnvInt("EVAL_MAX_STEPS", 100_000),
		EvalMaxStackDepth: getEnvInt("EVAL_MAX_STACK_DEPTH", 1_000),
		VMMaxStackDepth:   getEnvInt("VM_MAX_STACK_DEPTH", 1_000),

		BytecodeNodeThreshold: getEnvInt("BYTECODE_NODE_THRESHOLD", 5),

		ExecutorMaxParallelism: getEnvInt("EXECUTOR_MAX_PARALLELISM", runtime.NumCPU()),
	}

	log.Printf("Config loaded: env=%s, port=%s, mongo_db=%s, bytecode_threshold=%d, max_parallelism=%d",
		env, cfg.AppPort, cfg.MongoDB, cfg.BytecodeNodeThreshold, cfg.ExecutorMaxParallelism)

	return cfg
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable or returns a
// fallback value, warning (not failing) on a malformed value.
func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
