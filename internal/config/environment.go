package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment represents the application environment.
type Environment string

const (
	EnvLocal      Environment = "local"
	EnvStaging    Environment = "staging"
	EnvProduction Environment = "production"
)

// String returns the string representation of the environment.
func (e Environment) String() string {
	return string(e)
}

// IsProduction returns true if the environment is production.
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}

// IsStaging returns true if the environment is staging.
func (e Environment) IsStaging() bool {
	return e == EnvStaging
}

// IsLocal returns true if the environment is local.
func (e Environment) IsLocal() bool {
	return e == EnvLocal
}

// IsDevelopment returns true if the environment is local or staging (non-production).
func (e Environment) IsDevelopment() bool {
	return e == EnvLocal || e == EnvStaging
}

// GetEnvironment returns the current environment from APP_ENV.
// Defaults to "local" if not set.
func GetEnvironment() Environment {
	env := os.Getenv("APP_ENV")
	switch strings.ToLower(env) {
	case "production", "prod":
		return EnvProduction
	case "staging", "stg":
		return EnvStaging
	case "local", "development", "dev", "":
		return EnvLocal
	default:
		log.Printf("Warning: Unknown APP_ENV '%s', defaulting to 'local'", env)
		return EnvLocal
	}
}

// LoadEnvFile loads the appropriate .env file based on APP_ENV.
// Priority:
//  1. .env.[environment] (e.g., .env.local, .env.staging, .env.production)
//  2. .env (fallback for backwards compatibility)
//
// Environment variables already set take precedence over .env file values.
func LoadEnvFile() Environment {
	env := GetEnvironment()

	// Try environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err == nil {
		log.Printf("Loaded configuration from %s", envFile)
		return env
	}

	// Fallback to .env
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded configuration from .env (APP_ENV=%s)", env)
		return env
	}

	log.Printf("No .env file found, using environment variables (APP_ENV=%s)", env)
	return env
}

// GetMongoDBName returns the MongoDB database name for the given environment.
func GetMongoDBName(env Environment, baseDBName string) string {
	switch env {
	case EnvProduction:
		return baseDBName + "_prod"
	case EnvStaging:
		return baseDBName + "_staging"
	default:
		// Local uses base name (e.g., "ruleforge")
		return baseDBName
	}
}

