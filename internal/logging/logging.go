// Package logging adapts the teacher's bracket-tagged error-logger
// idiom (category, message, details persisted to Mongo plus echoed to
// stdlib log) to the engine's error kinds instead of service errors.
package logging

import (
	"context"
	"log"
	"time"

	"ruleforge/internal/model"
	mongorepo "ruleforge/internal/repository/mongo"
)

// Category names used as the log's bson "category" field.
const (
	CategoryParse     = "parse"
	CategoryCompile   = "compile"
	CategoryEval      = "eval"
	CategoryExecution = "execution"
	CategoryAPI       = "api"
)

// Logger persists error/warning log entries and echoes them to stdlib log.
type Logger struct {
	repo *mongorepo.ErrorLogRepository
}

var global *Logger

// Init initializes the global logger.
func Init(repo *mongorepo.ErrorLogRepository) {
	global = &Logger{repo: repo}
}

// Get returns the global logger.
func Get() *Logger {
	return global
}

// LogError logs an engine error to the database and to stdout.
func (l *Logger) LogError(ctx context.Context, category, message, details string) {
	if l == nil || l.repo == nil {
		log.Printf("[%s] ERROR: %s - %s (logger not initialized)", category, message, details)
		return
	}

	entry := &model.ErrorLog{
		Timestamp: time.Now(),
		Level:     "error",
		Category:  category,
		Message:   message,
		Details:   details,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("[logging] failed to persist error log: %v", err)
	}
	log.Printf("[%s] ERROR: %s - %s", category, message, details)
}

// LogWarning logs a warning to the database and to stdout.
func (l *Logger) LogWarning(ctx context.Context, category, message string) {
	if l == nil || l.repo == nil {
		log.Printf("[%s] WARNING: %s", category, message)
		return
	}

	entry := &model.ErrorLog{
		Timestamp: time.Now(),
		Level:     "warning",
		Category:  category,
		Message:   message,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("[logging] failed to persist warning log: %v", err)
	}
	log.Printf("[%s] WARNING: %s", category, message)
}

// LogRuleFailure logs a single rule's evaluation failure (ParseError,
// CompilationError, DivisionByZero, StackOverflow, ...) under the
// execution category.
func LogRuleFailure(ctx context.Context, ruleID string, err error) {
	if global == nil {
		log.Printf("[%s] ERROR: rule %s failed - %v", CategoryExecution, ruleID, err)
		return
	}
	global.LogError(ctx, CategoryExecution, "rule evaluation failed: "+ruleID, err.Error())
}

// LogParseError logs an expression that failed to parse.
func LogParseError(ctx context.Context, ruleID string, err error) {
	category := CategoryParse
	if global == nil {
		log.Printf("[%s] ERROR: %s - %v", category, ruleID, err)
		return
	}
	global.LogError(ctx, category, "expression failed to parse: "+ruleID, err.Error())
}

// LogAPIError logs a general HTTP-surface error.
func LogAPIError(ctx context.Context, message string, err error) {
	if global == nil {
		log.Printf("[%s] ERROR: %s - %v", CategoryAPI, message, err)
		return
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	global.LogError(ctx, CategoryAPI, message, details)
}
