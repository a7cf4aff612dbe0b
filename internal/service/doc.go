// Package service contains the business logic layer supporting the HTTP
// surface: JWT issuing, demo-account auth, and report rendering. The
// rule engine itself lives in internal/engine; this package only adapts
// it to what the handlers need.
package service
