package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"ruleforge/internal/handler"
	"ruleforge/internal/middleware"
)

// Handlers bundles every handler the router needs to mount, built by the
// composition root (cmd/server).
type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	RuleSet    *handler.RuleSetHandler
	Expression *handler.ExpressionHandler
}

// NewRouter creates and configures the HTTP router: health check, demo
// auth, and the three rule-engine surfaces (rulesets CRUD/validate/
// execute, single-expression evaluate). Ruleset writes (PUT) go behind
// AuthMiddleware; validate/execute/evaluate are left open since the
// core has no notion of identity.
func NewRouter(h Handlers, auth *middleware.AuthMiddleware) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)

	apiV1 := r.PathPrefix("/v1").Subrouter()

	apiV1.HandleFunc("/auth/signup", h.Auth.Signup).Methods(http.MethodPost)
	apiV1.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)

	apiV1.HandleFunc("/rulesets/{productId}", h.RuleSet.Get).Methods(http.MethodGet)
	apiV1.Handle("/rulesets/{productId}",
		auth.RequireAuth(http.HandlerFunc(h.RuleSet.Put))).Methods(http.MethodPut)
	apiV1.HandleFunc("/rulesets/{productId}/validate", h.RuleSet.Validate).Methods(http.MethodPost)
	apiV1.HandleFunc("/rulesets/{productId}/execute", h.RuleSet.Execute).Methods(http.MethodPost)
	apiV1.HandleFunc("/rulesets/{productId}/report", h.RuleSet.Report).Methods(http.MethodGet)

	apiV1.HandleFunc("/expressions/evaluate", h.Expression.Evaluate).Methods(http.MethodPost)

	return r
}
