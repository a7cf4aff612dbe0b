package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"ruleforge/internal/engine"
	"ruleforge/internal/logging"
	mongorepo "ruleforge/internal/repository/mongo"
	"ruleforge/internal/rule"
	"ruleforge/internal/service"
	"ruleforge/internal/value"
)

// RuleSetHandler exposes the Rule-engine port (validate/execute) and
// ruleset CRUD over HTTP, the thin surface SPEC_FULL.md's ambient stack
// carries around the core (spec.md §1 names this as an external
// collaborator, not core scope).
type RuleSetHandler struct {
	engine *engine.Engine
	repo   *mongorepo.RuleRepository
}

// NewRuleSetHandler creates a new RuleSetHandler.
func NewRuleSetHandler(eng *engine.Engine, repo *mongorepo.RuleRepository) *RuleSetHandler {
	return &RuleSetHandler{engine: eng, repo: repo}
}

// Put handles PUT /v1/rulesets/{productId} — replaces a product's whole
// rule set. Requires auth (mounted behind RequireAuth in the router).
func (h *RuleSetHandler) Put(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	var rules []*rule.Rule
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, rl := range rules {
		rl.ProductID = productID
	}

	if err := h.repo.DeleteByProductID(r.Context(), productID); err != nil {
		logging.LogAPIError(r.Context(), "failed to clear existing ruleset for "+productID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.repo.UpsertMany(r.Context(), rules); err != nil {
		logging.LogAPIError(r.Context(), "failed to store ruleset for "+productID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"rulesStored": len(rules)})
}

// Get handles GET /v1/rulesets/{productId}.
func (h *RuleSetHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	rules, err := h.repo.GetByProductID(r.Context(), productID)
	if err != nil {
		logging.LogAPIError(r.Context(), "failed to load ruleset for "+productID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// Validate handles POST /v1/rulesets/{productId}/validate.
func (h *RuleSetHandler) Validate(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	rules, err := h.repo.GetByProductID(r.Context(), productID)
	if err != nil {
		logging.LogAPIError(r.Context(), "failed to load ruleset for "+productID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := h.engine.Validate(rules)
	if !result.Valid() {
		for _, verr := range result.Errors {
			logging.LogRuleFailure(r.Context(), verr.RuleID, verr.Err)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

type executeRequest struct {
	Input      map[string]interface{} `json:"input"`
	Sequential bool                   `json:"sequential,omitempty"`
}

// Execute handles POST /v1/rulesets/{productId}/execute.
func (h *RuleSetHandler) Execute(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rules, err := h.repo.GetByProductID(r.Context(), productID)
	if err != nil {
		logging.LogAPIError(r.Context(), "failed to load ruleset for "+productID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(rules) == 0 {
		writeError(w, http.StatusNotFound, "no rules found for product")
		return
	}

	inputData := value.FromJSON(req.Input)
	execCtx := rule.FromValue(inputData)

	var result interface{}
	if req.Sequential {
		result, err = h.engine.ExecuteSequential(r.Context(), rules, execCtx)
	} else {
		result, err = h.engine.Execute(r.Context(), rules, execCtx)
	}
	if err != nil {
		logging.LogRuleFailure(r.Context(), productID, err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Report handles GET /v1/rulesets/{productId}/report, rendering a PDF:
// a validation report if the body carries no "input", an execution
// report against that input otherwise.
func (h *RuleSetHandler) Report(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["productId"]

	rules, err := h.repo.GetByProductID(r.Context(), productID)
	if err != nil {
		logging.LogAPIError(r.Context(), "failed to load ruleset for "+productID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req executeRequest
	hasInput := r.Body != nil && r.ContentLength != 0
	if hasInput {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var buf *bytes.Buffer
	if hasInput && len(req.Input) > 0 {
		inputData := value.FromJSON(req.Input)
		execCtx := rule.FromValue(inputData)

		execResult, err := h.engine.Execute(r.Context(), rules, execCtx)
		if err != nil {
			logging.LogRuleFailure(r.Context(), productID, err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		buf, err = service.GenerateExecutionReportPDF(productID, execResult)
		if err != nil {
			logging.LogAPIError(r.Context(), "failed to render execution report for "+productID, err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		result := h.engine.Validate(rules)
		if !result.Valid() {
			for _, verr := range result.Errors {
				logging.LogRuleFailure(r.Context(), verr.RuleID, verr.Err)
			}
		}
		var err error
		buf, err = service.GenerateValidationReportPDF(productID, result)
		if err != nil {
			logging.LogAPIError(r.Context(), "failed to render validation report for "+productID, err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
