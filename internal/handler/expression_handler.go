package handler

import (
	"encoding/json"
	"net/http"

	"ruleforge/internal/engine"
	"ruleforge/internal/logging"
	"ruleforge/internal/value"
)

// ExpressionHandler exposes the Evaluator port directly, for callers
// that want to evaluate a single expression without registering it as
// part of a stored rule set. Ungated: evaluating an expression carries
// no notion of identity (see model.User's doc comment).
type ExpressionHandler struct {
	engine *engine.Engine
}

// NewExpressionHandler creates a new ExpressionHandler.
func NewExpressionHandler(eng *engine.Engine) *ExpressionHandler {
	return &ExpressionHandler{engine: eng}
}

type evaluateRequest struct {
	// Syntax is "json-logic" (default) or "infix".
	Syntax     string                 `json:"syntax,omitempty"`
	Expression json.RawMessage        `json:"expression"`
	Data       map[string]interface{} `json:"data"`
}

type evaluateResponse struct {
	Result interface{} `json:"result"`
}

// Evaluate handles POST /v1/expressions/evaluate.
func (h *ExpressionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	syntax := engine.SyntaxJSONLogic
	var source string
	if req.Syntax == "infix" {
		syntax = engine.SyntaxInfix
		var s string
		if err := json.Unmarshal(req.Expression, &s); err != nil {
			writeError(w, http.StatusBadRequest, "infix expression must be a JSON string")
			return
		}
		source = s
	} else {
		source = string(req.Expression)
	}

	data := value.FromJSON(map[string]interface{}(req.Data))

	n, err := h.engine.Parse(source, syntax)
	if err != nil {
		logging.LogParseError(r.Context(), source, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.EvaluateNode(source, n, data)
	if err != nil {
		logging.LogAPIError(r.Context(), "expression evaluation failed", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{Result: result.ToJSON()})
}
