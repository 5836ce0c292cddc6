package server

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/tbxark/appraisalagent/agent"
	"github.com/tbxark/appraisalagent/backend"
	"github.com/tbxark/appraisalagent/dialogue"
	"github.com/tbxark/appraisalagent/llm"
	"github.com/tbxark/appraisalagent/lookup"
	"github.com/tbxark/appraisalagent/score"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeRoleMismatch   = "role_mismatch"
	CodeInternal       = "internal_error"
	CodeUpstream       = "upstream_error"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// statusFor maps flow and service errors onto HTTP statuses. Failures of the
// appraisal backend or the model are reported as 502.
func statusFor(err error) (int, string) {
	var fe *backend.FetchError
	switch {
	case errors.Is(err, agent.ErrInvalidRequest),
		errors.Is(err, lookup.ErrNoSubject),
		errors.Is(err, score.ErrNoFactors),
		errors.Is(err, score.ErrDuplicateFactor),
		errors.Is(err, dialogue.ErrNoResponses):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, agent.ErrSessionNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, agent.ErrRoleMismatch):
		return http.StatusConflict, CodeRoleMismatch
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.As(err, &fe), errors.Is(err, llm.ErrGeneration):
		return http.StatusBadGateway, CodeUpstream
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
