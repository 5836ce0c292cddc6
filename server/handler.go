package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tbxark/appraisalagent/agent"
	"github.com/tbxark/appraisalagent/backend"
	"github.com/tbxark/appraisalagent/logger"
	"github.com/tbxark/appraisalagent/types"
)

const maxBodyBytes = 1 << 20

// Flow is the part of agent.Flow the transport needs.
type Flow interface {
	Invoke(ctx context.Context, req *agent.Request) (*agent.Response, error)
	Session(ctx context.Context, id string) (*agent.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SessionCount(ctx context.Context) (int, error)
}

type chatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=employee hr lead"`
	Message   string `json:"message" validate:"required"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type Handler struct {
	flow     Flow
	services Services
	validate *validator.Validate
	log      *logger.Logger
}

func NewHandler(flow Flow, services Services, log *logger.Logger) *Handler {
	return &Handler{flow: flow, services: services, validate: validator.New(), log: logger.OrNop(log)}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := sonic.ConfigDefault.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// decode reads and validates a request body, answering 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeBody(w, r, dst); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err)
		return false
	}
	return true
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := decodeBody(w, r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}
	payload.SessionID = strings.TrimSpace(payload.SessionID)
	payload.Role = strings.ToLower(strings.TrimSpace(payload.Role))
	if err := h.validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}

	resp, err := h.flow.Invoke(r.Context(), &agent.Request{
		SessionID: payload.SessionID,
		Role:      types.Role(payload.Role),
		Message:   payload.Message,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.flow.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	n, err := h.flow.SessionCount(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sessions: n})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	var fe *backend.FetchError
	if errors.As(err, &fe) {
		respondError(w, status, code, errors.New(backend.UserMessage(err, fe.ID)))
		return
	}
	respondError(w, status, code, err)
}
