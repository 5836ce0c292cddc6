package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tbxark/appraisalagent/score"
)

type Recommender interface {
	Recommendations(ctx context.Context, employeeID string) (string, error)
}

type FactorRater interface {
	Rate(ctx context.Context, factors []score.Factor) ([]score.FactorRating, error)
}

type Suggester interface {
	Suggest(ctx context.Context, responses []string) (string, error)
}

// Services are the one-shot review tools served next to the chat flow.
// A nil service leaves its route unregistered.
type Services struct {
	Recommender Recommender
	FactorRater FactorRater
	Suggester   Suggester
}

type recommendationsResponse struct {
	EmployeeID      string `json:"employee_id"`
	Recommendations string `json:"recommendations"`
}

type factorsRequest struct {
	Factors []score.Factor `json:"factors" validate:"required,min=1,max=50,dive"`
}

type factorsResponse struct {
	Ratings []score.FactorRating `json:"ratings"`
}

type suggestionsRequest struct {
	Responses []string `json:"responses" validate:"required,min=1,max=50,dive,required"`
}

type suggestionsResponse struct {
	Summary string `json:"summary"`
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	text, err := h.services.Recommender.Recommendations(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{EmployeeID: id, Recommendations: text})
}

func (h *Handler) ScoreFactors(w http.ResponseWriter, r *http.Request) {
	var payload factorsRequest
	if !h.decode(w, r, &payload) {
		return
	}
	ratings, err := h.services.FactorRater.Rate(r.Context(), payload.Factors)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, factorsResponse{Ratings: ratings})
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	var payload suggestionsRequest
	if !h.decode(w, r, &payload) {
		return
	}
	summary, err := h.services.Suggester.Suggest(r.Context(), payload.Responses)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Summary: summary})
}
