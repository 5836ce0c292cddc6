// Package server exposes the appraisal flow over HTTP.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tbxark/appraisalagent/logger"
)

type Options struct {
	CORSOrigins []string
	Services    Services
}

func NewRouter(flow Flow, log *logger.Logger, opts Options) http.Handler {
	log = logger.OrNop(log)
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverer(log))
	r.Use(accessLog(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	RegisterRoutes(r, NewHandler(flow, opts.Services, log))
	return r
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/chat", h.Chat)
	r.Get("/sessions/{id}", h.GetSession)
	r.Delete("/sessions/{id}", h.DeleteSession)
	r.Get("/health", h.Health)

	if h.services.Recommender != nil {
		r.Get("/employees/{id}/recommendations", h.Recommendations)
	}
	if h.services.FactorRater != nil {
		r.Post("/performance-factors/score", h.ScoreFactors)
	}
	if h.services.Suggester != nil {
		r.Post("/self-appraisal/suggestions", h.Suggestions)
	}
}

func accessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic serving request", "path", r.URL.Path, "panic", rec)
					respondError(w, http.StatusInternalServerError, CodeInternal, errors.New("internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
