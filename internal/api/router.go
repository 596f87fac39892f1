package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/minwoopark/alarmsense/internal/api/middleware"
	"github.com/minwoopark/alarmsense/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// RateLimit may be nil when Redis is not configured.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	LatestHandler  http.HandlerFunc
	Phase1Handler  http.HandlerFunc
	Phase2Handler  http.HandlerFunc
	AnalyzeHandler http.HandlerFunc

	AnswerHandler http.HandlerFunc

	CacheStatsHandler http.HandlerFunc
	CacheClearHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Get("/alarm/latest", orNotImplemented(deps.LatestHandler))
		r.Post("/alarm/phase1", orNotImplemented(deps.Phase1Handler))
		r.Post("/alarm/phase2", orNotImplemented(deps.Phase2Handler))
		r.Post("/alarm/analyze", orNotImplemented(deps.AnalyzeHandler))

		r.Post("/question/answer", orNotImplemented(deps.AnswerHandler))

		r.Get("/system/cache/stats", orNotImplemented(deps.CacheStatsHandler))
		r.Post("/system/cache/clear", orNotImplemented(deps.CacheClearHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "endpoint not yet implemented")
	}
}
