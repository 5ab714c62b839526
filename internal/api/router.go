package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the forecast endpoints. metricsHandler serves /metrics and may be nil.
func NewRouter(h *Handler, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/churn", func(r chi.Router) {
			r.Post("/horizons", h.horizons)
			r.Post("/segments", h.segments)
			r.Post("/sweep", h.sweep)
			r.Get("/stream", h.stream)
		})
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", h.createRun)
			r.Get("/", h.listRuns)
			r.Get("/{runID}", h.getRun)
			r.Get("/{runID}/points", h.runPoints)
		})
	})

	return r
}

// instrument records request counts and latency by route pattern.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.RecordHTTPRequest(route, status, time.Since(start))
	})
}
