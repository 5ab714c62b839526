// Package api exposes churn forecasts over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/idhash"
	"churn-horizon-lab/internal/observability"
	"churn-horizon-lab/internal/orchestrator"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 2 * time.Second
)

// Handler serves the forecast endpoints.
type Handler struct {
	orch    *orchestrator.Orchestrator
	metrics *observability.Metrics // optional
	logger  *log.Logger

	checks []readinessCheck

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

// WithReadiness adds a dependency check to /ready, e.g. a database ping.
func (h *Handler) WithReadiness(name string, check func(context.Context) error) *Handler {
	h.checks = append(h.checks, readinessCheck{name: name, check: check})
	return h
}

// NewHandler creates a handler over an orchestrator. metrics may be nil.
func NewHandler(orch *orchestrator.Orchestrator, metrics *observability.Metrics, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}
	return &Handler{
		orch:     orch,
		metrics:  metrics,
		logger:   logger,
		shutdown: make(chan struct{}),
	}
}

// Shutdown closes open stream connections. Register it with http.Server.RegisterOnShutdown.
func (h *Handler) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}

type segmentsRequest struct {
	Scenario domain.ScenarioInput  `json:"scenario"`
	Segments []domain.SegmentInput `json:"segments"`
}

type sweepRequest struct {
	BaselineChurn   *float64  `json:"baseline_churn,omitempty"`
	PriceChangePcts []float64 `json:"price_change_pcts"`
}

type runRequest struct {
	Label    string                `json:"label"`
	Scenario domain.ScenarioInput  `json:"scenario"`
	Segments []domain.SegmentInput `json:"segments"`
}

// pointResponse is the JSON form of a stored analytics row.
type pointResponse struct {
	SegmentIndex  int     `json:"segment_index"` // -1 for the aggregate forecast
	SegmentName   string  `json:"segment_name"`
	Horizon       string  `json:"horizon"`
	ChurnRate     float64 `json:"churn_rate"`
	ChurnUpliftPP float64 `json:"churn_uplift_pp"`
	Multiplier    float64 `json:"multiplier"`
	CreatedAt     int64   `json:"created_at"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ready runs every dependency check; the first failure answers 503.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	for _, c := range h.checks {
		if err := c.check(ctx); err != nil {
			h.logger.Printf("readiness %s: %v", c.name, err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: fmt.Sprintf("%s: %v", c.name, err)})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) horizons(w http.ResponseWriter, r *http.Request) {
	var in domain.ScenarioInput
	if err := decodeBody(r, &in); err != nil {
		h.fail(w, "decode", err)
		return
	}
	writeJSON(w, http.StatusOK, h.orch.Horizons(in.Resolve()))
}

func (h *Handler) segments(w http.ResponseWriter, r *http.Request) {
	var req segmentsRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "decode", err)
		return
	}
	segments, err := domain.ResolveSegments(req.Segments)
	if err != nil {
		h.fail(w, "missing_field", err)
		return
	}
	writeJSON(w, http.StatusOK, h.orch.Segments(req.Scenario.Resolve(), segments))
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "decode", err)
		return
	}
	baseline := domain.DefaultBaselineChurn
	if req.BaselineChurn != nil {
		baseline = *req.BaselineChurn
	}
	writeJSON(w, http.StatusOK, h.orch.Sweep(baseline, req.PriceChangePcts))
}

func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, "decode", err)
		return
	}
	segments, err := domain.ResolveSegments(req.Segments)
	if err != nil {
		h.fail(w, "missing_field", err)
		return
	}

	result, err := h.orch.Run(r.Context(), orchestrator.RunRequest{
		Label:    req.Label,
		Scenario: req.Scenario.Resolve(),
		Segments: segments,
	})
	if err != nil {
		h.logger.Printf("run failed: %v", err)
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result.Run)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.orch.GetRun(r.Context(), runIDParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.orch.ListRuns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*domain.ForecastRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) runPoints(w http.ResponseWriter, r *http.Request) {
	runID := runIDParam(r)
	if _, err := h.orch.GetRun(r.Context(), runID); err != nil {
		writeError(w, err)
		return
	}
	points, err := h.orch.Points(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]pointResponse, 0, len(points))
	for _, p := range points {
		resp = append(resp, pointResponse{
			SegmentIndex:  p.SegmentIndex,
			SegmentName:   p.SegmentName,
			Horizon:       p.Horizon.Key(),
			ChurnRate:     p.ChurnRate,
			ChurnUpliftPP: p.ChurnUpliftPP,
			Multiplier:    p.Multiplier,
			CreatedAt:     p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// runIDParam accepts either the UUID form or its base58 short code.
func runIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "runID")
	if _, err := uuid.Parse(raw); err == nil {
		return raw
	}
	if id, err := idhash.ParseShortCode(raw); err == nil {
		return id
	}
	return raw
}

func (h *Handler) fail(w http.ResponseWriter, reason string, err error) {
	if h.metrics != nil {
		h.metrics.RecordInputError(reason)
	}
	writeError(w, err)
}
