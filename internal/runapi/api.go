// Package runapi exposes the HTTP API for submitting and querying
// farm analysis runs.
package runapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/herdsight/internal/analysis"
)

// RunService defines the business operations runapi needs.
type RunService interface {
	Submit(ctx context.Context, req analysis.SubmitRequest) (*analysis.SubmitResult, error)
	Get(ctx context.Context, id string) (*analysis.Result, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    RunService
}

// New creates a new API handler.
func New(logger log.Logger, svc RunService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("run service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", a.handleSubmitRun)
		r.Get("/runs/{id}", a.handleGetRun)
	})
}

// submitPayload is the request body for POST /api/v1/runs.
type submitPayload struct {
	FarmCode string   `json:"farm_code"`
	Language string   `json:"language"`
	Months   int      `json:"months"`
	KPIs     []string `json:"kpis"`
}

func (a *API) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if payload.FarmCode == "" {
		http.Error(w, `{"error":"farm_code is required"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("herdsight.farm.code", payload.FarmCode))

	res, err := a.svc.Submit(r.Context(), analysis.SubmitRequest{
		FarmCode: payload.FarmCode,
		Language: payload.Language,
		Months:   payload.Months,
		Selected: payload.KPIs,
	})
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to submit run", "farm_code", payload.FarmCode)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if res.Skipped {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     res.ID,
			"reason": res.Reason,
		})
		return
	}

	span.SetAttributes(attribute.String("herdsight.run.id", res.ID))
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id": res.ID,
	})
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("herdsight.run.id", id))

	result, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get run", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("herdsight.run.status", string(result.Status)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
