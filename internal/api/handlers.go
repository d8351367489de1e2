// Package api exposes the host-platform HTTP surface: one endpoint per
// batch kind plus a health probe.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/iterable-bridge/internal/bridge"
	"github.com/ignite/iterable-bridge/internal/iterable"
	"github.com/ignite/iterable-bridge/internal/pkg/httputil"
	"github.com/ignite/iterable-bridge/internal/platform"
)

// Handlers contains the HTTP handlers for batch processing.
type Handlers struct {
	processor *bridge.Processor
}

// NewHandlers creates a Handlers instance around the given processor.
func NewHandlers(processor *bridge.Processor) *Handlers {
	return &Handlers{processor: processor}
}

// Routes assembles the router.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Post("/v1/events", h.HandleEventBatch)
	r.Post("/v1/audiences", h.HandleAudienceBatch)
	r.Get("/health", h.HandleHealth)
	return r
}

// EventBatchResponse acknowledges a fully processed event batch.
type EventBatchResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

// ListCallResult is the wire form of one per-list outcome.
type ListCallResult struct {
	ListID int    `json:"list_id"`
	Op     string `json:"op"`
	Error  string `json:"error,omitempty"`
}

// AudienceBatchResponse reports per-list outcomes for an audience batch.
// Partial failure still yields a 200: list dispatch is best-effort and the
// caller decides what to do with individual list errors.
type AudienceBatchResponse struct {
	Status  string           `json:"status"`
	ID      string           `json:"id,omitempty"`
	Results []ListCallResult `json:"results"`
}

// HandleEventBatch processes one account's event batch synchronously.
func (h *Handlers) HandleEventBatch(w http.ResponseWriter, r *http.Request) {
	var batch platform.EventBatch
	if !httputil.Decode(w, r, &batch) {
		return
	}

	if err := h.processor.ProcessEvents(r.Context(), &batch); err != nil {
		writeProcessingError(w, err)
		return
	}
	httputil.OK(w, EventBatchResponse{Status: "ok", ID: batch.ID.String()})
}

// HandleAudienceBatch processes one account's audience membership changes.
func (h *Handlers) HandleAudienceBatch(w http.ResponseWriter, r *http.Request) {
	var batch platform.AudienceBatch
	if !httputil.Decode(w, r, &batch) {
		return
	}

	results, err := h.processor.ProcessAudiences(r.Context(), &batch)
	if err != nil {
		writeProcessingError(w, err)
		return
	}

	resp := AudienceBatchResponse{
		Status:  "ok",
		ID:      batch.ID.String(),
		Results: make([]ListCallResult, 0, len(results)),
	}
	for _, res := range results {
		out := ListCallResult{ListID: res.ListID, Op: res.Op}
		if res.Err != nil {
			out.Error = res.Err.Error()
			resp.Status = "partial"
		}
		resp.Results = append(resp.Results, out)
	}
	httputil.OK(w, resp)
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// writeProcessingError maps engine failures onto HTTP statuses: batches the
// platform sent malformed or under-identified are 422s, vendor rejections
// and transport failures are 502s so the platform knows to retry the batch.
func writeProcessingError(w http.ResponseWriter, err error) {
	var envErr *bridge.UnsupportedEnvironmentError
	var apiErr *iterable.APIError
	var statusErr *iterable.StatusError

	switch {
	case errors.Is(err, bridge.ErrNoAPIKey),
		errors.Is(err, bridge.ErrNoIdentifier),
		errors.Is(err, bridge.ErrNoEmail),
		errors.As(err, &envErr):
		httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &apiErr), errors.As(err, &statusErr):
		httputil.Error(w, http.StatusBadGateway, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
