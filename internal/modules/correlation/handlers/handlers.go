// Package handlers provides HTTP handlers for correlation analysis.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/internal/modules/correlation"
	"github.com/rs/zerolog"
)

// Correlator computes correlations for a set of assets
type Correlator interface {
	Correlate(ctx context.Context, assets []correlation.Asset, start, end time.Time) (correlation.Result, error)
}

// Handler handles correlation HTTP requests
type Handler struct {
	correlator Correlator
	log        zerolog.Logger
}

// NewHandler creates a new correlation handler
func NewHandler(correlator Correlator, log zerolog.Logger) *Handler {
	return &Handler{
		correlator: correlator,
		log:        log.With().Str("handler", "correlation").Logger(),
	}
}

// CorrelationRequest represents a request to correlate portfolio assets
type CorrelationRequest struct {
	Portfolio []correlation.Asset `json:"portfolio"`
	StartDate string              `json:"startDate"`
	EndDate   string              `json:"endDate"`
}

// HandleCorrelation handles POST /api/backtest/correlation
func (h *Handler) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	var req CorrelationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var start, end time.Time
	var err error
	if req.StartDate != "" {
		if start, err = domain.ParseDate(req.StartDate); err != nil {
			http.Error(w, "Invalid startDate", http.StatusBadRequest)
			return
		}
	}
	if req.EndDate != "" {
		if end, err = domain.ParseDate(req.EndDate); err != nil {
			http.Error(w, "Invalid endDate", http.StatusBadRequest)
			return
		}
	}
	for _, a := range req.Portfolio {
		if a.IndexCode == "" {
			http.Error(w, "indexCode is required for every asset", http.StatusBadRequest)
			return
		}
	}

	result, err := h.correlator.Correlate(r.Context(), req.Portfolio, start, end)
	if err != nil {
		h.log.Error().Err(err).Int("assets", len(req.Portfolio)).Msg("Failed to compute correlation")
		http.Error(w, "Failed to compute correlation", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
