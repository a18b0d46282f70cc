// Package handlers provides HTTP handlers for index data operations.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/aristath/backtester/internal/modules/indexes"
	"github.com/rs/zerolog"
)

// IndexStore is the subset of the index repository used by the handlers
type IndexStore interface {
	indexes.Loader
	GetAvailableIndexes(ctx context.Context) ([]indexes.AvailableIndex, error)
	GetIndexCodeForETF(ctx context.Context, indexName string) (string, bool, error)
}

// Handler handles index data HTTP requests
type Handler struct {
	store IndexStore
	log   zerolog.Logger
}

// NewHandler creates a new index data handler
func NewHandler(store IndexStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "indexes").Logger(),
	}
}

// HandleGetAvailableIndexes handles GET /api/backtest/indexes
func (h *Handler) HandleGetAvailableIndexes(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.GetAvailableIndexes(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get available indexes")
		http.Error(w, "Failed to get available indexes", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"indexes": list,
			"count":   len(list),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetIndexData handles GET /api/backtest/indexes/{code}/data?from=&to=
func (h *Handler) HandleGetIndexData(w http.ResponseWriter, r *http.Request, code string) {
	var from, to time.Time
	var err error

	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = domain.ParseDate(s); err != nil {
			http.Error(w, "Invalid from date", http.StatusBadRequest)
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = domain.ParseDate(s); err != nil {
			http.Error(w, "Invalid to date", http.StatusBadRequest)
			return
		}
	}

	data, err := h.store.LoadIndexData(r.Context(), code, from, to)
	if err != nil {
		h.log.Error().Err(err).Str("index", code).Msg("Failed to load index data")
		http.Error(w, "Failed to load index data", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"indexCode": data.IndexCode,
			"points":    data.Points,
			"count":     len(data.Points),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetETFIndex handles GET /api/backtest/etf-index?name=
func (h *Handler) HandleGetETFIndex(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name parameter is required", http.StatusBadRequest)
		return
	}

	code, found, err := h.store.GetIndexCodeForETF(r.Context(), name)
	if err != nil {
		h.log.Error().Err(err).Str("name", name).Msg("Failed to resolve index for ETF")
		http.Error(w, "Failed to resolve index", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "No index found for name", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"indexName": name,
			"indexCode": code,
		},
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
