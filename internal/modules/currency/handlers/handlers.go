// Package handlers provides HTTP handlers for exchange rate data.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/backtester/internal/domain"
	"github.com/rs/zerolog"
)

// RateStore loads historical exchange rates
type RateStore interface {
	LoadExchangeRates(ctx context.Context, start, end time.Time) ([]domain.ExchangeRatePoint, error)
}

// Handler handles currency HTTP requests
type Handler struct {
	store RateStore
	log   zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(store RateStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "currency").Logger(),
	}
}

// HandleGetRates handles GET /api/currency/rates?from=&to=
func (h *Handler) HandleGetRates(w http.ResponseWriter, r *http.Request) {
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

	rates, err := h.store.LoadExchangeRates(r.Context(), from, to)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load exchange rates")
		http.Error(w, "Failed to load exchange rates", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"rates": rates,
			"count": len(rates),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetAvailableCurrencies handles GET /api/currency/available-currencies
func (h *Handler) HandleGetAvailableCurrencies(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"currencies": []domain.Currency{domain.CurrencyEUR, domain.CurrencyCZK, domain.CurrencyUSD},
			"base":       domain.CurrencyEUR,
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
