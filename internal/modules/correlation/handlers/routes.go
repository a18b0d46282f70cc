package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers correlation routes under /backtest
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/backtest/correlation", h.HandleCorrelation)
}
