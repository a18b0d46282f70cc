package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers backtest routes under /backtest
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/backtest/simulate", h.HandleSimulate)
	r.Post("/backtest/monte-carlo", h.HandleMonteCarlo)
	r.Post("/backtest/rebalancing", h.HandleRebalancing)
}
