package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers index data routes under /backtest
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/backtest/indexes", h.HandleGetAvailableIndexes)
	r.Get("/backtest/indexes/{code}/data", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetIndexData(w, r, chi.URLParam(r, "code"))
	})
	r.Get("/backtest/etf-index", h.HandleGetETFIndex)
}
