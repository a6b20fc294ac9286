package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/nse-analytics/internal/analytics"
	"github.com/mohamedkhairy/nse-analytics/internal/scheduler"
)

// MarketHandler serves watchlist-wide market views
type MarketHandler struct {
	service *analytics.Service
	symbols []string
	now     func() time.Time
}

// NewMarketHandler creates a new market handler. A nil now uses time.Now.
func NewMarketHandler(service *analytics.Service, symbols []string, now func() time.Time) *MarketHandler {
	if now == nil {
		now = time.Now
	}
	return &MarketHandler{service: service, symbols: symbols, now: now}
}

// Gainers handles GET /api/v1/market/gainers?limit=10
func (h *MarketHandler) Gainers(w http.ResponseWriter, r *http.Request) {
	h.movers(w, r, func(m *analytics.Movers) interface{} { return m.Gainers })
}

// Losers handles GET /api/v1/market/losers?limit=10
func (h *MarketHandler) Losers(w http.ResponseWriter, r *http.Request) {
	h.movers(w, r, func(m *analytics.Movers) interface{} { return m.Losers })
}

func (h *MarketHandler) movers(w http.ResponseWriter, r *http.Request, pick func(*analytics.Movers) interface{}) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	movers, cached, err := h.service.Movers(r.Context(), h.symbols, limit)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to rank market movers")
		return
	}
	respondWithData(w, pick(movers), &cached)
}

// Status handles GET /api/v1/market/status
func (h *MarketHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, scheduler.GetMarketStatus(h.now()), nil)
}

// Chart handles GET /api/v1/stocks/{symbol}/chart?period=3M
func (h *StockHandler) Chart(w http.ResponseWriter, r *http.Request) {
	chart, cached, err := h.service.Chart(r.Context(), mux.Vars(r)["symbol"], r.URL.Query().Get("period"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch chart data")
		return
	}
	respondWithData(w, chart, &cached)
}

// Search handles GET /api/v1/stocks/search/{query}
func (h *StockHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Search(r.Context(), h.symbols, mux.Vars(r)["query"])
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to search stocks")
		return
	}
	respondWithData(w, results, nil)
}
