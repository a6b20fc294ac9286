package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/nse-analytics/internal/analytics"
	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/mohamedkhairy/nse-analytics/pkg/indicator"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
	"github.com/tidwall/gjson"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// response is the envelope of every successful API call
type response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Cached    *bool       `json:"cached,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respondWithData(w http.ResponseWriter, data interface{}, cached *bool) {
	respondWithJSON(w, http.StatusOK, response{
		Success:   true,
		Data:      data,
		Cached:    cached,
		Timestamp: time.Now().UTC(),
	})
}

// AnalyticsHandler handles technical analysis and portfolio endpoints
type AnalyticsHandler struct {
	service *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Technical handles GET /api/v1/analytics/technical/{symbol}?period=3M
func (h *AnalyticsHandler) Technical(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	period := r.URL.Query().Get("period")

	analysis, cached, err := h.service.Technical(r.Context(), symbol, period)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to calculate technical analysis")
		return
	}

	respondWithData(w, analysis, &cached)
}

// Indicators handles POST /api/v1/analytics/indicators with body {"prices":[...]}
func (h *AnalyticsHandler) Indicators(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	prices, err := parsePrices(body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := h.service.Indicators(prices)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to calculate indicators")
		return
	}

	respondWithData(w, analysis, nil)
}

// parsePrices extracts the numeric "prices" array, naming the first bad element
func parsePrices(body []byte) ([]float64, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid request body")
	}
	field := gjson.GetBytes(body, "prices")
	if !field.IsArray() {
		return nil, errors.New("prices array is required")
	}

	elements := field.Array()
	prices := make([]float64, len(elements))
	for i, el := range elements {
		if el.Type != gjson.Number {
			return nil, &indicator.InvalidInputError{
				Index:  i,
				Field:  "price",
				Reason: fmt.Sprintf("not a number: %s", el.Raw),
			}
		}
		prices[i] = el.Float()
	}
	return prices, nil
}

// portfolioRequest is the body of POST /api/v1/analytics/portfolio
type portfolioRequest struct {
	Holdings []models.Holding `json:"holdings"`
}

// Portfolio handles POST /api/v1/analytics/portfolio
func (h *AnalyticsHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	if !gjson.GetBytes(body, "holdings").IsArray() {
		respondWithError(w, http.StatusBadRequest, "Holdings array is required")
		return
	}

	var req portfolioRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Portfolio(r.Context(), req.Holdings)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to analyze portfolio")
		return
	}

	respondWithData(w, result, nil)
}

// StockHandler handles watchlist and quote endpoints
type StockHandler struct {
	service *analytics.Service
	symbols []string
}

// NewStockHandler creates a new stock handler over the configured watchlist
func NewStockHandler(service *analytics.Service, symbols []string) *StockHandler {
	return &StockHandler{service: service, symbols: symbols}
}

// ListSymbols handles GET /api/v1/stocks
func (h *StockHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, map[string]interface{}{
		"symbols": h.symbols,
		"count":   len(h.symbols),
	}, nil)
}

// Quote handles GET /api/v1/stocks/{symbol}/quote
func (h *StockHandler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, cached, err := h.service.Quote(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch quote")
		return
	}
	respondWithData(w, quote, &cached)
}

// statusForError maps service errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrSymbolNotFound):
		return http.StatusNotFound
	case analytics.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := statusForError(err)
	message := err.Error()
	switch {
	case errors.Is(err, models.ErrInsufficientHistory):
		message = "Insufficient historical data for technical analysis"
	case code == http.StatusNotFound:
		message = fmt.Sprintf("Symbol not found: %s", mux.Vars(r)["symbol"])
	case code >= http.StatusInternalServerError:
		logger.WithContext(r.Context()).Error(fallback,
			logger.String("path", r.URL.Path),
			logger.ErrorField(err),
		)
		logger.ErrorsTotal.WithLabelValues("api", "internal").Inc()
		message = fallback
	}
	respondWithError(w, code, message)
}
