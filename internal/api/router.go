package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/nse-analytics/internal/analytics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds everything the HTTP surface is built from
type RouterConfig struct {
	Service      *analytics.Service
	Symbols      []string
	Hub          http.Handler        // websocket endpoint; nil disables /ws
	Scheduler    SchedulerController // nil when the scheduler is disabled
	RateLimitRPS int
	Now          func() time.Time // market clock; nil uses time.Now
}

// NewRouter builds the API router wrapped in the middleware chain
func NewRouter(cfg RouterConfig) http.Handler {
	analyticsHandler := NewAnalyticsHandler(cfg.Service)
	stockHandler := NewStockHandler(cfg.Service, cfg.Symbols)
	systemHandler := NewSystemHandler(cfg.Service, cfg.Scheduler)
	marketHandler := NewMarketHandler(cfg.Service, cfg.Symbols, cfg.Now)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Route not found")
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router := mux.NewRouter()
	router.NotFoundHandler = notFound
	router.MethodNotAllowedHandler = methodNotAllowed

	// Route-aware metrics need the matched route
	router.Use(mux.MiddlewareFunc(MetricsMiddleware()))

	// A subrouter reports a method mismatch through its own handlers
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.NotFoundHandler = notFound
	v1.MethodNotAllowedHandler = methodNotAllowed

	// Analytics endpoints
	v1.HandleFunc("/analytics/technical/{symbol}", analyticsHandler.Technical).Methods("GET")
	v1.HandleFunc("/analytics/indicators", analyticsHandler.Indicators).Methods("POST")
	v1.HandleFunc("/analytics/portfolio", analyticsHandler.Portfolio).Methods("POST")

	// Stock endpoints
	v1.HandleFunc("/stocks", stockHandler.ListSymbols).Methods("GET")
	v1.HandleFunc("/stocks/search/{query}", stockHandler.Search).Methods("GET")
	v1.HandleFunc("/stocks/{symbol}/quote", stockHandler.Quote).Methods("GET")
	v1.HandleFunc("/stocks/{symbol}/chart", stockHandler.Chart).Methods("GET")

	// Market endpoints
	v1.HandleFunc("/market/gainers", marketHandler.Gainers).Methods("GET")
	v1.HandleFunc("/market/losers", marketHandler.Losers).Methods("GET")
	v1.HandleFunc("/market/status", marketHandler.Status).Methods("GET")

	// Cache endpoints
	v1.HandleFunc("/cache/stats", systemHandler.CacheStats).Methods("GET")
	v1.HandleFunc("/cache", systemHandler.ClearCache).Methods("DELETE")

	// Scheduler endpoints
	v1.HandleFunc("/scheduler/status", systemHandler.SchedulerStatus).Methods("GET")
	v1.HandleFunc("/scheduler/trigger", systemHandler.TriggerRefresh).Methods("POST")

	// Health check endpoints
	router.HandleFunc("/health", systemHandler.Health).Methods("GET")
	router.HandleFunc("/ready", systemHandler.Ready).Methods("GET")
	router.HandleFunc("/live", systemHandler.Live).Methods("GET")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	if cfg.Hub != nil {
		router.Handle("/ws", cfg.Hub)
	}

	middlewares := ChainMiddleware(
		CORSMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(),
		ErrorHandlingMiddleware(),
		RateLimitMiddleware(cfg.RateLimitRPS),
	)

	return middlewares(router)
}
