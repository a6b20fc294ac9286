package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohamedkhairy/nse-analytics/internal/analytics"
	"github.com/mohamedkhairy/nse-analytics/internal/api"
	"github.com/mohamedkhairy/nse-analytics/internal/cache"
	"github.com/mohamedkhairy/nse-analytics/internal/config"
	"github.com/mohamedkhairy/nse-analytics/internal/marketdata"
	"github.com/mohamedkhairy/nse-analytics/internal/scheduler"
	"github.com/mohamedkhairy/nse-analytics/internal/wsgateway"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting NSE analytics service",
		logger.Int("port", cfg.API.Port),
		logger.String("provider", cfg.MarketData.Provider),
		logger.String("cache_backend", cfg.Cache.Backend),
		logger.Int("rate_limit_rps", cfg.API.RateLimitRPS),
	)

	// Initialize cache
	analysisCache, err := cache.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize cache",
			logger.ErrorField(err),
		)
	}
	defer analysisCache.Close()

	// Initialize market data provider
	provider, err := marketdata.NewProvider(cfg.MarketData)
	if err != nil {
		logger.Fatal("Failed to initialize market data provider",
			logger.ErrorField(err),
		)
	}

	watchlist := marketdata.Watchlist(provider, cfg.MarketData.Symbols)
	if len(watchlist) < len(cfg.MarketData.Symbols) {
		logger.Warn("Dropped symbols the provider cannot serve",
			logger.Int("configured", len(cfg.MarketData.Symbols)),
			logger.Int("watchlist", len(watchlist)),
		)
	}

	// Initialize analytics service
	service := analytics.NewService(provider, analysisCache, analytics.Config{
		MinBars:     cfg.Analysis.MinBars,
		AnalysisTTL: cfg.Analysis.CacheTTL,
		QuoteTTL:    cfg.Analysis.QuoteTTL,
		ChartTTL:    cfg.Analysis.ChartTTL,
		MoversTTL:   cfg.Analysis.MoversTTL,
	})

	// Initialize WebSocket hub
	hub := wsgateway.NewHub(cfg.WSGateway)
	if err := hub.Start(); err != nil {
		logger.Fatal("Failed to start WebSocket hub",
			logger.ErrorField(err),
		)
	}

	// Initialize scheduler
	var sched *scheduler.Scheduler
	var controller api.SchedulerController
	if cfg.Scheduler.Enabled {
		// Redis expires keys itself; only the in-process cache needs sweeping
		var cleaner scheduler.Cleaner
		if c, ok := analysisCache.(scheduler.Cleaner); ok {
			cleaner = c
		}

		sched = scheduler.New(scheduler.Config{
			Symbols:         watchlist,
			Period:          cfg.Analysis.HistoryPeriod,
			RefreshInterval: cfg.Scheduler.RefreshInterval,
			CleanupInterval: cfg.Scheduler.CleanupInterval,
			MoversInterval:  cfg.Scheduler.MoversInterval,
			MarketHoursOnly: cfg.Scheduler.MarketHoursOnly,
		}, service, hub, cleaner)

		if err := sched.Start(); err != nil {
			logger.Fatal("Failed to start scheduler",
				logger.ErrorField(err),
			)
		}
		controller = sched
	}

	handler := api.NewRouter(api.RouterConfig{
		Service:      service,
		Symbols:      watchlist,
		Hub:          hub,
		Scheduler:    controller,
		RateLimitRPS: cfg.API.RateLimitRPS,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      handler,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down NSE analytics service")

	if sched != nil {
		sched.Stop()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	// Hijacked websocket connections are not tracked by Shutdown
	hub.Stop()

	logger.Info("NSE analytics service stopped")
}
