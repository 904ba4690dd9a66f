package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-service/internal/aggregator"
	"github.com/ndewijer/portfolio-service/internal/api"
	"github.com/ndewijer/portfolio-service/internal/auth"
	"github.com/ndewijer/portfolio-service/internal/config"
	"github.com/ndewijer/portfolio-service/internal/database"
	"github.com/ndewijer/portfolio-service/internal/logger"
	"github.com/ndewijer/portfolio-service/internal/pricing"
	"github.com/ndewijer/portfolio-service/internal/repository"
	"github.com/ndewijer/portfolio-service/internal/scheduler"
	"github.com/ndewijer/portfolio-service/internal/service"
	"github.com/ndewijer/portfolio-service/internal/tracing"
	"github.com/ndewijer/portfolio-service/internal/version"
	"github.com/ndewijer/portfolio-service/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	if err := tracing.Init(tracing.Config{Enabled: cfg.Tracing.Enabled, ServiceVersion: version.Version}); err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	prices, cache, err := newPriceSource(cfg, log)
	if err != nil {
		return err
	}

	authenticator, err := newAuthenticator(cfg)
	if err != nil {
		return err
	}

	// Create services
	agg := aggregator.New(prices, cfg.Portfolio.StartingCash, cfg.Prices.Timeout, log)
	portfolioService := service.NewPortfolioService(store, agg, cfg.Portfolio.StartingCash, log)
	systemService := service.NewSystemService(store)

	sched := scheduler.New(log)
	if cache != nil && cfg.Prices.RefreshSchedule != "" {
		job := pricing.NewRefreshJob(cache, portfolioService, cfg.Prices.RefreshConcurrency, time.Minute, log)
		if err := sched.AddJob(cfg.Prices.RefreshSchedule, job); err != nil {
			return fmt.Errorf("failed to schedule price refresh: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// Create router
	router := api.NewRouter(systemService, portfolioService, authenticator,
		api.RouterConfig{AllowedOrigins: cfg.CORS.AllowedOrigins}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("store", cfg.Store.Driver).
			Str("prices", cfg.Prices.Source).
			Str("auth", cfg.Auth.Mode).
			Str("version", version.Version).
			Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exited")
	return nil
}

func openStore(cfg *config.Config, log zerolog.Logger) (service.PortfolioStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		db, err := database.Open(cfg.Store.DBPath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.Store.DBPath).Msg("Connected to database")
		return repository.NewSQLiteStore(db), func() { db.Close() }, nil
	default:
		log.Info().Str("path", cfg.Store.PortfoliosFile).Msg("Using portfolio file")
		return repository.NewFileStore(cfg.Store.PortfoliosFile, log), func() {}, nil
	}
}

// newPriceSource returns the source handed to the aggregator and, for live
// prices, the cache the refresh job keeps warm.
func newPriceSource(cfg *config.Config, log zerolog.Logger) (aggregator.PriceSource, *pricing.Cache, error) {
	switch cfg.Prices.Source {
	case config.PriceSourceStatic:
		static, err := pricing.ParseStatic(cfg.Prices.Static)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid static prices: %w", err)
		}
		return static, nil, nil
	default:
		client := yahoo.NewFinanceClient("", cfg.Prices.Timeout)
		cache := pricing.NewCache(yahoo.NewPriceSource(client), cfg.Prices.CacheTTL, cfg.Prices.Timeout, log)
		return cache, cache, nil
	}
}

func newAuthenticator(cfg *config.Config) (auth.Authenticator, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeFernet:
		f, err := auth.NewFernet(cfg.Auth.TokenTTL, cfg.Auth.FernetKey)
		if err != nil {
			return nil, fmt.Errorf("invalid fernet key: %w", err)
		}
		return f, nil
	default:
		return auth.Static{UserID: cfg.Auth.StaticUser}, nil
	}
}
