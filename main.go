package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confluence-engine/config"
	"confluence-engine/internal/api"
	"confluence-engine/internal/auth"
	"confluence-engine/internal/cache"
	"confluence-engine/internal/database"
	"confluence-engine/internal/engine"
	"confluence-engine/internal/events"
	"confluence-engine/internal/logging"
	"confluence-engine/internal/marketdata"
	"confluence-engine/internal/report"
	"confluence-engine/internal/scheduler"
	"confluence-engine/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "generate-config" {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Sample configuration written to config.json")
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	// Initialize event bus
	eventBus := events.NewEventBus()
	logger.Info("Event bus initialized")

	// Initialize database (optional; the engine degrades to in-memory
	// evaluation without persistence)
	var db *database.DB
	var repo *database.Repository
	if cfg.DatabaseConfig.URL != "" {
		db, err = database.NewDB(database.Config{
			URL:             cfg.DatabaseConfig.URL,
			MaxConns:        cfg.DatabaseConfig.MaxConns,
			MinConns:        cfg.DatabaseConfig.MinConns,
			MaxConnLifetime: time.Duration(cfg.DatabaseConfig.MaxConnLifetime) * time.Minute,
		})
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.RunMigrations(ctx); err != nil {
			cancel()
			logger.Fatal("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		cancel()

		repo = database.NewRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, running without persistence")
	}

	// Initialize Redis cache (optional)
	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache", "error", err)
			cacheService = nil
		} else {
			defer cacheService.Close()
		}
	}

	// Resolve the active calibration: profile file first, then the stored
	// active version, then the builtin defaults
	profiles := resolveProfiles(cfg, repo, logger)
	logger.Info("Calibration profiles loaded", "version", profiles.Version)

	// Market data provider
	provider := marketdata.NewProvider(cfg.MarketDataConfig)

	// Evaluation pipeline
	cacheTTL := time.Duration(cfg.RedisConfig.TTL) * time.Second
	evaluator := service.NewEvaluator(profiles, provider, repo, cacheService, eventBus, cacheTTL)

	// Authentication (optional)
	var authService *auth.Service
	if cfg.AuthConfig.Enabled {
		if repo == nil {
			logger.Fatal("Authentication requires a database")
			os.Exit(1)
		}
		authService = auth.NewService(repo, cfg.AuthConfig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := authService.SeedAdmin(ctx, cfg.AuthConfig.AdminEmail, cfg.AuthConfig.AdminPassword); err != nil {
			logger.Warn("Failed to seed admin account", "error", err)
		}
		cancel()
		logger.Info("Authentication enabled")
	}

	// Report generator
	reports := report.NewGenerator(cfg.ReportConfig, cacheService, cacheTTL)

	// Watchlist sweep scheduler
	sweeper := scheduler.NewScheduler(evaluator, eventBus, cfg.SchedulerConfig)
	sweeper.Start()

	// HTTP API server
	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ProductionMode: os.Getenv("GIN_MODE") == "release",
	}, repo, evaluator, reports, cacheService, eventBus, authService)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	sweeper.Stop()

	shutdownTimeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}

// resolveProfiles picks the calibration to activate at startup
func resolveProfiles(cfg *config.Config, repo *database.Repository, logger *logging.Logger) *engine.ProfileSet {
	if cfg.EngineConfig.ProfilePath != "" {
		ps, err := engine.LoadProfileSet(cfg.EngineConfig.ProfilePath)
		if err != nil {
			logger.Fatal("Failed to load profile file", "path", cfg.EngineConfig.ProfilePath, "error", err)
			os.Exit(1)
		}
		return ps
	}

	if repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ps, err := repo.GetActiveProfileVersion(ctx)
		if err != nil {
			logger.Warn("Failed to read stored profile version", "error", err)
		} else if ps != nil {
			return ps
		}
	}

	return engine.DefaultProfileSet()
}
