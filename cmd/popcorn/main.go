package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"popcorn/internal/clients/metadata"
	"popcorn/internal/config"
	"popcorn/internal/core"
	"popcorn/internal/database"
	"popcorn/internal/handlers"
	"popcorn/internal/metrics"
	"popcorn/internal/telemetry"
	"popcorn/internal/utils"
)

func main() {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger, optionally also writing to a file
	var logOut io.Writer
	if cfg.App.LogToFile {
		if err := os.MkdirAll(cfg.App.DataPath, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		logFile, err := os.OpenFile(filepath.Join(cfg.App.DataPath, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		logOut = logFile
	}
	logger := utils.NewLogger(cfg.App.Debug, cfg.App.LogFormat, logOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Warn("Tracing disabled:", err)
	}
	metrics.Register(prometheus.DefaultRegisterer)

	// Initialize database
	db, err := database.NewSQLite(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	// Response cache: redis when configured, otherwise in process
	var cache metadata.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := metadata.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to configure redis:", err)
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("Redis is not reachable yet:", err)
		}
		cache = redisCache
	} else {
		cache = metadata.NewMemoryCache(2000)
	}

	// Create manager
	manager := core.NewManager(cfg, db, cache, logger)

	// Start web server
	server := handlers.NewServer(cfg, manager, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start:", err)
		}
	}()

	if err := manager.StartScheduler(); err != nil {
		logger.Fatal("Failed to start scheduler:", err)
	}

	if err := config.Watch(ctx, *configPath, logger, manager.ApplyConfig); err != nil {
		logger.Warn("Config hot reload disabled:", err)
	}

	logger.Info("Popcorn started successfully on port", cfg.App.Port)

	// Wait for interrupt
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Shutting down...")
	cancel()
	manager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed:", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracer shutdown failed:", err)
	}
}
