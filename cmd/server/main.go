package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"viewtrace-backend/internal/config"
	"viewtrace-backend/internal/database"
	"viewtrace-backend/internal/handlers"
	"viewtrace-backend/internal/metrics"
	"viewtrace-backend/internal/middleware"
	"viewtrace-backend/internal/repository"
	"viewtrace-backend/internal/router"
	"viewtrace-backend/internal/services"
	"viewtrace-backend/internal/websocket"
	"viewtrace-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting ViewTrace Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	ctx := context.Background()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, int32(cfg.DatabaseMaxConns))
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Metrics ────
	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		log.Fatalf("✗ Metrics registration failed: %v", err)
	}
	log.Println("✓ Metrics registered")

	// ──── Initialize Repositories ────
	sessionRepo := repository.NewSessionRepo(pool)
	heatmapRepo := repository.NewHeatmapRepo(pool)
	checkpointRepo := repository.NewCheckpointRepo(pool)
	summaryRepo := repository.NewSummaryRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	cache := services.NewAnalyticsCache(
		redisClients.Cache,
		time.Duration(cfg.SummaryCacheTTLSeconds)*time.Second,
		time.Duration(cfg.PopularCacheTTLSeconds)*time.Second,
		m,
	)
	aggregator := services.NewAggregator(
		sessionRepo,
		heatmapRepo,
		checkpointRepo,
		videoRepo,
		cache,
		redisClients.PubSub,
		m,
		cfg.CompletionThreshold,
	)
	reader := services.NewSummaryReader(summaryRepo, heatmapRepo, checkpointRepo, cache)
	refresher := services.NewRefresher(summaryRepo, cache, redisClients.PubSub, m)

	// ──── Step 5: Start Background Workers ────
	workerPool := worker.NewPool(redisClients.Cache, refresher, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	refreshScheduler := services.NewRefreshScheduler(refresher, time.Duration(cfg.RefreshIntervalMinutes)*time.Minute)
	refreshScheduler.Start()
	log.Printf("✓ Summary refresh scheduler started (every %dm)", cfg.RefreshIntervalMinutes)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Handlers ────
	ingestHandler := handlers.NewIngestHandler(aggregator, cfg.FlushIntervalSeconds, cfg.CompletionThreshold)
	analyticsHandler := handlers.NewAnalyticsHandler(reader, redisClients.Cache)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		ingestHandler,
		analyticsHandler,
		wsHub,
		metrics.Handler(registry),
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		refreshScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ ViewTrace Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/admin/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
