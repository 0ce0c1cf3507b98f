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

	"cardlab-backend/internal/cache"
	"cardlab-backend/internal/config"
	"cardlab-backend/internal/handlers"
	"cardlab-backend/internal/llm"
	"cardlab-backend/internal/middleware"
	"cardlab-backend/internal/router"
	"cardlab-backend/internal/services"
)

func main() {
	log.Println("🚀 Starting CardLab Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Card Cache ────
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	var store cache.Cache
	if cfg.CacheBackend == "redis" && cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, ttl)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisCache.Close()
		store = redisCache
		log.Println("✓ Redis cache connected")
	} else {
		fileCache, err := cache.NewFileCache(cfg.CacheDir, ttl)
		if err != nil {
			log.Fatalf("✗ File cache initialization failed: %v", err)
		}
		store = fileCache
		log.Printf("✓ File cache ready at %s", cfg.CacheDir)
	}

	// ──── Step 3: Initialize Gemini Client ────
	ctx := context.Background()
	oracle, err := llm.NewClient(ctx, cfg.GeminiAPIKey, llm.Config{
		ExtractModel:      cfg.ExtractModel,
		GenerateModel:     cfg.GenerateModel,
		FixModel:          cfg.FixModel,
		MaxOutExtract:     cfg.MaxOutExtract,
		MaxOutGenerate:    cfg.MaxOutGenerate,
		MaxOutFix:         cfg.MaxOutFix,
		TempExtract:       cfg.TempExtract,
		TempGenerate:      cfg.TempGenerate,
		TempFix:           cfg.TempFix,
		RequestTimeoutSec: cfg.RequestTimeoutSec,
		ConcurrentReqs:    cfg.GeminiConcurrentReqs,
	})
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer oracle.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	svc := services.NewService(oracle, store, services.Models{
		Extract:  cfg.ExtractModel,
		Generate: cfg.GenerateModel,
		Fix:      cfg.FixModel,
	})
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.RateLimitQuota, time.Duration(cfg.RateLimitWindowSeconds)*time.Second)

	// ──── Initialize Handlers ────
	aiHandler := handlers.NewAIHandler(svc, cfg)

	// ──── Step 4: Start HTTP Server ────
	r := router.New(jwtAuth, limiter, aiHandler, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("✓ CardLab Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
