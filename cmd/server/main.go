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

	"canvia-backend/internal/cache"
	"canvia-backend/internal/config"
	"canvia-backend/internal/handlers"
	"canvia-backend/internal/middleware"
	"canvia-backend/internal/router"
	"canvia-backend/internal/services"
)

func main() {
	log.Println("🚀 Starting Canvia Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Cache Storage ────
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	var storage cache.Storage
	if cfg.RedisURL != "" {
		redisStorage, err := cache.NewRedisStorage(cfg.RedisURL, ttl)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisStorage.Close()
		storage = redisStorage
		log.Println("✓ Redis cache connected")
	} else {
		fileStorage, err := cache.NewFileStorage(cfg.CacheDir)
		if err != nil {
			log.Fatalf("✗ File cache initialization failed: %v", err)
		}
		storage = fileStorage
		log.Printf("✓ File cache ready at %s", cfg.CacheDir)
	}
	store := cache.NewStore(storage, ttl)

	// ──── Step 3: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	youtubeService := services.NewYouTubeService()
	fileExtractService := services.NewFileExtractService()
	resolver := services.NewCourseResolver(services.DefaultResolverWeights)
	engine := services.NewEngine(store, youtubeService, resolver, cfg.DispatchConcurrency)
	authService := services.NewAuthService(jwtAuth, store, cfg.CanvasBaseURL)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(engine, geminiService)
	uploadHandler := handlers.NewUploadHandler(fileExtractService)
	coursesHandler := handlers.NewCoursesHandler(engine, resolver)

	// ──── Step 4: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		chatHandler,
		uploadHandler,
		coursesHandler,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Canvia Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
