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

	"acharya-backend/internal/config"
	"acharya-backend/internal/database"
	"acharya-backend/internal/handlers"
	"acharya-backend/internal/middleware"
	"acharya-backend/internal/repository"
	"acharya-backend/internal/router"
	"acharya-backend/internal/services"
	"acharya-backend/internal/websocket"
	"acharya-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Acharya Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
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
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	sessionRepo := repository.NewSessionRepo(pool)
	documentRepo := repository.NewDocumentRepo(pool)
	generatedRepo := repository.NewGeneratedRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiConcurrentReqs,
		redisClients.Queue,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	youtubeService := services.NewYouTubeService()
	fileExtractService := services.NewFileExtractService()
	speechService := services.NewSpeechService(cfg.DeepgramAPIKey, cfg.DeepgramVoice, cfg.PublicPath)
	if !speechService.Enabled() {
		log.Println("⚠ Deepgram key not configured, audio synthesis disabled")
	}

	// ──── Initialize Handlers ────
	sessionHandler := handlers.NewSessionHandler(sessionRepo, documentRepo, generatedRepo)
	ingestHandler := handlers.NewIngestHandler(sessionRepo, documentRepo, jobRepo, youtubeService, redisClients.Queue, cfg.StoragePath)
	audioHandler := handlers.NewAudioHandler(sessionRepo, generatedRepo, speechService)
	chatHandler := handlers.NewChatHandler(sessionRepo, generatedRepo, geminiService)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		geminiService,
		speechService,
		youtubeService,
		fileExtractService,
		jobRepo,
		documentRepo,
		generatedRepo,
		sessionRepo,
		cfg.StoragePath,
		5,
	)
	workerPool.Start()
	log.Println("✓ Worker pool started (5 goroutines)")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		sessionHandler,
		ingestHandler,
		audioHandler,
		chatHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
		cfg.PublicPath,
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Acharya Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
