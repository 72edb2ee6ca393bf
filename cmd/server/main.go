package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yuiseki/data-gather/internal/cache"
	"github.com/yuiseki/data-gather/internal/config"
	"github.com/yuiseki/data-gather/internal/engine"
	"github.com/yuiseki/data-gather/internal/repository"
	"github.com/yuiseki/data-gather/internal/service"
	"github.com/yuiseki/data-gather/internal/transport/rest"
	"github.com/yuiseki/data-gather/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	// Ping MongoDB
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	// Ping Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize repositories
	interviewRepo := repository.NewInterviewRepo(db)
	settingRepo := repository.NewSettingRepo(db)

	// Initialize caches
	runCache := cache.NewRunCache(rdb)

	// Airtable client doubles as the record sink; without a token the
	// sink degrades to logging so local runs still complete.
	airtable := service.NewAirtableClient(cfg.Airtable)
	var sink engine.RecordSink = airtable
	if !cfg.Airtable.IsEnabled() {
		sink = service.LoggingSink{}
	}

	// Initialize services
	interviewSvc := service.NewInterviewService(interviewRepo, settingRepo, airtable)
	runSvc := service.NewRunService(interviewRepo, runCache, sink)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	runSvc.SetBroadcaster(wsHub)

	// Create router with container
	container := &rest.Container{
		InterviewService: interviewSvc,
		RunService:       runSvc,
		Airtable:         airtable,
		WSHub:            wsHub,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST/GET /v1/interviews")
		log.Println("  POST /v1/interviews/{id}/screens")
		log.Println("  POST /v1/interviews/{id}/starting-state")
		log.Println("  GET/PUT /v1/interviews/{id}/settings")
		log.Println("  GET  /v1/airtable/bases")
		log.Println("  POST /v1/runs")
		log.Println("  GET  /v1/runs/{runId}/screen")
		log.Println("  POST /v1/runs/{runId}/responses")
		log.Println("  POST /v1/runs/{runId}/reset")
		log.Println("  WS   /v1/ws/runs/{runId}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	runSvc.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
