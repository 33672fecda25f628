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

	"promoter-dashboard/config"
	"promoter-dashboard/internal/api"
	"promoter-dashboard/internal/broker"
	"promoter-dashboard/internal/redisclient"
	"promoter-dashboard/internal/service"
	"promoter-dashboard/internal/store"
	"promoter-dashboard/internal/util"
	"promoter-dashboard/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting promoter dashboard service")

	tp, err := util.InitTracer("promoter-dashboard", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	repo, err := store.Open(cfg.Store.Driver, cfg.Store.DataDir, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer repo.Close()
	log.Printf("Store opened: driver=%s", cfg.Store.Driver)

	cache := redisclient.Disabled()
	if cfg.Redis.Enabled {
		cache, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.CacheTTLSeconds)*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Redis connected")
	}
	defer cache.Close()

	var publisher service.EventPublisher
	var producer *broker.Producer
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	analytics := service.NewAnalyticsService(repo, cache)
	webhookService := service.NewWebhookService(repo, cache, publisher)
	registry := service.NewRegistryService(repo)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var rankingWorker *worker.RankingWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.ConsumerGroup)
		rankingWorker = worker.NewRankingWorker(consumer, analytics)
		go func() {
			if err := rankingWorker.Start(workerCtx); err != nil {
				log.Printf("Ranking worker error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(webhookService, analytics, registry)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if rankingWorker != nil {
		rankingWorker.Stop()
	}

	log.Println("Server exited")
}
