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

	"restock-service/config"
	"restock-service/internal/api"
	"restock-service/internal/broker"
	"restock-service/internal/redisclient"
	"restock-service/internal/service"
	"restock-service/internal/store"
	"restock-service/internal/util"
	"restock-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// backend is satisfied by both the Postgres and the in-memory store
type backend interface {
	service.CatalogStore
	service.SessionStore
	service.DraftStore
	Ping(ctx context.Context) error
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting restock service")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()
	checks := map[string]api.Pinger{}

	var db backend
	switch cfg.Database.Driver {
	case "memory":
		db = store.NewMemoryStore()
		logger.Warn("Using in-memory store, data is lost on restart")
	default:
		pg, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		db = pg
		logger.Info("Database connected")
	}
	checks["database"] = db

	var catalog service.CatalogStore = db
	var idempotency api.IdempotencyStore
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CatalogCacheTTL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		catalog = service.NewCachedCatalog(db, redisClient)
		idempotency = redisClient
		checks["redis"] = redisClient
		logger.Info("Redis connected")
	}

	// Left as a nil interface when Kafka is off so managers skip publishing.
	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSession)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	registry := service.NewRegistry(catalog, db, publisher, cfg.Session.AutocompleteLimit)
	drafts := service.NewEmailDraftService(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var draftWorker *worker.EmailDraftWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSession, cfg.Kafka.ConsumerGroup)
		draftWorker = worker.NewEmailDraftWorker(consumer, drafts, registry)
		go func() {
			if err := draftWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Email draft worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(registry, drafts, api.Options{
		OwnerHeader:    cfg.Session.OwnerHeader,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Session.IdempotencyTTL,
		InlineDrafts:   !cfg.Kafka.Enabled,
		Checks:         checks,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if draftWorker != nil {
		if err := draftWorker.Stop(); err != nil {
			logger.Error("Error stopping email draft worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
