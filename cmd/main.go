package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"leafscan/database"
	"leafscan/internal/cache"
	"leafscan/internal/config"
	"leafscan/internal/controllers"
	"leafscan/internal/events"
	"leafscan/internal/gemini"
	"leafscan/internal/health"
	"leafscan/internal/metrics"
	"leafscan/internal/ml"
	"leafscan/internal/remedy"
	"leafscan/internal/repository"
	"leafscan/internal/services"
	"leafscan/internal/storage"
	"leafscan/routes"
)

type statusPlanCache interface {
	remedy.PlanCache
	Status(ctx context.Context) map[string]interface{}
}

// @title LeafScan API
// @version 1.0
// @description Leaf disease classification with remedy suggestions and prediction history.
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		log.Fatalf("Failed to set up metrics: %v", err)
	}

	db, err := database.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.MigrateDatabase(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	database.MonitorDBConnections(ctx, db, 30*time.Second)

	predictionRepo := repository.NewPredictionRepository(db)

	processClassifier, err := ml.NewProcessClassifier(ml.ProcessConfig{
		Command: cfg.ClassifierCommand,
		Args:    cfg.ClassifierArgs,
		Timeout: cfg.ClassifierTimeout,
	}, m)
	if err != nil {
		log.Fatalf("Failed to create classifier: %v", err)
	}
	classifier := ml.NewLimited(processClassifier, cfg.ClassifierMaxConcurrent)

	generator := gemini.NewClient(gemini.Config{
		APIKey:   cfg.GeminiAPIKey,
		Endpoint: cfg.GeminiEndpoint,
		Timeout:  cfg.GeminiTimeout,
	}, m)
	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY is not set, remedies will use fallback text")
	}
	log.Printf("Text generation: %s", generator)

	checker := health.NewChecker(3 * time.Second)
	checker.Register("database", true, func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})

	planCache := newPlanCache(ctx, cfg, checker)
	checker.RegisterDetail("remedy_cache", planCache.Status)
	resolver := remedy.NewResolver(generator, planCache, m)

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Printf("Warning: %v, events will only be logged", err)
		} else {
			publisher = amqpPublisher
			checker.Register("rabbitmq", false, amqpPublisher.Ping)
			log.Printf("Publishing prediction events to exchange %s", cfg.RabbitMQExchange)
		}
	}
	dispatcher := events.NewDispatcher(publisher, cfg.EventWorkers, 256, m)
	dispatcher.Start()
	defer dispatcher.Stop()
	checker.RegisterDetail("events", func(context.Context) map[string]interface{} {
		return dispatcher.GetStatus()
	})

	var mirror storage.Mirror
	if cfg.S3Bucket != "" {
		s3Mirror, err := storage.NewS3Mirror(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			log.Printf("Warning: S3 mirror disabled: %v", err)
		} else {
			mirror = s3Mirror
			log.Printf("Mirroring uploads to s3://%s", cfg.S3Bucket)
		}
	}
	uploads, err := storage.NewLocalStore(cfg.UploadDir, cfg.MaxUploadBytes(), mirror)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	predictionService := services.NewPredictionService(classifier, resolver, predictionRepo, dispatcher, m).
		WithTimeout(cfg.PredictionTimeout())
	reportBuilder := services.NewActivityReportBuilder(predictionRepo, cfg.Location())

	predictionController := controllers.NewPredictionController(
		predictionRepo,
		predictionService,
		reportBuilder,
		resolver,
		uploads,
	)

	gin.SetMode(cfg.GinMode)
	router := routes.NewRouter(cfg.CORSOrigins)
	router.MaxMultipartMemory = cfg.MaxUploadBytes()

	routes.RegisterSystemRoutes(router, checker, registry)
	routes.RegisterSwaggerRoutes(router)
	routes.RegisterPredictionRoutes(router, predictionController, cfg.JWTSecret)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   cfg.PredictionTimeout() + 10*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	var healthServer *health.GRPCServer
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatalf("Failed to listen on gRPC port %s: %v", cfg.GRPCPort, err)
		}
		healthServer = health.NewGRPCServer(checker, 10*time.Second)
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				log.Printf("gRPC health server error: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("LeafScan API Server starting on port %s", cfg.Port)
		log.Printf("API Documentation: http://localhost:%s/swagger/index.html", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if healthServer != nil {
		healthServer.Stop()
	}
	closeDatabase(db)
}

// newPlanCache uses Redis when REDIS_URL is set and reachable, otherwise an
// in-process cache.
func newPlanCache(ctx context.Context, cfg *config.Config, checker *health.Checker) statusPlanCache {
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisPlanCache(ctx, cfg.RedisURL, cfg.RemedyCacheTTL)
		if err == nil {
			checker.Register("redis", false, redisCache.Ping)
			log.Println("Treatment plans cached in Redis")
			return redisCache
		}
		log.Printf("Warning: %v, using in-memory plan cache", err)
	}
	return cache.NewMemoryPlanCache(cfg.RemedyCacheTTL)
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}
