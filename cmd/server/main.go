package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"agentmarket/server/internal/agents"
	"agentmarket/server/internal/api"
	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/config"
	"agentmarket/server/internal/events"
	"agentmarket/server/internal/metrics"
	"agentmarket/server/internal/models"
	"agentmarket/server/internal/notify"
	"agentmarket/server/internal/payments"
	"agentmarket/server/internal/processor"
	"agentmarket/server/internal/profiles"
	"agentmarket/server/internal/reviews"
	"agentmarket/server/internal/storage"
	"agentmarket/server/internal/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)

	// Configure GORM logger to ignore "record not found" errors; lookups
	// of missing tasks and agents are expected traffic
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize attachment storage
	storageService, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Redis is optional: without it the agent catalog is served straight
	// from the database
	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			logrus.WithError(err).Warn("redis unavailable, catalog caching disabled")
			cache = nil
		}
	}

	// OpenTelemetry providers: traces to stdout, metrics collected by the
	// SDK meter provider
	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("Failed to create trace exporter: %v", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	otel.SetTracerProvider(tracerProvider)
	defer tracerProvider.Shutdown(context.Background())

	meterProvider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(meterProvider)
	defer meterProvider.Shutdown(context.Background())

	recorder, err := metrics.NewRecorder(db)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("Failed to initialize JWT manager: %v", err)
	}

	hub := events.NewHub()
	notifier := notify.NewLogNotifier()
	simulator := payments.NewSimulator(db)
	proc := processor.NewProcessor(db, hub, notifier, recorder,
		time.Duration(cfg.Processor.WorkDelaySeconds)*time.Second)

	// Fire-and-forget processing trigger used on task creation and
	// revision requests
	dispatch := func(taskID string) error {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			proc.Process(ctx, taskID)
		}()
		return nil
	}

	taskService := tasks.NewService(db, hub, tasks.Options{
		Dispatch:              dispatch,
		ClearResultOnRevision: cfg.Processor.ClearResultOnRevision,
	})
	reviewService := reviews.NewService(db, hub)
	agentService := agents.NewService(db, cache, time.Duration(cfg.Redis.CacheTTLSeconds)*time.Second)
	profileService := profiles.NewService(db)

	apiServer := api.NewServer(api.Deps{
		DB:        db,
		Tasks:     taskService,
		Payments:  simulator,
		Processor: proc,
		Reviews:   reviewService,
		Agents:    agentService,
		Profiles:  profileService,
		Storage:   storageService,
		JWT:       jwtManager,
		Hub:       hub,
	})

	log.Printf("Starting HTTP server on 0.0.0.0:%s", cfg.Server.Port)
	log.Printf("REST API endpoint: http://0.0.0.0:%s/api/v1", cfg.Server.Port)
	log.Printf("Task update stream: ws://0.0.0.0:%s/ws/tasks/:id", cfg.Server.Port)

	if err := http.ListenAndServe("0.0.0.0:"+cfg.Server.Port, apiServer.GetRouter()); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
