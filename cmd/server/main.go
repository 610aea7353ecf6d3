package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/smartstudia/smartstudia/configs"
	"github.com/smartstudia/smartstudia/internal/application/services"
	"github.com/smartstudia/smartstudia/internal/core/ports"
	"github.com/smartstudia/smartstudia/internal/infrastructure/clock"
	"github.com/smartstudia/smartstudia/internal/infrastructure/db"
	"github.com/smartstudia/smartstudia/internal/infrastructure/gemini"
	"github.com/smartstudia/smartstudia/internal/infrastructure/health"
	"github.com/smartstudia/smartstudia/internal/infrastructure/httpserver"
	"github.com/smartstudia/smartstudia/internal/infrastructure/redis"
	"github.com/smartstudia/smartstudia/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting SmartStudia usage-metering backend...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	systemClock := clock.NewSystemClock()

	// Usage counter store: Redis is authoritative, with an in-process
	// fallback while Redis is unreachable.
	durableUsageRepo := repositories.NewUsageRedisRepository(redisClient, cfg.RateLimit.KeyPrefix)
	localUsageRepo := repositories.NewUsageMemoryRepository()
	usageRepo := repositories.NewFailoverUsageRepository(durableUsageRepo, localUsageRepo, logger)

	// Subscriber plan lookups, cached in Redis
	redisCache := redis.NewCache(redisClient, "cache")
	baseSubscriberRepo := repositories.NewSubscriberRepository(database, logger)
	subscriberRepo := repositories.NewCachingSubscriberRepository(baseSubscriberRepo, redisCache, cfg.RateLimit.SubscriberCacheTTL)

	generationRepo := repositories.NewGenerationRepository(database, logger)

	rateLimiterConfig := &services.RateLimiterConfig{
		StandardPerMinute: cfg.RateLimit.StandardPerMinute,
		StandardPerHour:   cfg.RateLimit.StandardPerHour,
		UpgradedPerMinute: cfg.RateLimit.UpgradedPerMinute,
		UpgradedPerHour:   cfg.RateLimit.UpgradedPerHour,
	}
	rateLimiterService := services.NewRateLimiterService(usageRepo, subscriberRepo, systemClock, rateLimiterConfig, logger)

	// External text generator
	generator, err := gemini.NewGenerator(context.Background(), &cfg.Gemini)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini client:", err)
	}
	defer generator.Close()

	aiToolService := services.NewAIToolService(rateLimiterService, generator, generationRepo, systemClock, logger)

	hcSlice := []ports.HealthChecker{
		health.NewDBChecker(database),
		health.NewRedisChecker(redisClient),
		health.NewUsageStoreChecker(usageRepo),
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	deps := httpserver.ServerDeps{
		RateLimiterService: rateLimiterService,
		AIToolService:      aiToolService,
		HealthCheckers:     hcSlice,
	}

	server := httpserver.NewServer(serverConfig, cfg.JWT.Secret, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
