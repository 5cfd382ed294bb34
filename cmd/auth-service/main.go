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

	"AuthVaultPlatform/internal/domain"
	"AuthVaultPlatform/internal/events"
	"AuthVaultPlatform/internal/handler"
	"AuthVaultPlatform/internal/middleware"
	"AuthVaultPlatform/internal/pkg/password"
	"AuthVaultPlatform/internal/pkg/secrets"
	"AuthVaultPlatform/internal/pkg/token"
	postgresRepo "AuthVaultPlatform/internal/repository/postgres"
	redisRepo "AuthVaultPlatform/internal/repository/redis"
	"AuthVaultPlatform/internal/service"
	"AuthVaultPlatform/internal/worker"
	"AuthVaultPlatform/pkg/config"
	"AuthVaultPlatform/pkg/database"
	"AuthVaultPlatform/pkg/health"
	"AuthVaultPlatform/pkg/logger"
	pkg_metrics "AuthVaultPlatform/pkg/metrics"
	pkg_rabbitmq "AuthVaultPlatform/pkg/rabbitmq"
	"AuthVaultPlatform/pkg/ratelimit"
	pkg_redis "AuthVaultPlatform/pkg/redis"
)

const (
	serviceName    = "auth-service"
	serviceVersion = "v1.0.0"
)

func main() {
	// Путь до конфигурации: переменная окружения либо configs/config.yaml
	configPath := os.Getenv("AUTHVAULT_CONFIG")
	if configPath == "" {
		if _, err := os.Stat("configs/config.yaml"); err == nil {
			configPath = "configs/config.yaml"
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, serviceName)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting auth service",
		logger.String("version", serviceVersion),
		logger.String("environment", cfg.Environment))

	if err := pkg_metrics.InitializeOpenTelemetry(serviceName); err != nil {
		appLogger.Error("Failed to initialize OpenTelemetry", logger.Error(err))
		os.Exit(1)
	}
	metricsInstance := pkg_metrics.NewMetrics(serviceName)

	ctx := context.Background()

	// PostgreSQL
	dbConfig := database.NewConfig()
	dbConfig.Host = cfg.Database.Host
	dbConfig.Port = cfg.Database.Port
	dbConfig.User = cfg.Database.User
	dbConfig.Password = cfg.Database.Password
	dbConfig.Database = cfg.Database.Name
	dbConfig.SSLMode = cfg.Database.SSLMode

	db, err := database.Connect(ctx, dbConfig)
	if err != nil {
		appLogger.Error("Failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	redisConfig := pkg_redis.NewConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize
	redisConfig.MinIdleConn = cfg.Redis.MinIdleConn
	redisConfig.MaxRetries = cfg.Redis.MaxRetries

	redisClient, err := pkg_redis.Connect(ctx, redisConfig)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// RabbitMQ опционален: без брокера события не публикуются
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQ.Enabled {
		rabbitConfig := pkg_rabbitmq.NewConfig()
		rabbitConfig.URL = cfg.RabbitMQ.URL
		rabbitConfig.Exchange = cfg.RabbitMQ.Exchange
		rabbitConfig.RoutingKey = cfg.RabbitMQ.RoutingKey

		rabbitConn, err := pkg_rabbitmq.Connect(rabbitConfig)
		if err != nil {
			appLogger.Error("Failed to connect to RabbitMQ", logger.Error(err))
			os.Exit(1)
		}
		defer rabbitConn.Close()

		producer := pkg_rabbitmq.NewProducer(rabbitConn, rabbitConfig)
		publisher = events.NewRabbitPublisher(producer, appLogger)
	}

	// Пул для CPU-bound криптоопераций
	workerPool, err := worker.NewPool(&worker.Config{
		WorkerCount:     cfg.Worker.Count,
		QueueSize:       cfg.Worker.QueueSize,
		ShutdownTimeout: 10 * time.Second,
	}, appLogger, metricsInstance)
	if err != nil {
		appLogger.Error("Failed to create worker pool", logger.Error(err))
		os.Exit(1)
	}
	workerPool.Start()

	// Репозитории
	tenantRepository := postgresRepo.NewTenantRepository(db.Pool)
	userRepository := postgresRepo.NewUserRepository(db.Pool)
	adminRepository := postgresRepo.NewSysAdminRepository(db.Pool)
	ledger := redisRepo.NewSessionLedger(redisClient.Client)

	// Криптокомпоненты
	cipher := secrets.NewCipher(cfg.Secrets.WorkFactor)
	hasher := password.NewBcryptHasher(0)
	codec := token.NewJWTCodec()

	// Сервисы
	authService := service.NewAuthService(userRepository, ledger, cipher, hasher,
		codec, workerPool, publisher, appLogger, metricsInstance,
		cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	adminService := service.NewAdminService(adminRepository, ledger, hasher,
		workerPool, publisher, appLogger, metricsInstance)

	// HTTP слой
	tenantResolver := middleware.NewTenantResolver(tenantRepository, hasher, workerPool, appLogger)
	rateLimiter := ratelimit.NewRedisRateLimiter(redisClient.Client)

	accessFn := func(r *http.Request) (domain.TenantAccess, bool) {
		return middleware.TenantFromContext(r.Context())
	}

	httpHandler := handler.NewHTTPHandler(authService, adminService, accessFn, appLogger)

	mux := http.NewServeMux()
	httpHandler.RegisterRoutes(mux, tenantResolver.Middleware)

	// Health и metrics
	healthChecker := health.NewChecker(serviceVersion)
	healthChecker.RegisterCheck("postgres", db.HealthCheck)
	healthChecker.RegisterCheck("redis", redisClient.HealthCheck)
	mux.HandleFunc("GET /health", healthChecker.Handler())
	mux.Handle("GET /metrics", metricsInstance.GetHandler())

	// Сквозные middleware: метрики + ограничение частоты
	root := metricsInstance.Middleware(
		middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimiting.RequestsPerMinute, appLogger)(mux))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server started",
			logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed", logger.Error(err))
		}
	}()

	awaitGracefulShutdown(appLogger, server, workerPool)
}

// awaitGracefulShutdown ожидает сигнал и останавливает сервер и пул
func awaitGracefulShutdown(log logger.Logger, server *http.Server, pool *worker.Pool) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", logger.Error(err))
	}

	if err := pool.Stop(ctx); err != nil {
		log.Error("Failed to stop worker pool", logger.Error(err))
	}

	log.Info("Server stopped gracefully")
}
