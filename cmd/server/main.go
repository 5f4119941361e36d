package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/medipos/backend/internal/application/catalog"
	ledgerapp "github.com/medipos/backend/internal/application/ledger"
	salesapp "github.com/medipos/backend/internal/application/sales"
	"github.com/medipos/backend/internal/infrastructure/auth"
	"github.com/medipos/backend/internal/infrastructure/cache"
	"github.com/medipos/backend/internal/infrastructure/config"
	"github.com/medipos/backend/internal/infrastructure/logger"
	"github.com/medipos/backend/internal/infrastructure/persistence"
	"github.com/medipos/backend/internal/infrastructure/telemetry"
	"github.com/medipos/backend/internal/interfaces/http/handler"
	"github.com/medipos/backend/internal/interfaces/http/middleware"
	"github.com/medipos/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting MediPOS stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing pipeline; a disabled config yields a no-op provider
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Query-level tracing on top of the connection
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	stockBatchRepo := persistence.NewGormStockBatchRepository(db.DB)
	auditEntryRepo := persistence.NewGormAuditEntryRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Initialize application services
	productService := catalogapp.NewProductService(productRepo)
	ledgerService := ledgerapp.NewLedgerService(scope, stockBatchRepo, auditEntryRepo)
	saleService := salesapp.NewSaleService(scope, saleRepo)
	saleService.SetReversalWindow(cfg.Sales.ReversalWindow)

	// Idempotency store for retried sale commits
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	if cfg.Redis.Enabled {
		idempotencyStore, err := storeFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		saleService.SetIdempotencyStore(idempotencyStore, cfg.Sales.IdempotencyTTL)
	} else {
		saleService.SetIdempotencyStore(storeFactory.CreateInMemoryStore(), cfg.Sales.IdempotencyTTL)
	}

	// Token verification: Redis-backed revocation when available
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		blacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Redis token blacklist unavailable, using in-memory", zap.Error(err))
			tokenBlacklist = auth.NewInMemoryTokenBlacklist()
		} else {
			tokenBlacklist = blacklist
		}
	} else {
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	}

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	saleHandler := handler.NewSaleHandler(saleService)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.Telemetry.Enabled {
		tracingConfig := middleware.DefaultTracingConfig()
		tracingConfig.ServiceName = cfg.Telemetry.ServiceName
		engine.Use(middleware.TracingWithConfig(tracingConfig))
		engine.Use(middleware.SpanErrorMarker())
	}

	// Access tokens guard everything except health and ping endpoints
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = tokenBlacklist
	jwtConfig.Logger = log
	jwtConfig.SkipPaths = append(jwtConfig.SkipPaths,
		"/api/v1/system/info",
		"/api/v1/system/health",
	)
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Mount API routes
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(productHandler).
		Register(ledgerHandler).
		Register(saleHandler).
		Register(systemHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for the root health check endpoint
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
