package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taquilla/api/routes"
	"taquilla/internal/notifications"
	"taquilla/internal/reservations"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/config"
	"taquilla/internal/shared/database"
	"taquilla/internal/shared/middleware"
	"taquilla/internal/store"
	"taquilla/internal/store/memory"
	"taquilla/internal/store/postgres"
	"taquilla/pkg/cache"
	"taquilla/pkg/logger"
	"taquilla/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Smart environment loading
	envMessage := "Development environment: loaded .env file"
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			envMessage = "Production environment: using container environment variables"
		} else {
			envMessage = "No .env file found, using system environment variables"
		}
	}

	cfg := config.Load()

	// Gin mode decides the log format, so set it before building the logger
	gin.SetMode(cfg.GinMode)
	appLogger := logger.NewWithWriter(os.Stdout, cfg.LogLevel)
	logger.SetDefault(appLogger)
	appLogger.Info(envMessage, slog.String("version", Version), slog.String("commit", GitCommit), slog.String("built", BuildTime))

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("Failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	st := newStore(cfg, db)
	clk := clock.NewSystem()

	// Availability cache: Redis when configured, otherwise in process
	var availabilityCache cache.Service
	if db.Redis != nil {
		availabilityCache = cache.NewService(db.Redis)
	} else {
		availabilityCache = cache.NewMemory()
	}

	// Rate limiting needs Redis; without it requests are not limited
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.Redis != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, &ratelimit.Config{
			Enabled:          cfg.RateLimit.Enabled,
			WindowDuration:   cfg.RateLimit.WindowDuration,
			DefaultRequests:  cfg.RateLimit.DefaultRequests,
			PublicRequests:   cfg.RateLimit.PublicRequests,
			CheckoutRequests: cfg.RateLimit.CheckoutRequests,
			WebhookRequests:  cfg.RateLimit.WebhookRequests,
			AdminRequests:    cfg.RateLimit.AdminRequests,
			UserRequests:     cfg.RateLimit.UserRequests,
			HealthRequests:   cfg.RateLimit.HealthRequests,
			WhitelistedIPs:   cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Order notifications
	publisher, err := notifications.NewPublisher(cfg.Notification, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize order notifier, falling back to log", slog.Any("error", err))
		publisher = notifications.NewLogNotifier(appLogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing order notifier", slog.Any("error", err))
		}
	}()

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	mailer := startTicketMailer(backgroundCtx, cfg, appLogger)

	appRouter := routes.NewRouter(routes.Dependencies{
		Config:   cfg,
		DB:       db,
		Store:    st,
		Cache:    availabilityCache,
		Notifier: publisher,
		Clock:    clk,
		Logger:   appLogger,
	})
	router := setupRouter(appRouter, rateLimiter, appLogger)

	// Expired-hold sweeper
	var sweeper *reservations.JobProcessor
	if cfg.Reservation.SweepEnabled {
		sweeper = reservations.NewJobProcessor(appRouter.Reservations(), &reservations.JobConfig{
			SweepInterval: cfg.Reservation.SweepInterval,
		}, appLogger)
		sweeper.Start(backgroundCtx)
	}

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_base", cfg.GetAPIBasePath()),
			slog.String("store", cfg.Store.Driver),
			slog.Bool("redis", db.Redis != nil),
			slog.Bool("rate_limiting", rateLimiter != nil),
			slog.String("notifier", cfg.Notification.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	// In-flight requests are done; stop the background workers next
	if sweeper != nil {
		sweeper.Stop()
	}
	if mailer != nil {
		if err := mailer.Stop(); err != nil {
			appLogger.Error("Error stopping ticket mailer", slog.Any("error", err))
		}
	}
	backgroundCancel()

	appLogger.Info("Server exited gracefully")
}

func newStore(cfg *config.Config, db *database.DB) store.Store {
	if cfg.UsesMemoryStore() {
		logger.GetDefault().Warn("Using in-memory store; inventory is lost on restart")
		return memory.New(memory.WithMaxAttempts(cfg.Store.MaxTxAttempts))
	}
	return postgres.New(db.PostgreSQL, cfg.Store.MaxTxAttempts)
}

func startTicketMailer(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) *notifications.TicketMailer {
	if !cfg.Notification.ConsumerEnabled {
		return nil
	}

	email, err := notifications.NewEmailService(cfg.Email, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize email service", slog.Any("error", err))
		return nil
	}
	mailer, err := notifications.NewTicketMailerFromConfig(cfg.Notification, email, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize ticket mailer", slog.Any("error", err))
		appLogger.Info("Continuing without ticket mailer - ticket emails will not be sent")
		return nil
	}
	mailer.Start(ctx)
	return mailer
}

func setupRouter(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter, appLogger *logger.Logger) *gin.Engine {
	engine := gin.New()

	// Request id first so the access log can carry it
	engine.Use(middleware.RequestID(), RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "X-Signature"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	appRouter.SetupRoutes(engine)
	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.LogHTTPRequest(c, time.Since(start))
	}
}
