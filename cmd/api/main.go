// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/mystic-backend/internal/admin"
	"github.com/carterperez-dev/mystic-backend/internal/archive"
	"github.com/carterperez-dev/mystic-backend/internal/auth"
	"github.com/carterperez-dev/mystic-backend/internal/config"
	"github.com/carterperez-dev/mystic-backend/internal/consultation"
	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/health"
	"github.com/carterperez-dev/mystic-backend/internal/llm"
	"github.com/carterperez-dev/mystic-backend/internal/middleware"
	"github.com/carterperez-dev/mystic-backend/internal/notify"
	"github.com/carterperez-dev/mystic-backend/internal/payment"
	"github.com/carterperez-dev/mystic-backend/internal/prompt"
	"github.com/carterperez-dev/mystic-backend/internal/server"
	"github.com/carterperez-dev/mystic-backend/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	genKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair to the configured paths and exit")
	flag.Parse()

	if err := run(*configPath, *genKeys); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string, genKeys bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	if genKeys {
		if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
			return err
		}
		logger.Info("key pair written",
			"private", cfg.JWT.PrivateKeyPath,
			"public", cfg.JWT.PublicKeyPath,
		)
		return nil
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	} else if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracer initialized", "endpoint", cfg.Otel.Endpoint)
	}

	db, err := core.NewDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(); err != nil {
			logger.Warn("migrations not applied", "error", err)
		} else {
			logger.Info("database migrated")
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	userSvc := user.NewService(user.NewRepository(db.DB), cfg.App.OwnerID)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(jwtManager, userSvc, redis.Client)
	authHandler := auth.NewHandler(authSvc)

	deps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}

	var archiver consultation.Archiver
	if cfg.Archive.Enabled {
		store, storeErr := archive.NewMinioStore(ctx, cfg.Archive)
		if storeErr != nil {
			logger.Warn("archive storage unavailable, archiving without upload", "error", storeErr)
			deps = append(deps, health.Dependency{Name: "archive"})
		} else {
			archiver = store
			deps = append(deps, health.Dependency{Name: "archive", Checker: store})
			logger.Info("archive storage ready", "bucket", cfg.Archive.Bucket)
		}
	}

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		logger.Warn("owner notifier unavailable, logging notifications", "driver", cfg.Notify.Driver, "error", err)
		notifier = notify.NewLogNotifier(logger)
	}

	consultationSvc := consultation.NewService(consultation.ServiceConfig{
		Repo:     consultation.NewRepository(db.DB),
		LLM:      llm.NewOpenAIClient(cfg.LLM),
		Prompts:  prompt.DefaultRegistry(),
		Archiver: archiver,
		Policies: policies(cfg),
		Logger:   logger,
	})
	consultationHandler := consultation.NewHandler(consultationSvc)

	gateway, err := payment.NewGateway(cfg.Payment)
	if err != nil {
		return err
	}
	paymentSvc := payment.NewService(payment.ServiceConfig{
		DB:            db.DB,
		Consultations: consultationSvc,
		Gateway:       gateway,
		Notifier:      notifier,
		Users:         userSvc,
		Currency:      cfg.Payment.Currency,
		WebhookSecret: cfg.Payment.WebhookSecret,
		Logger:        logger,
	})
	paymentHandler := payment.NewHandler(paymentSvc)

	healthHandler := health.NewHandler(deps...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:       db.Stats,
		RedisStats:    redis.PoolStats,
		DBPing:        db.Ping,
		RedisPing:     redis.Ping,
		Consultations: consultationSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics)
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Scope: "api",
			Quota: middleware.FixedQuota(middleware.Quota{
				Requests: cfg.RateLimit.Requests,
				Burst:    cfg.RateLimit.Burst,
				Window:   cfg.RateLimit.Window,
			}),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	adminOnly := middleware.RequireAdmin

	generateLimit := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Scope: "generate",
		Quota: func(r *http.Request) middleware.Quota {
			n, window := cfg.GenerateQuota(chi.URLParam(r, "kind"))
			return middleware.Quota{Requests: n, Window: window}
		},
		KeyFunc: middleware.KeyByKindAndUser,
	}).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)

		consultationHandler.RegisterRoutes(r, optionalAuth, generateLimit)
		paymentHandler.RegisterRoutes(r, authenticator)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := notifier.Close(); err != nil {
		logger.Error("notifier close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func policies(cfg *config.Config) map[consultation.Kind]consultation.Policy {
	out := map[consultation.Kind]consultation.Policy{}
	for kind := range consultation.DefaultFeatures() {
		fc := cfg.Feature(string(kind))
		out[kind] = consultation.Policy{
			AllowAnonymous: fc.AllowAnonymous,
			RequirePayment: fc.RequirePayment,
		}
	}
	return out
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
