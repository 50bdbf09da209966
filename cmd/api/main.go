// Package main is the entrypoint for the TaskFlow API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/cache"
	"github.com/taskflow/taskflow/internal/config"
	"github.com/taskflow/taskflow/internal/handler"
	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/middleware"
	"github.com/taskflow/taskflow/internal/repository"
	"github.com/taskflow/taskflow/internal/server"
	"github.com/taskflow/taskflow/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to open database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database", "dialect", string(repo.Dialect()))

	if err := repo.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
		os.Exit(1)
	}

	hasher := auth.NewPasswordHasher(auth.DefaultParams)

	if cfg.SeedData {
		if err := seed(ctx, repo, hasher, cfg.SeedPassword, logger); err != nil {
			logger.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Redis is optional. Without it the services run uncached and
	// rate limiting is off. Interfaces stay nil, not typed-nil.
	var (
		userCache   service.UserCache
		cacheHealth handler.HealthChecker
		limiter     middleware.IPRateLimiter
		cacheClient *cache.Cache
	)
	if cfg.HasRedis() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cfg.UserCacheTTL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
		userCache = cacheClient
		cacheHealth = cacheClient
		if cfg.RateLimitEnabled {
			limiter = cacheClient
		}
	} else {
		logger.Info("REDIS_URL not set, caching and rate limiting disabled")
	}

	recorder := metrics.NewInMemory()
	userService := service.NewUserService(repo, userCache, hasher, recorder)
	taskService := service.NewTaskService(repo, recorder)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:          logger,
		Users:           userService,
		Tasks:           taskService,
		Metrics:         recorder,
		Snapshotter:     recorder,
		DatabaseName:    string(repo.Dialect()),
		Database:        repo,
		Cache:           cacheHealth,
		RateLimiter:     limiter,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		AllowedOrigins:  cfg.GetCORSAllowedOrigins(),
		MaxBodySize:     cfg.MaxRequestBodySize,
		IsDevelopment:   cfg.IsDevelopment(),
		AuthMinDuration: middleware.DefaultMinAuthDuration,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: Redis closes before the database.
	srv.OnShutdown("database", func(context.Context) error { return repo.Close() })
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, repo *repository.Repository, hasher *auth.PasswordHasher, password string, logger *slog.Logger) error {
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	res, err := repo.Seed(ctx, hash)
	if err != nil {
		return err
	}
	if res.Users > 0 || res.Tasks > 0 {
		logger.Info("seeded sample data", "users", res.Users, "tasks", res.Tasks)
	}
	return nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
