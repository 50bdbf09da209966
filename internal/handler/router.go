package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/middleware"
	"github.com/taskflow/taskflow/internal/validation"
)

// RouterConfig carries everything the router wires together.
type RouterConfig struct {
	Logger  *slog.Logger
	Users   UserService
	Tasks   TaskService
	Metrics metrics.Recorder
	// Snapshotter backs GET /metrics. Nil answers 503.
	Snapshotter metrics.Snapshotter

	DatabaseName string
	Database     HealthChecker
	Cache        HealthChecker // nil when Redis is not configured

	RateLimiter    middleware.IPRateLimiter // nil disables rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	AllowedOrigins  []string
	MaxBodySize     int64
	IsDevelopment   bool
	AuthMinDuration time.Duration
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	rec := cfg.Metrics

	h := New()
	health := NewHealthHandler(cfg.DatabaseName, cfg.Database, cfg.Cache)
	users := NewUserHandler(cfg.Users, cfg.Logger)
	tasks := NewTaskHandler(cfg.Tasks, cfg.Logger)
	metricsHandler := NewMetricsHandler(cfg.Snapshotter)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.AllowedOrigins

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger, rec))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(corsCfg))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	}

	r.Get("/", h.Hello)
	r.Get("/health", health.Healthz)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/users/health", health.Users)
	r.Get("/metrics", metricsHandler.Metrics)

	authn := middleware.APIKeyAuth(middleware.AuthConfig{
		Logger:        cfg.Logger,
		Authenticator: cfg.Users,
		MinDuration:   cfg.AuthMinDuration,
	})

	userID := middleware.ValidateParam(rec, "id", validation.UserID)
	taskID := middleware.ValidateParam(rec, "id", validation.TaskID)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitIP(middleware.RateLimitConfig{
			Logger:  cfg.Logger,
			Limiter: cfg.RateLimiter,
			Metrics: rec,
			Enabled: cfg.RateLimiter != nil,
			RPS:     cfg.RateLimitRPS,
			Burst:   cfg.RateLimitBurst,
		}))

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.ValidateQuery(rec, validation.UserList)).Get("/", users.List)
			r.With(middleware.ValidateBody(rec, validation.CreateUser)).Post("/", users.Create)
			r.Get("/stats", users.Stats)
			r.With(authn).Get("/me", users.Me)
			r.With(middleware.ValidateBody(rec, validation.Login)).Post("/login", users.Login)

			// The bare prefixes reach the param check with an empty value
			// instead of falling through to /{id}.
			byUsername := middleware.ValidateParam(rec, "username", validation.Username)
			byEmail := middleware.ValidateParam(rec, "email", validation.Email)
			r.With(byUsername).Get("/username/", users.GetByUsername)
			r.With(byUsername).Get("/username/{username}", users.GetByUsername)
			r.With(byEmail).Get("/email/", users.GetByEmail)
			r.With(byEmail).Get("/email/{email}", users.GetByEmail)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(userID)
				r.Get("/", users.Get)
				r.With(middleware.ValidateBody(rec, validation.UpdateUser)).Put("/", users.Update)
				r.Delete("/", users.Delete)
				r.Post("/activate", users.Activate)
				r.Post("/deactivate", users.Deactivate)
				r.Post("/api-key", users.IssueAPIKey)
				r.With(middleware.ValidateQuery(rec, validation.TaskList)).Get("/tasks", tasks.ListForUser)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.With(middleware.ValidateQuery(rec, validation.TaskList)).Get("/", tasks.List)
			r.With(middleware.ValidateBody(rec, validation.CreateTask)).Post("/", tasks.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(taskID)
				r.Get("/", tasks.Get)
				r.With(middleware.ValidateBody(rec, validation.UpdateTask)).Put("/", tasks.Update)
				r.Delete("/", tasks.Delete)
			})
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
