package rest

import (
	"net/http"

	"esn-backend/application/commands/bus"
	querybus "esn-backend/application/queries/bus"
	"esn-backend/interfaces/http/rest/handlers"
	"esn-backend/interfaces/http/rest/middleware"
	"esn-backend/pkg/auth"
	pkgerrors "esn-backend/pkg/errors"
	"esn-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig carries the HTTP-facing settings
type RouterConfig struct {
	AllowedOrigins     []string
	EnableCORS         bool
	DevAuthBypass      bool
	RateLimitPerSecond int
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	validator    *auth.SessionTokenValidator
	limiter      auth.RateLimiter
	errorHandler *pkgerrors.ErrorHandler
	metrics      *observability.Collector
	tracer       *observability.Tracer
	health       *handlers.HealthHandler
	cfg          RouterConfig
	logger       *zap.Logger
}

// NewRouter creates a new router instance. validator, limiter, metrics and
// tracer may be nil.
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	validator *auth.SessionTokenValidator,
	limiter auth.RateLimiter,
	errorHandler *pkgerrors.ErrorHandler,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	health *handlers.HealthHandler,
	cfg RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		validator:    validator,
		limiter:      limiter,
		errorHandler: errorHandler,
		metrics:      metrics,
		tracer:       tracer,
		health:       health,
		cfg:          cfg,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}
	if rt.tracer != nil && rt.tracer.Enabled() {
		router.Use(rt.tracer.Middleware)
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match", "If-None-Match", "X-Request-ID"},
			ExposedHeaders:   []string{"ETag", "Location", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.health.Health)
	router.Get("/ready", rt.health.Ready)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(middleware.AuthConfig{
			Validator: rt.validator,
			DevBypass: rt.cfg.DevAuthBypass,
			Errors:    rt.errorHandler,
			Tracer:    rt.tracer,
			Logger:    rt.logger,
		}))
		r.Use(middleware.LimitMutations(rt.limiter, rt.cfg.RateLimitPerSecond, rt.errorHandler, rt.logger))

		networkHandler := handlers.NewNetworkHandler(rt.commandBus, rt.queryBus, rt.errorHandler, rt.logger)
		r.Route("/network", func(r chi.Router) {
			r.Get("/", networkHandler.GetNetwork)
			r.Get("/activity", networkHandler.GetActivity)
			r.Post("/connections", networkHandler.AddConnection)
			r.Delete("/connections/{connectionID}", networkHandler.RemoveConnection)
		})
	})

	return router
}
