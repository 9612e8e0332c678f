package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"ameliorate/application/commands/bus"
	"ameliorate/application/ports"
	querybus "ameliorate/application/queries/bus"
	"ameliorate/interfaces/http/rest/handlers"
	"ameliorate/interfaces/http/rest/middleware"
	v1 "ameliorate/interfaces/http/rest/v1"
	"ameliorate/pkg/auth"
	"ameliorate/pkg/common"
	pkgerrors "ameliorate/pkg/errors"
	"ameliorate/pkg/observability"
)

const readinessTimeout = 2 * time.Second

// RateLimiters holds the per-IP and per-user limiters
type RateLimiters = middleware.RateLimiters

// RouterConfig holds everything the router needs. Collector, Tracer and
// Health may be nil.
type RouterConfig struct {
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Logger       *zap.Logger
	Validator    *auth.JWTValidator
	RateLimiters RateLimiters
	Collector    *observability.Collector
	Tracer       *observability.Tracer
	Health       ports.HealthChecker
	CORSOrigins  []string
	Debug        bool
}

// Router creates and configures the HTTP router
type Router struct {
	cfg    RouterConfig
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		cfg:    cfg,
		errors: pkgerrors.NewErrorHandler(cfg.Logger, cfg.Debug),
		logger: cfg.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(rt.cfg.Tracer.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.cfg.Collector))
	router.Use(versionMiddleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.Handle(w, r, pkgerrors.NewNotFoundError("route"))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.Collector != nil {
		router.Handle("/metrics", rt.cfg.Collector.Handler())
	}

	router.Mount("/api/v1", v1.NewRouter(rt.cfg.QueryBus, rt.errors, rt.logger))

	topics := handlers.NewTopicHandler(rt.cfg.CommandBus, rt.cfg.QueryBus, rt.errors, rt.logger)
	parts := handlers.NewGraphPartHandler(rt.cfg.CommandBus, rt.errors, rt.logger)
	users := handlers.NewUserHandler(rt.cfg.CommandBus, rt.cfg.QueryBus, rt.errors, rt.logger)
	playground := handlers.NewPlaygroundHandler(rt.cfg.QueryBus, rt.errors, rt.logger)

	router.Route("/api/v2", func(r chi.Router) {
		r.Use(middleware.RateLimit(rt.cfg.RateLimiters.IP, rt.errors, rt.logger))

		// Reads and the playground are public
		r.Get("/topics/{username}/{title}", topics.GetTopic)
		r.Get("/topics/{username}/{title}/data", topics.GetTopicData)
		r.Get("/topics/{username}/{title}/diagram", topics.GetDiagram)
		r.Get("/topics/{username}/{title}/claim-trees", topics.ListClaimTrees)
		r.Get("/users/{username}", users.GetUser)
		r.Get("/users/{username}/topics", users.ListUserTopics)
		r.Post("/playground/diagram", playground.DeriveDiagram)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.cfg.Validator, rt.cfg.RateLimiters.User, rt.errors, rt.logger))

			r.Post("/users", users.CreateUser)

			r.Post("/topics", topics.CreateTopic)
			r.Put("/topics/{topicID}", topics.UpdateTopic)
			r.Delete("/topics/{topicID}", topics.DeleteTopic)

			r.Post("/topics/{topicID}/nodes", parts.AddNode)
			r.Delete("/topics/{topicID}/nodes/{nodeID}", parts.DeleteNode)
			r.Post("/topics/{topicID}/edges", parts.ConnectNodes)
			r.Delete("/topics/{topicID}/edges/{edgeID}", parts.DeleteEdge)
			r.Post("/topics/{topicID}/claim-trees", parts.CreateClaimTree)
			r.Put("/topics/{topicID}/scores", parts.SetScore)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports whether the store answers
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := rt.cfg.Health.Ping(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// versionMiddleware adds API version headers to v2 responses. v1 routes
// set their own.
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v2")
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")
		next.ServeHTTP(w, r)
	})
}
