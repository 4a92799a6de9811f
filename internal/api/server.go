// Package api provides the HTTP API server and handlers for the TagReturn registry.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tagreturn/tagreturn-server/internal/media/images"
	"github.com/tagreturn/tagreturn-server/internal/metrics"
	"github.com/tagreturn/tagreturn-server/internal/search"
	"github.com/tagreturn/tagreturn-server/internal/service"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// Services groups the business services used by handlers.
type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Registry *service.RegistryService
	Tags     *service.TagService
	Webhooks *service.WebhookService
	Sweep    *service.SweepService
	Search   *search.SearchIndex // health reporting only
}

// Options tune the HTTP surface.
type Options struct {
	CORSOrigins []string
	// AuthRequestsPerMinute limits signup, signin and password reset per
	// client IP. WebhookRequestsPerMinute limits payment callbacks that
	// fail signature verification; signed ones are never throttled.
	AuthRequestsPerMinute    int
	WebhookRequestsPerMinute int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.Store
	services   *Services
	images     *images.Storage
	sseManager *sse.Manager
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger

	authRateLimiter    *RateLimiter
	webhookRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	st store.Store,
	services *Services,
	imageStorage *images.Storage,
	sseManager *sse.Manager,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.AuthRequestsPerMinute <= 0 {
		opts.AuthRequestsPerMinute = 20
	}
	if opts.WebhookRequestsPerMinute <= 0 {
		opts.WebhookRequestsPerMinute = 600
	}

	router := chi.NewRouter()

	s := &Server{
		store:              st,
		services:           services,
		images:             imageStorage,
		sseManager:         sseManager,
		router:             router,
		logger:             logger,
		authRateLimiter:    NewRateLimiter(opts.AuthRequestsPerMinute, time.Minute, opts.AuthRequestsPerMinute/2+1),
		webhookRateLimiter: NewRateLimiter(opts.WebhookRequestsPerMinute, time.Minute, opts.WebhookRequestsPerMinute/4+1),
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}

	s.setupMiddleware(opts.CORSOrigins)

	humaConfig := huma.DefaultConfig("TagReturn API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	// Bodies are wrapped in the envelope instead of carrying $schema links.
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = []huma.Transformer{EnvelopeTransformer}

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerProfileRoutes()
	s.registerItemRoutes()
	s.registerTagRoutes()
	s.registerWebhookRoutes()
	s.registerAdminRoutes()
	s.registerStreamRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the rate limiters' background sweeps.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
	s.webhookRateLimiter.Stop()
}

// API exposes the huma API, mainly for OpenAPI export and tests.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Paystack-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.services != nil && s.services.Auth != nil {
		s.router.Use(authMiddleware(s.services.Auth))
	}
}

// registerStreamRoutes mounts the handlers that write raw bytes rather than
// JSON envelopes.
func (s *Server) registerStreamRoutes() {
	s.router.With(RateLimitMiddleware(s.authRateLimiter, s.logger)).Get("/api/v1/events", s.handleEvents)
	s.router.Get(images.URLPrefix+"{kind}/{id}", s.handleImage)
	s.router.Handle("/metrics", metrics.Handler())
}

// rateLimited returns a huma operation middleware keyed by client IP.
func (s *Server) rateLimited(limiter *RateLimiter) huma.Middlewares {
	return huma.Middlewares{func(ctx huma.Context, next func(huma.Context)) {
		key := clientIP(ctx.Header("X-Forwarded-For"), ctx.Header("X-Real-IP"), ctx.RemoteAddr())
		if !limiter.Allow(key) {
			s.logger.Warn("Rate limit exceeded", "ip", key, "path", ctx.URL().Path)
			_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next(ctx)
	}}
}
