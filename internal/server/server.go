// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log"
	"log/slog"
	"time"

	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/featureflags"
	"agora/internal/forum"
	"agora/internal/identity"
	"agora/internal/messaging"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/reactions"
	"agora/internal/store"
	livesync "agora/internal/sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          store.Store
	db             *gorm.DB // nil with the memory store driver
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	traceShutdown  func(context.Context) error
	identity       identity.Provider
	hub            *livesync.Hub
	featureFlags   *featureflags.Manager
	forum          *forum.Service
	messaging      *messaging.Service
	reactions      *reactions.Service
	logger         *slog.Logger
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, err
	}

	provider := identity.NewJWTProvider(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	return newServer(cfg, rt.Store, rt.DB, rt.Redis, provider), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes the store, Redis
// and identity verification up front.
func NewServerWithDeps(cfg *config.Config, st store.Store, redisClient *redis.Client, provider identity.Provider) *Server {
	return newServer(cfg, st, nil, redisClient, provider)
}

func newServer(cfg *config.Config, st store.Store, db *gorm.DB, redisClient *redis.Client, provider identity.Provider) *Server {
	prom := middleware.InitMetrics("agora-api")
	middleware.InitMiddleware(provider)

	logger := middleware.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hub := livesync.NewHub()
	return &Server{
		config:         cfg,
		store:          st,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		identity:       provider,
		hub:            hub,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		forum:          forum.NewService(st, hub, logger),
		messaging:      messaging.NewService(st, hub, logger),
		reactions:      reactions.NewService(st, logger),
		logger:         logger,
	}
}

// newRegistry creates a per-connection subscription registry attached to the
// shared hub so cascade deletes can cancel its scopes.
func (s *Server) newRegistry() *livesync.Registry {
	r := livesync.NewRegistry(s.store, s.logger)
	s.hub.Attach(r)
	return r
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// OpenTelemetry spans around every request
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Agora Backend Metrics Dashboard",
	}))

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	protected.Get("/flags", s.GetFeatureFlags)

	// Forum routes
	themata := protected.Group("/themata")
	themata.Post("/", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "create_thema"), s.CreateThema)
	themata.Get("/", s.GetThemata)
	themata.Delete("/:themaId", s.AdminRequired(), s.DeleteThema)

	// Thread routes
	themata.Post("/:themaId/threads", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_thread"), s.CreateThread)
	themata.Get("/:themaId/threads", s.GetThreads)
	themata.Delete("/:themaId/threads/:threadId", s.DeleteThread)
	themata.Post("/:themaId/threads/:threadId/reactions", s.ToggleThreadReaction)

	// Comment routes
	comments := themata.Group("/:themaId/threads/:threadId/comments")
	comments.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	comments.Get("/", s.GetComments)
	comments.Put("/:commentId", s.UpdateComment)
	comments.Delete("/:commentId", s.DeleteComment)
	comments.Post("/:commentId/reactions", s.ToggleCommentReaction)

	// Messaging routes
	conversations := protected.Group("/conversations")
	conversations.Post("/", s.CreateConversation)
	conversations.Get("/", s.GetConversations)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	conversations.Get("/:id/messages", s.GetMessages)
	conversations.Post("/:id/messages", middleware.RateLimit(
		s.redis, 15, time.Minute, "send_message"), s.SendMessage)
	conversations.Put("/:id/messages/:messageId", s.EditMessage)
	conversations.Post("/:id/read", s.MarkConversationRead)
	conversations.Post("/:id/repair", s.RepairConversation)
	conversations.Put("/:id", s.RenameConversation)
	conversations.Delete("/:id", s.DeleteConversation)

	// Websocket endpoint for live result-set subscriptions
	ws := api.Group("/ws", middleware.WebSocketAuthRequired)
	ws.Get("/live", s.WebSocketLiveHandler())
}

// GetFeatureFlags handles GET /api/flags, returning the flags as evaluated
// for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(caller(c).UID))
}

// featureEnabled evaluates a flag for the caller.
func (s *Server) featureEnabled(c *fiber.Ctx, name string) bool {
	return s.featureFlags.Enabled(name, caller(c).UID)
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			storeStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			storeStatus = "unhealthy"
		}
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin callers with 403.
// Must be placed after AuthRequired so that the caller identity is available.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := middleware.CallerIdentity(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewNotAuthenticatedError("Authorization required"))
		}
		if !id.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	traceShutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "agora-api",
		ServiceVersion: "1.0",
		Environment:    s.config.Env,
		Enabled:        s.config.TracingEnabled,
		Exporter:       s.config.TracingExporter,
		OTLPEndpoint:   s.config.TracingOTLPEndpoint,
		SamplerRatio:   s.config.TracingSamplerRatio,
	})
	if err != nil {
		return err
	}
	s.traceShutdown = traceShutdown

	app := fiber.New(fiber.Config{
		AppName: "Agora API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, models.StatusForError(err), err)
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Shutdown the HTTP/WS server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Cancel every live subscription
	s.hub.UnsubscribeAll()

	// Flush pending trace spans
	if s.traceShutdown != nil {
		if terr := s.traceShutdown(ctx); terr != nil {
			log.Printf("error shutting down tracer: %v", terr)
		}
	}

	// Close database connection
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				log.Printf("error closing sql DB: %v", cerr)
			}
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
