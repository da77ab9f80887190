// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	_ "forgedb/docs" // swagger docs
	"forgedb/internal/bootstrap"
	"forgedb/internal/cache"
	"forgedb/internal/captcha"
	"forgedb/internal/config"
	"forgedb/internal/featureflags"
	"forgedb/internal/mail"
	"forgedb/internal/middleware"
	"forgedb/internal/models"
	"forgedb/internal/notifications"
	"forgedb/internal/repository"
	"forgedb/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	content        repository.ContentStore
	userRepo       repository.UserRepository
	cache          *cache.Cache
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	authService    *service.AuthService
	modService     *service.ModService
	reviewService  *service.ReviewService
	userService    *service.UserService
}

// Option customizes a Server built by NewServerWithDeps.
type Option func(*serverDeps)

type serverDeps struct {
	mailer     mail.Mailer
	verifier   captcha.Verifier
	bcryptCost int
}

// WithMailer replaces the mailer selected from configuration.
func WithMailer(m mail.Mailer) Option {
	return func(d *serverDeps) { d.mailer = m }
}

// WithCaptcha replaces the captcha verifier selected from configuration.
func WithCaptcha(v captcha.Verifier) Option {
	return func(d *serverDeps) { d.verifier = v }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(d *serverDeps) { d.bcryptCost = cost }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{EnsureAdmin: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Content)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limits and token revocation are then off
// and live updates stay local to this process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, content repository.ContentStore, opts ...Option) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if content == nil {
		content = repository.NewSQLStore(db)
	}

	deps := serverDeps{
		mailer:   mail.FromConfig(cfg),
		verifier: captcha.New(cfg.HCaptchaSecret),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("forgedb-api"),
		content:        content,
		userRepo:       repository.NewUserRepository(db),
		cache:          cache.New(redisClient, cfg.CacheTTL()),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	server.userService = service.NewUserService(server.userRepo)
	server.authService = service.NewAuthService(server.userRepo, deps.mailer, deps.verifier, server.featureFlags)
	if deps.bcryptCost > 0 {
		server.authService.WithBcryptCost(deps.bcryptCost)
	}

	var events service.EventPublisher
	if server.featureFlags.Global(featureflags.LiveUpdates) {
		server.hub = notifications.NewHub()
		server.notifier = notifications.NewNotifier(redisClient, server.hub)
		events = server.notifier
	}

	server.modService = service.NewModService(content.Mods(), content.Reviews(), server.cache, server.userService.IsAdmin)
	server.reviewService = service.NewReviewService(
		content.Mods(), content.Reviews(), server.userRepo, server.cache, events, server.userService.IsAdmin)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so short-circuited responses still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins(s.config.Origins()),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
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

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "ForgeDB Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	// credential endpoints refuse requests while a configured Redis is down
	auth.Post("/register", middleware.RateLimitWithPolicy(
		s.redis, 5, 10*time.Minute, middleware.FailClosed, "register"), s.Register)
	auth.Post("/verify", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "verify"), s.Verify)
	auth.Post("/login", middleware.RateLimitWithPolicy(
		s.redis, 10, 5*time.Minute, middleware.FailClosed, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	// older clients post verification codes here
	api.Post("/verify", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "verify"), s.Verify)

	api.Get("/avatar/:email", s.AvatarRedirect)

	mods := api.Group("/mods")
	mods.Get("/", s.GetMods)
	mods.Post("/", s.AuthRequired(), s.AdminRequired(), s.CreateMod)
	mods.Get("/:id", s.GetMod)

	reviews := api.Group("/reviews")
	reviews.Get("/", s.AuthRequired(), s.GetMyReviews)
	reviews.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "create_review"), s.CreateReview)
	reviews.Get("/:id", s.GetReview)
	reviews.Put("/:id", s.AuthRequired(), s.ToggleReaction)
	reviews.Delete("/:id", s.AuthRequired(), s.AdminRequired(), s.DeleteReview)

	// per-route guards: a guarded Group("") would also catch routes added after it
	api.Get("/user/profile", s.AuthRequired(), s.GetMyProfile)
	api.Put("/user/profile", s.AuthRequired(), s.UpdateMyProfile)
	api.Get("/users", s.AuthRequired(), s.AdminRequired(), s.GetAllUsers)

	admin := api.Group("/admin")
	admin.Post("/make-admin", s.AuthRequired(), s.AdminRequired(), s.MakeAdmin)
	admin.Get("/feature-flags", s.AuthRequired(), s.AdminRequired(), s.GetFeatureFlags)

	api.Get("/ws/mods/:id", s.LiveUpdatesUpgrade, s.ModUpdatesHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only an unreachable configured Redis marks the service unhealthy.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "ForgeDB",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"content":  s.config.ContentBackend,
		},
		"time": time.Now(),
	})
}

// errorHandler keeps fiber's own errors (unknown route, bad method) at their
// status and hides everything else behind a 500.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// NewApp builds the fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "ForgeDB API",
		ErrorHandler: errorHandler,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// StartLiveUpdates subscribes the hub to Redis so events published by any
// instance reach this instance's WebSocket clients.
func (s *Server) StartLiveUpdates(ctx context.Context) error {
	if s.hub == nil || s.notifier == nil || s.redis == nil {
		return nil
	}
	return s.hub.StartWiring(ctx, s.notifier)
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.NewApp()

	go func() {
		if err := s.StartLiveUpdates(s.shutdownCtx); err != nil {
			middleware.Logger.Error("failed to start live update wiring", "error", err)
		}
	}()

	middleware.Logger.Info("Server starting", "port", s.config.Port, "content_backend", s.config.ContentBackend)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down live update hub", "error", err)
		}
	}

	if s.content != nil {
		if err := s.content.Close(); err != nil {
			middleware.Logger.Error("error closing content store", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

func allowOrigins(origins []string) string {
	if len(origins) == 0 {
		return "http://localhost:3000"
	}
	return strings.Join(origins, ",")
}
