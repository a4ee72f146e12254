package bootstrap

import (
	"strings"

	"reach_server/adapter/in/http"
	"reach_server/config"
	"reach_server/infra/middleware"
	"reach_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}
	return NewAPIWithDeps(deps), cleanup, nil
}

// NewAPIWithDeps mounts every route on a new app. Sharing deps with the
// worker keeps a single recompute guard per process.
func NewAPIWithDeps(deps *Dependencies) *fiber.App {
	cfg := deps.Config
	app := NewApp(cfg)

	// Health check and metrics (no auth required)
	http.NewHealthHandler(deps.DB, deps.Redis).WithSQLPool(deps.SQLDB.DB).Register(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes (with auth)
	api := app.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	http.NewTierHandler(deps.TierService).Register(api)

	// The preview spends outbound quota, so each caller gets its own bucket.
	previewLimiter := middleware.NewRateLimiter(cfg.SocialPreviewLimit, 3)
	http.NewSocialHandler(deps.SocialService, previewLimiter.Handler()).Register(api)

	http.NewNotificationHandler(deps.NotificationService).Register(api)
	http.NewAdminHandler(deps.Recomputer).Register(api)

	logger.Info("API server initialized successfully")
	return app
}

// NewApp builds the Fiber app with the global middleware stack.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             1 * 1024 * 1024,
		ServerHeader:          "",
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())         // 1. Panic recovery
	app.Use(middleware.RequestID())       // 2. Request ID
	app.Use(middleware.SecurityHeaders()) // 3. Security headers
	app.Use(middleware.RequestLogger())   // 4. Request logging

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// AllowCredentials:true requires explicit origins (not "*")
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:8081"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,Retry-After",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	return app
}
