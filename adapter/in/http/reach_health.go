package http

import (
	"context"
	"database/sql"
	"time"

	"reach_server/infra/database"
	"reach_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to HealthChecker.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type namedCheck struct {
	name    string
	checker HealthChecker
}

type HealthHandler struct {
	db      *pgxpool.Pool
	sqlPool *sql.DB
	checks  []namedCheck
}

// NewHealthHandler checks postgres and redis when they are configured.
// Either may be nil.
func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	h := &HealthHandler{db: db}
	if db != nil {
		h.checks = append(h.checks, namedCheck{"postgres", db})
	}
	if rdb != nil {
		h.checks = append(h.checks, namedCheck{"redis", PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})})
	}
	return h
}

// WithSQLPool reports the database/sql pool used by the repositories. An
// exhausted pool makes the service not ready.
func (h *HealthHandler) WithSQLPool(db *sql.DB) *HealthHandler {
	h.sqlPool = db
	return h
}

// WithCheck adds a named readiness check.
func (h *HealthHandler) WithCheck(name string, checker HealthChecker) *HealthHandler {
	h.checks = append(h.checks, namedCheck{name, checker})
	return h
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true
	for _, chk := range h.checks {
		if err := chk.checker.Ping(ctx); err != nil {
			checks[chk.name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[chk.name] = "healthy"
		}
	}

	var poolHealth *metrics.PoolHealth
	if h.sqlPool != nil {
		ph := metrics.AssessDBPoolHealth(h.sqlPool.Stats())
		poolHealth = &ph
		if ph.Status == metrics.PoolUnhealthy {
			allHealthy = false
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.db != nil {
		body["pool"] = database.GetPoolStats(h.db)
	}
	if poolHealth != nil {
		body["sql_pool"] = poolHealth
	}
	return c.Status(statusCode).JSON(body)
}
