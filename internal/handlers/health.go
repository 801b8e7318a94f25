package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const healthTimeout = 2 * time.Second

// DBPinger is satisfied by *sql.DB
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness plus database and Redis readiness. A nil
// Redis client means the in-process task runner is in use.
func HealthHandler(env string, db DBPinger, rdb redis.UniversalClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		status := "healthy"
		code := fiber.StatusOK

		checks := fiber.Map{}
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				checks["database"] = "unavailable"
				status, code = "degraded", fiber.StatusServiceUnavailable
			} else {
				checks["database"] = "ok"
			}
		}
		if rdb == nil {
			checks["redis"] = "not configured"
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable"
			status, code = "degraded", fiber.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}

		return c.Status(code).JSON(fiber.Map{
			"status":      status,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": env,
			"checks":      checks,
		})
	}
}
