package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
)

const adminLocalsKey = "admin"

// TokenVerifier turns a bearer token into the admin it was issued to
type TokenVerifier interface {
	Verify(raw string) (*model.AdminProfile, error)
}

// AdminLookup loads the account a token was issued to
type AdminLookup interface {
	Get(ctx context.Context, id string) (*model.Admin, error)
}

// RequireAdmin rejects requests without a valid bearer token. The token's
// account must still exist and be active.
func RequireAdmin(tokens TokenVerifier, admins AdminLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Access token required")
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "Invalid token")
		}

		account, err := admins.Get(c.UserContext(), claims.ID)
		if errors.Is(err, service.ErrNotFound) {
			return fiber.NewError(fiber.StatusForbidden, "Invalid token")
		}
		if err != nil {
			return err
		}
		if !account.IsActive {
			return fiber.NewError(fiber.StatusForbidden, "Invalid token")
		}

		profile := account.Profile()
		c.Locals(adminLocalsKey, &profile)
		return c.Next()
	}
}

// CurrentAdmin returns the admin authenticated by RequireAdmin, or nil
func CurrentAdmin(c *fiber.Ctx) *model.AdminProfile {
	profile, _ := c.Locals(adminLocalsKey).(*model.AdminProfile)
	return profile
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequestLogger logs one line per request. Errors are rendered here so the
// logged status is the one the client receives.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		}
		if admin := CurrentAdmin(c); admin != nil {
			fields = append(fields, zap.String("admin_id", admin.ID))
		}
		logger.Info("request", fields...)
		return nil
	}
}
