package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/publiccomment/internal/model"
	"github.com/jjenkins/publiccomment/internal/service"
)

// TokenIssuer signs tokens for authenticated admins
type TokenIssuer interface {
	Issue(p model.AdminProfile) (string, error)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func LoginHandler(admins *service.AdminService, tokens TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody()
		}

		profile, err := admins.Authenticate(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return err
		}

		token, err := tokens.Issue(*profile)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Login successful",
			"token":   token,
			"user":    profile,
		})
	}
}

// LogoutHandler acknowledges a logout; tokens are stateless and simply discarded by the client
func LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Logout successful",
		})
	}
}
