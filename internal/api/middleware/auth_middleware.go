package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	config "github.com/maheshrc27/captionflow/configs"
	"github.com/maheshrc27/captionflow/pkg/utils"
)

type AuthMiddleware struct {
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg}
}

// AuthMiddleware accepts a Supabase access token as a bearer token and
// stores its subject as the request's user id.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		claims, err := utils.ValidateToken(m.cfg.Supabase.JWTSecret, strings.TrimSpace(tokenString))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		if _, err := uuid.Parse(claims.Subject); err != nil {
			slog.Info(err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid user id in token",
			})
		}

		c.Locals("user_id", claims.Subject)
		return c.Next()
	}
}
