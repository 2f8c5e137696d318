package httpapi

import (
	"strings"

	"github.com/everkeep/everkeep/internal/server/auth"
	"github.com/everkeep/everkeep/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

const callerKey = "caller"

// Authenticate parses the Bearer token and stores the caller identity in the
// request locals. Requests without a valid token are rejected with 401.
func Authenticate(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return respondError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			return respondError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		c.Locals(callerKey, models.CallerContext{UserID: claims.UserID, IsAdmin: claims.IsAdmin})
		return c.Next()
	}
}

// AdminRequired allows only administrator callers through. It must run after
// Authenticate.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !callerFrom(c).IsAdmin {
			return respondError(c, fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

func callerFrom(c *fiber.Ctx) models.CallerContext {
	caller, _ := c.Locals(callerKey).(models.CallerContext)
	return caller
}
