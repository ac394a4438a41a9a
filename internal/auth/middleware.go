package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"tabledash/internal/engine"
	"tabledash/internal/metadata"
	"tabledash/internal/store"
)

// Middleware returns a Fiber middleware that validates the bearer token and
// loads the user, including its grant blobs, fresh from the store for this
// request. No permission state is cached between requests.
func Middleware(s *store.Store, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		user, err := metadata.LoadUserByID(c.Context(), s, claims.Subject)
		if err != nil {
			return engine.UnauthorizedError("Unknown user")
		}
		if !user.Active {
			return engine.UnauthorizedError("Account is disabled")
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// RequireAdmin is a Fiber middleware that checks the authenticated user is an admin.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*metadata.User)
		if !ok || user == nil {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !user.IsAdmin {
			return engine.ForbiddenError("Admin access required")
		}
		return c.Next()
	}
}
