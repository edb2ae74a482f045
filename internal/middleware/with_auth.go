package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/peerval-go-api/internal/utils"
)

// Auth role constants used by the WithAuth helper.
const (
	AuthRoleAny     = "any"
	AuthRoleAdmin   = "admin"
	AuthRoleTeacher = "teacher"
	AuthRoleStudent = "student"
)

// AuthOptions configures the WithAuth helper. Authentication is required
// unless AllowAnonymous is set, and AllowAnonymous is only honoured for
// AuthRoleAny.
type AuthOptions struct {
	Role           string
	AllowAnonymous bool
}

// WithAuth wraps a single handler with authentication and role guards, for
// routes where a group-level RequireRole does not fit.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id")
		if userID == nil {
			if role == AuthRoleAny && opts.AllowAnonymous {
				return handler(c)
			}
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if role == AuthRoleAny {
			return handler(c)
		}

		if normalizeRoleValue(c.Locals("user_role")) != role {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}

		return handler(c)
	}
}
