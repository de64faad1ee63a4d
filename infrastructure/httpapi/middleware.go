// Package httpapi is the request/response surface: account endpoints, the
// conversation read path, the non-live send fallback and message search.
package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"doclink/auth"
	"doclink/errors"
)

const identityKey = "identity"

// RequireAuth extracts and validates the bearer token, binding the caller's
// identity to the request. Every route behind it can trust Identity(c).
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			return errorResponse(c, errors.ErrInvalidCredential)
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			return errorResponse(c, errors.ErrInvalidCredential)
		}

		c.Locals(identityKey, claims.UserID)
		return c.Next()
	}
}

// Identity returns the authenticated caller bound by RequireAuth.
func Identity(c *fiber.Ctx) string {
	identity, _ := c.Locals(identityKey).(string)
	return identity
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(errors.HTTPStatus(err)).JSON(fiber.Map{
		"error":   errors.WireCode(err),
		"message": err.Error(),
	})
}
