package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// LocalOwnerRef carries the caller's owner reference through Locals.
const LocalOwnerRef = "OWNER_REF"

const maxOwnerRefLength = 64

// OwnerRefMiddleware requires the X-Owner-Ref header on owner-scoped
// routes. Authentication itself happens upstream at the gateway; this
// service only needs a stable owner identity for scoping.
func OwnerRefMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ownerRef := strings.TrimSpace(c.Get("X-Owner-Ref"))
		if ownerRef == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing X-Owner-Ref header"})
		}
		if len(ownerRef) > maxOwnerRefLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "X-Owner-Ref exceeds 64 characters"})
		}

		c.Locals(LocalOwnerRef, ownerRef)
		return c.Next()
	}
}

// OwnerRef returns the owner reference set by OwnerRefMiddleware, or
// "" when the request did not pass through it.
func OwnerRef(c *fiber.Ctx) string {
	if v := c.Locals(LocalOwnerRef); v != nil {
		if ref, ok := v.(string); ok {
			return ref
		}
	}
	return ""
}
