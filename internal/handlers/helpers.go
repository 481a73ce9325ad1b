package handlers

import "github.com/gofiber/fiber/v2"

// deviceID reads the identity the RequireDevice middleware attached.
func deviceID(c *fiber.Ctx) string {
	if v, ok := c.Locals("deviceId").(string); ok {
		return v
	}
	return ""
}
