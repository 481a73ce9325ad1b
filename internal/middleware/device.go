package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DeviceHeader carries the locally-generated device identity on every
// review request.
const DeviceHeader = "X-Device-ID"

// RequireDevice gates review routes on a present device identity and
// exposes it as the "deviceId" local. The identity is self-asserted;
// it scopes ownership, it does not authenticate.
func RequireDevice() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid := strings.TrimSpace(c.Get(DeviceHeader))
		if uid == "" {
			return fiber.NewError(fiber.StatusBadRequest, DeviceHeader+" header required")
		}
		c.Locals("deviceId", uid)
		return c.Next()
	}
}
