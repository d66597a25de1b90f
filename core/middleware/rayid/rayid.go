// Package rayid assigns a unique request identifier to every incoming
// request. The ID is stored in the request locals under "ray_id" and
// echoed back in the X-Ray-ID response header. An incoming X-Ray-ID
// header is honored, so IDs survive proxy hops.
package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderName is the header the ray ID is read from and written to.
const HeaderName = "X-Ray-ID"

// New creates the ray ID middleware.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(HeaderName)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("ray_id", rid)
		c.Set(HeaderName, rid)
		return c.Next()
	}
}
