package middleware

import (
	"strconv"
	"time"

	"salesforge-api/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request count and latency per matched route
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		// the route template keeps label cardinality bounded
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Method(), route, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}
