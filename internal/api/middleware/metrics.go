package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/rfscan-go/internal/observability/metrics"
)

// NewMetrics records request counts, latency, in-flight requests and
// response size per route pattern. A nil m disables recording.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			done := m.RequestStarted()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				// The error handler has not written the response yet
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			done(c.Request().Method, path, status, c.Response().Size)
			return err
		}
	}
}
