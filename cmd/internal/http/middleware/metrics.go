package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"telenotes/cmd/internal/infrastructure/metrics"
	"time"

	"github.com/labstack/echo/v4"
)

// NewMetricsMiddleware observes the latency of every request, labelled by
// the route template so ids do not explode the label space.
func NewMetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			metrics.RequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
