package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/quicksend/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// rateLimiter is a per-IP token bucket for the issuance endpoints.
func rateLimiter(rps float64, burst int, logger logging.Logger) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: 10 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "unable to identify client"})
		},
		DenyHandler: func(c echo.Context, id string, err error) error {
			logger.Warn(c.Request().Context(), "rate limit exceeded", "ip", id)
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded, try again later"})
		},
	})
}

func requestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"ip", v.RemoteIP,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				args = append(args, "error", v.Error)
				logger.Error(c.Request().Context(), "request", args...)
				return nil
			}
			logger.Info(c.Request().Context(), "request", args...)
			return nil
		},
	})
}
