package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestID propagates X-Request-Id or assigns a new one.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(echo.HeaderXRequestID, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// Logger writes one line per request.  Level follows the status class.
func Logger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the response so the status is known
				c.Error(err)
			}
			status := c.Response().Status

			event := log.Info()
			switch {
			case status >= 500:
				event = log.Error().Err(err)
			case status >= 400:
				event = log.Warn()
			}
			event.
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("client_ip", c.RealIP()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("http request")
			return nil
		}
	}
}
