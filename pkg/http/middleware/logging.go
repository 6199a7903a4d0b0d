package middleware

import (
	"time"

	applogger "SetupScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one debug line per request once the handler returns.
// For event streams that is when the stream ends.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			fields := []applogger.Field{
				applogger.String("request_id", GetRequestID(c)),
				applogger.String("method", c.Request().Method),
				applogger.String("uri", c.Request().RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency", time.Since(start)),
			}
			if err != nil {
				fields = append(fields, applogger.Error(err))
			}
			l.Debug("http request", fields...)
			return err
		}
	}
}
