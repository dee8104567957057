// Package middleware provides gin middleware for the API.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/constants"
)

// RequestIDHeader carries the request ID back to the client.
const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request ID and logs each request. Successful
// requests are only logged when verbose is set.
func RequestLogger(log *slog.Logger, verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.New().String()[:8]

		c.Set(constants.ContextKeyRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		if !verbose && status < 400 {
			return
		}

		attrs := []any{
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("route", routeOf(c)),
			slog.Int("status", status),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
		}
		if userID, ok := GetUserID(c); ok {
			attrs = append(attrs, slog.Uint64("user_id", userID))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request", attrs...)
		case status >= 400:
			log.Warn("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}

// RequestID returns the ID assigned by RequestLogger.
func RequestID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyRequestID)
}

// routeOf returns the matched route pattern, or the raw path for unmatched requests.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
