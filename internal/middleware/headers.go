package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
)

// CORS allows credentialed requests from the configured frontend origin.
// Requests carrying any other Origin are rejected with 403.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{strings.TrimRight(allowedOrigin, "/")},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,

		OptionsResponseStatusCode: http.StatusNoContent,
	})
}

// Recovery turns panics into a 500 response and logs the stack trace.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
		log.Error("panic recovered",
			slog.Any("panic", err),
			slog.String("request_id", RequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("stack", string(debug.Stack())),
		)
		apierrors.InternalError(c, "")
	})
}
