package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID    = "X-Request-ID"
	headerInvocationID = "X-Azure-Functions-InvocationId"
)

// GinMiddleware returns a Gin middleware that:
//  1. Reads the Functions host invocation ID, falling back to X-Request-ID or a new UUID.
//  2. Creates a child logger with request metadata and injects it into context.
//  3. Sets the X-Request-ID response header.
//  4. Logs the completed invocation with status and latency.
func GinMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := RequestID(c.GetHeader(headerInvocationID), c.GetHeader(headerRequestID))

		child := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()

		c.Header(headerRequestID, reqID)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), child))

		c.Next()

		child.Info().
			Int(FieldStatus, c.Writer.Status()).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds())).
			Msg("request completed")
	}
}

// RequestID returns the first non-empty candidate, or a fresh UUID.
func RequestID(candidates ...string) string {
	for _, id := range candidates {
		if id != "" {
			return id
		}
	}
	return uuid.New().String()
}
