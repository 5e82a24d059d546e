package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// authorKey is the gin context key carrying the requesting analyst identity.
const authorKey = "author"

// identityMiddleware reads the X-Author header so mutations can be
// attributed on the audit timeline. Absent header means an anonymous
// request; nothing is rejected here.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(authorKey, c.GetHeader("X-Author"))
		c.Next()
	}
}

// author returns the requesting identity, empty for anonymous requests.
func author(c *gin.Context) string {
	return c.GetString(authorKey)
}

// requestLogger logs one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
