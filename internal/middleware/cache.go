package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids browsers and proxies from caching responses. Session state
// changes on every answer, so a cached copy would show a stale question.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
