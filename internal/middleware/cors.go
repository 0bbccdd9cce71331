package middleware

import (
	"github.com/gin-gonic/gin"
)

// CORS sets permissive headers; the back office is served from another origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Usuario-ID, Idempotency-Key")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, Idempotency-Replayed")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
