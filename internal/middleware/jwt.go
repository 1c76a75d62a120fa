package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/gin-gonic/gin" // Gin web framework

	"event_wallet/internal/utils" // JWT utility functions
)

// JWTAuthMiddleware validates the bearer token and stores the caller's user id
// and role in the context
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header", "code": "unauthorized"})
			return
		}
		claims, err := utils.ParseJWT(strings.TrimPrefix(authHeader, "Bearer "), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthorized"})
			return
		}
		c.Set("userID", claims.UserID) // Authenticated user
		c.Set("role", claims.Role)     // Informational; admin routes re-check the database
		c.Next()
	}
}
