package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library

	"event_wallet/internal/domain" // Domain models
)

// AdminOnlyMiddleware loads the caller's role from the database on each
// request, so a demoted admin loses access before their token expires
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
			return
		}
		var user domain.User
		err := db.WithContext(c.Request.Context()).Select("id", "role").First(&user, userID).Error
		if err != nil || user.Role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required", "code": "forbidden"})
			return
		}
		c.Next()
	}
}
