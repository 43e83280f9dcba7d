package middleware

import (
	"net/http"
	"strings"

	"pixcharge/config"
	"pixcharge/internal/auth"

	"github.com/gin-gonic/gin"
)

// ServiceAuth validates the bearer service token and sets the caller subject
// in context.
func ServiceAuth(cfg *config.APIConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, err := auth.ParseServiceToken(cfg, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("caller", claims.Subject)
		c.Set("claims", claims)
		c.Next()
	}
}

// GetCaller returns the authenticated subject (must be used after ServiceAuth).
func GetCaller(c *gin.Context) string {
	return c.GetString("caller")
}
