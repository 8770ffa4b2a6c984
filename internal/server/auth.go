package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hackboard/hackboard/internal/models"
)

const userContextKey = "hackboard.user"

// bearerToken extracts the credential from the Authorization header or,
// for tooling convenience, the key query parameter.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("key")
}

// requireUser resolves the bearer API key to a user row and aborts with
// 401 when it cannot.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearerToken(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "an API key is required"})
			return
		}
		var user models.User
		err := s.db.Where("api_key = ? AND api_key <> ''", key).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown API key"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
			return
		}
		c.Set(userContextKey, &user)
	}
}

// requireSecret guards the machine push endpoint with the shared secret.
func (s *Server) requireSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.secret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "push endpoint is disabled: no secret configured"})
			return
		}
		got := bearerToken(c)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
	}
}

// currentUser returns the user set by requireUser.
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userContextKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
