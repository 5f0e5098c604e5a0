package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/services"
	"github.com/temcen/copyink/pkg/models"
)

const identityKey = "identity"

func Auth(verifier services.TokenVerifier, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
			})
			return
		}

		// Check for Bearer token format
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || strings.TrimSpace(tokenParts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must be in format 'Bearer <token>'",
			})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(tokenParts[1]))
		if err != nil {
			logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("Invalid ID token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// GetIdentity returns the identity set by Auth.
func GetIdentity(c *gin.Context) (*models.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*models.Identity)
	return identity, ok
}

// AdminToken guards operator endpoints with a static shared secret. An
// empty token rejects every request.
func AdminToken(token string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			logger.WithField("client_ip", c.ClientIP()).Warn("Rejected admin request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid admin token",
			})
			return
		}
		c.Next()
	}
}
