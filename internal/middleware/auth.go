package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/water-ml-server/internal/domain"
)

// RequireSession validates the Bearer token against the session store and
// aborts with 401 when it is missing, unknown or expired. The resolved user
// id is stored in the context for handlers.
func RequireSession(sessions domain.SessionStore, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing bearer token",
				"code":  domain.CodeUnauthorized,
			})
			return
		}

		sess, err := sessions.GetByToken(c.Request.Context(), token)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"path":  c.Request.URL.Path,
				"error": err,
			}).Warn("Session validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired session",
				"code":  domain.CodeUnauthorized,
			})
			return
		}

		c.Set("user_id", sess.UserID)
		c.Set("session_token", sess.Token)
		c.Next()
	}
}
