package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/water-ml-server/internal/domain"
)

type loginRequest struct {
	Email string `json:"email" binding:"required"`
}

// handleLogin looks the account up by email and issues an opaque session
// token. Banned accounts cannot log in.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing email")
		return
	}

	user, err := s.deps.Users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		// Unknown emails get the same response as banned accounts so the
		// login endpoint doesn't reveal which addresses exist.
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		s.fail(c, err)
		return
	}
	if user.Banned {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is banned"})
		return
	}

	sess, err := s.deps.Sessions.Create(c.Request.Context(), user.ID, s.cfg.SessionTTL)
	if err != nil {
		s.fail(c, err)
		return
	}

	ok(c, gin.H{
		"token":     sess.Token,
		"expiresAt": sess.ExpiresAt,
		"user":      user,
	})
}

// handleLogout revokes the presented session token.
func (s *Server) handleLogout(c *gin.Context) {
	token := c.GetString("session_token")
	if err := s.deps.Sessions.DeleteByToken(c.Request.Context(), token); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"loggedOut": true})
}

// handleSession returns the authenticated user for a valid bearer token.
func (s *Server) handleSession(c *gin.Context) {
	userID := c.GetString("user_id")
	user, err := s.deps.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if user.Banned {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is banned"})
		return
	}
	ok(c, gin.H{"user": user})
}
