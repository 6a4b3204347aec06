package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/water-ml-server/internal/domain"
)

type userCreateRequest struct {
	Name  string  `json:"name" binding:"required"`
	Email string  `json:"email" binding:"required,email"`
	Role  *string `json:"role"`
}

type userUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.deps.Users.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	ok(c, users)
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req userCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid user payload")
		return
	}

	u := &domain.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}
	if err := s.deps.Users.Create(c.Request.Context(), u); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": u, "status": "success"})
}

func (s *Server) handleGetUser(c *gin.Context) {
	u, err := s.deps.Users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, u)
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid user payload")
		return
	}
	if req.Name == nil && req.Email == nil && req.Role == nil {
		badRequest(c, "Empty user update")
		return
	}

	u, err := s.deps.Users.Update(c.Request.Context(), c.Param("id"), domain.UserUpdate{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, u)
}

// handleDeleteUser soft-bans the user and revokes their sessions. The row
// stays so test records keep their owner.
func (s *Server) handleDeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := s.deps.Users.SoftDelete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.deps.Sessions.DeleteByUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"banned": id})
}
