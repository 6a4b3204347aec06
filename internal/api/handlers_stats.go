package api

import (
	"github.com/gin-gonic/gin"
)

// handleStats serves the dashboard aggregate. The same handler backs the
// public and the session-gated routes.
func (s *Server) handleStats(c *gin.Context) {
	snap, err := s.deps.Stats.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, snap)
}
