package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleBillingOverview returns the caller's own plan, balance and recent
// usage for the dashboard.
func (s *Server) HandleBillingOverview(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	overview, err := s.billingSvc.Overview(c.Request.Context(), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
