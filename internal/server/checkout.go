package server

import (
	"net/http"
	"strings"

	checkoutdomain "github.com/cluo0901/roomgpt/internal/checkout/domain"
	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) HandleCheckout(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Plan) == "" {
		AbortWithError(c, newValidationError("plan", "required", "plan is required"))
		return
	}

	result, err := s.checkoutSvc.CreateSession(c.Request.Context(), checkoutdomain.CreateSessionInput{
		UserID: identity.UserID,
		Email:  identity.Email,
		Plan:   req.Plan,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
