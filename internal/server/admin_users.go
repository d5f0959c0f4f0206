package server

import (
	"net/http"
	"strings"

	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	"github.com/gin-gonic/gin"
)

type adminUsersRequest struct {
	Action             string `json:"action"`
	Email              string `json:"email"`
	Credits            *int64 `json:"credits"`
	PlanType           string `json:"planType"`
	Plan               string `json:"plan"`
	SubscriptionStatus string `json:"subscriptionStatus"`
}

type adminUsersResponse struct {
	Success bool `json:"success,omitempty"`
	*billingdomain.Snapshot
}

// HandleAdminUsers serves the admin dashboard actions: lookup,
// grant_credits and set_plan, all addressed by email.
func (s *Server) HandleAdminUsers(c *gin.Context) {
	var req adminUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}

	ctx := c.Request.Context()

	switch strings.TrimSpace(req.Action) {
	case "lookup":
		snapshot, err := s.billingSvc.Lookup(ctx, req.Email)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, adminUsersResponse{Snapshot: snapshot})

	case "grant_credits":
		if req.Credits == nil {
			AbortWithError(c, newValidationError("credits", "required", "provide a non-zero numeric amount for credits"))
			return
		}
		snapshot, err := s.billingSvc.GrantCredits(ctx, req.Email, *req.Credits, req.PlanType)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, adminUsersResponse{Success: true, Snapshot: snapshot})

	case "set_plan":
		snapshot, err := s.billingSvc.SetPlan(ctx, req.Email, req.Plan, req.SubscriptionStatus)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, adminUsersResponse{Success: true, Snapshot: snapshot})

	default:
		AbortWithError(c, newValidationError("action", "unknown_action", "unknown action"))
	}
}
