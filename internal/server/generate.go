package server

import (
	"net/http"
	"strings"

	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	"github.com/cluo0901/roomgpt/internal/generation"
	"github.com/cluo0901/roomgpt/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const generationProvider = "controlnet"

type generateRequest struct {
	ImageURL string `json:"imageUrl"`
	Theme    string `json:"theme"`
	Room     string `json:"room"`
}

// entitlementDenial is the 402 body the frontend renders a paywall from.
type entitlementDenial struct {
	Error            errorPayload `json:"error"`
	Plan             string       `json:"plan"`
	RemainingCredits *int64       `json:"remaining_credits,omitempty"`
	Reason           string       `json:"reason"`
}

func (s *Server) HandleGenerate(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" || strings.TrimSpace(req.Theme) == "" || strings.TrimSpace(req.Room) == "" {
		AbortWithError(c, newValidationError("request", "missing_fields", "imageUrl, theme and room are required"))
		return
	}

	ctx := c.Request.Context()

	check, err := s.billingSvc.CanGenerate(ctx, identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !check.Allowed {
		c.JSON(http.StatusPaymentRequired, entitlementDenial{
			Error: errorPayload{
				Type:    "payment_required",
				Message: check.Reason,
			},
			Plan:             check.Plan,
			RemainingCredits: check.RemainingCredits,
			Reason:           check.Reason,
		})
		return
	}

	result, err := s.generationSvc.Generate(ctx, generation.Input{
		ImageURL: req.ImageURL,
		Room:     req.Room,
		Theme:    req.Theme,
	})
	if err != nil {
		s.metrics.RecordGeneration(generationProvider, "error")
		AbortWithError(c, err)
		return
	}

	// Usage recording is best effort: the image was already produced, so
	// a bookkeeping failure must not fail the request.
	if err := s.billingSvc.RecordUsage(ctx, billingdomain.RecordUsageInput{
		UserID:   identity.UserID,
		Plan:     check.Plan,
		Approach: "canny",
		Provider: generationProvider,
		Seed:     result.Seed,
	}); err != nil {
		logger.FromContext(ctx).Error("usage recording failed",
			zap.Int64("user_id", int64(identity.UserID)),
			zap.String("plan", check.Plan),
			zap.Error(err),
		)
	}

	s.metrics.RecordGeneration(generationProvider, "success")
	c.JSON(http.StatusOK, result)
}
