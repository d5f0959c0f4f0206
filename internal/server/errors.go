package server

import (
	"errors"
	"net/http"

	"github.com/cluo0901/roomgpt/internal/auth"
	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	checkoutdomain "github.com/cluo0901/roomgpt/internal/checkout/domain"
	"github.com/cluo0901/roomgpt/internal/generation"
	paymentdomain "github.com/cluo0901/roomgpt/internal/payment/domain"
	userdomain "github.com/cluo0901/roomgpt/internal/user/domain"
	"github.com/cluo0901/roomgpt/pkg/db"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInternal           = errors.New("internal_error")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware converts errors attached to the context into the
// JSON error envelope. Handlers that already wrote a response are left
// alone.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var upstream *generation.UpstreamError
	if errors.As(err, &upstream) {
		status := http.StatusBadGateway
		if upstream.Status == http.StatusGatewayTimeout {
			status = http.StatusGatewayTimeout
		}
		return status, errorPayload{
			Type:    "upstream_error",
			Message: upstream.Message,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}

	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}

	case errors.Is(err, billingdomain.ErrInvalidPlan):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid plan type",
		}

	case errors.Is(err, billingdomain.ErrInvalidCredits):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "provide a non-zero credit amount",
		}

	case errors.Is(err, checkoutdomain.ErrUnknownPlan):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "unknown plan",
		}

	case errors.Is(err, checkoutdomain.ErrPlanNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "plan is not configured",
		}

	case errors.Is(err, checkoutdomain.ErrProviderFailure):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "payment provider request failed",
		}

	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_signature",
			Message: "webhook signature verification failed",
		}

	case errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, paymentdomain.ErrUnknownPlan):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid webhook payload",
		}

	case errors.Is(err, generation.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "generation service is not configured",
		}

	case errors.Is(err, generation.ErrNoImage):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "generation service returned no image",
		}

	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}

	case db.IsForeignKeyErr(err):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "billing tables reference a user record that does not exist",
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= 500 {
		return "server_error", payload.Type
	}
	return "client_error", payload.Type
}
