package server

import (
	"fmt"
	"net/http"

	"github.com/cluo0901/roomgpt/internal/auth"
	obscontext "github.com/cluo0901/roomgpt/internal/observability/context"
	"github.com/cluo0901/roomgpt/internal/observability/logger"
	userdomain "github.com/cluo0901/roomgpt/internal/user/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contextIdentityKey = "auth_identity"

// AuthRequired verifies the bearer token and stores the caller identity in
// the request context. The users row is upserted here so the foreign keys
// from billing tables hold for every authenticated caller.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.verifier.FromAuthorizationHeader(c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithUserID(c.Request.Context(), identity.UserID.String())
		if err := s.userRepo.Ensure(ctx, s.db, &userdomain.User{
			ID:    identity.UserID,
			Email: identity.Email,
		}); err != nil {
			// Reads still work without the row; writes will surface their
			// own constraint errors.
			logger.FromContext(ctx).Warn("user row upsert failed",
				zap.Int64("user_id", int64(identity.UserID)),
				zap.Error(err),
			)
		}

		c.Set(contextIdentityKey, identity)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminRequired gates routes on the admin email allow-list. Must run after
// AuthRequired.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFromContext(c)
		if identity == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !s.cfg.IsAdminEmail(identity.Email) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// RateLimitGenerate applies the per-IP token bucket to generation traffic.
func (s *Server) RateLimitGenerate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.generateLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.generateLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			// A broken limiter should not take generation down with it.
			logger.FromContext(ctx).Warn("generate rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))

		if !result.Allowed {
			s.metrics.RecordRateLimitDenied("generate")
			if result.RetryAfter > 0 {
				c.Header("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "Too many uploads in 1 day. Please try again in a 24 hours.",
			}})
			return
		}

		c.Next()
	}
}

func identityFromContext(c *gin.Context) *auth.Identity {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return nil
	}
	identity, ok := value.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
