package server

import (
	"errors"
	"io"
	"net/http"

	paymentdomain "github.com/cluo0901/roomgpt/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

// HandlePaymentWebhook ingests provider deliveries. Replays and event
// types the billing model ignores are acknowledged so the provider stops
// retrying them.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) ||
			errors.Is(err, paymentdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
