package handler

import (
	"errors"
	"net/http"

	"pixcharge/internal/service"
	"pixcharge/internal/webhook"
	"pixcharge/pkg/pix"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// statusFor maps the error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pix.ErrInvalidAmount),
		errors.Is(err, pix.ErrInvalidTxid),
		errors.Is(err, pix.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, webhook.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, webhook.ErrWebhookRejected):
		return http.StatusUnauthorized
	case errors.Is(err, pix.ErrAuthentication),
		errors.Is(err, pix.ErrChargeCreation),
		errors.Is(err, pix.ErrChargeQuery),
		errors.Is(err, pix.ErrWebhookRegistration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Upstream and internal failures get a
// generic message; the detail only goes to the log.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		msg = "internal error"
	case status == http.StatusBadGateway && errors.Is(err, pix.ErrAuthentication):
		msg = "psp authentication failed"
	case status == http.StatusBadGateway:
		msg = "psp request failed"
	case status == http.StatusUnauthorized:
		msg = "webhook rejected"
	}
	l := zerolog.Ctx(c.Request.Context())
	if status >= 500 {
		l.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// respondBindError distinguishes malformed JSON (400) from field
// validation failures (422).
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
}
