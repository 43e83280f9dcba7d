package handler

import (
	"errors"
	"io"
	"net/http"

	"pixcharge/internal/service"
	"pixcharge/internal/webhook"
	"pixcharge/pkg/pix"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxWebhookBody = 1 << 20

type PixWebhookHandler struct {
	charges  *service.ChargeService
	verifier *webhook.Verifier
}

func NewPixWebhookHandler(charges *service.ChargeService, verifier *webhook.Verifier) *PixWebhookHandler {
	return &PixWebhookHandler{charges: charges, verifier: verifier}
}

// Handle authenticates the notification before parsing it. The flat
// {"txid","status"} form answers like any other request; in the batched
// {"pix":[...]} form unknown txids are skipped so one stray entry does not
// make the PSP redeliver the whole batch. Malformed txids in a batch are
// skipped the same way.
func (h *PixWebhookHandler) Handle(c *gin.Context) {
	log := zerolog.Ctx(c.Request.Context()).With().Str("component", "webhook").Logger()
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.verifier.Verify(c.Request, body); err != nil {
		log.Warn().Str("ip", c.ClientIP()).Msg("webhook signature rejected")
		respondError(c, err)
		return
	}
	notes, batched, err := webhook.Parse(body)
	if err != nil {
		respondError(c, err)
		return
	}

	applied := 0
	for _, n := range notes {
		p, err := h.charges.ApplyWebhook(c.Request.Context(), n.Txid, n.Status)
		if err != nil {
			if batched && (errors.Is(err, service.ErrPaymentNotFound) || errors.Is(err, pix.ErrInvalidTxid)) {
				log.Warn().Err(err).Str("txid", n.Txid).Msg("webhook entry skipped")
				continue
			}
			respondError(c, err)
			return
		}
		applied++
		log.Info().Str("txid", p.Txid).Str("status", string(p.Status)).Msg("webhook applied")
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "applied": applied})
}
