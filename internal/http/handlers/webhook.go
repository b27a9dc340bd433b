package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cortex-backend/internal/http/response"
	"github.com/yungbote/cortex-backend/internal/modules/billing"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	billing Billing
}

func NewWebhookHandler(b Billing) *WebhookHandler {
	return &WebhookHandler{billing: b}
}

// POST /api/webhooks/billing
func (h *WebhookHandler) Billing(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if len(body) > maxWebhookBody {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", errors.New("webhook body too large"))
		return
	}
	res, err := h.billing.HandleWebhook(c.Request.Context(), billing.WebhookHeaders{
		ID:        c.GetHeader("webhook-id"),
		Timestamp: c.GetHeader("webhook-timestamp"),
		Signature: c.GetHeader("webhook-signature"),
	}, body)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, res)
}
