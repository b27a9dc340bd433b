package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/http/response"
	"github.com/yungbote/cortex-backend/internal/modules/billing"
	"github.com/yungbote/cortex-backend/internal/modules/usage"
)

type Billing interface {
	Me(ctx context.Context, userID uuid.UUID) (*billing.Membership, error)
	Usage(ctx context.Context, userID uuid.UUID) (usage.Snapshot, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*billing.CancelResult, error)
	HandleWebhook(ctx context.Context, h billing.WebhookHeaders, body []byte) (*billing.WebhookResult, error)
}

type SubscriptionHandler struct {
	billing Billing
}

func NewSubscriptionHandler(b Billing) *SubscriptionHandler {
	return &SubscriptionHandler{billing: b}
}

// GET /api/subscriptions/me
func (h *SubscriptionHandler) Me(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	m, err := h.billing.Me(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, m)
}

// GET /api/subscriptions/usage
func (h *SubscriptionHandler) Usage(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	snap, err := h.billing.Usage(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, snap)
}

// POST /api/subscriptions/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	res, err := h.billing.Cancel(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, res)
}
