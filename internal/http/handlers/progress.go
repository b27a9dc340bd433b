package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/http/response"
)

type ProgressReader interface {
	Stats(ctx context.Context, userID uuid.UUID) (*domain.Progress, error)
	Activity(ctx context.Context, userID uuid.UUID, days int) ([]domain.ActivityEntry, error)
}

type ProgressHandler struct {
	progress ProgressReader
}

func NewProgressHandler(p ProgressReader) *ProgressHandler {
	return &ProgressHandler{progress: p}
}

// GET /api/progress/stats
func (h *ProgressHandler) Stats(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	p, err := h.progress.Stats(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, p)
}

// GET /api/progress/activity?days=
func (h *ProgressHandler) Activity(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	days, err := queryInt(c, "days")
	if err != nil {
		response.Fail(c, err)
		return
	}
	out, err := h.progress.Activity(c.Request.Context(), userID, days)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"days": len(out), "activity": out})
}
