package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/http/response"
	"github.com/yungbote/cortex-backend/internal/modules/drills"
)

type Drills interface {
	RandomDrill(ctx context.Context, userID uuid.UUID, drillType string) (*domain.Drill, error)
	Submit(ctx context.Context, userID uuid.UUID, rawDrillID, answer string) (*drills.Result, error)
	History(ctx context.Context, userID uuid.UUID) ([]drills.HistoryItem, error)
	Stats(ctx context.Context, userID uuid.UUID) (*drills.Stats, error)
}

type DrillHandler struct {
	drills Drills
}

func NewDrillHandler(d Drills) *DrillHandler {
	return &DrillHandler{drills: d}
}

// GET /api/drills/random?drill_type=
func (h *DrillHandler) Random(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	d, err := h.drills.RandomDrill(c.Request.Context(), userID, c.Query("drill_type"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, d)
}

type drillSubmitRequest struct {
	DrillID    string `json:"drill_id" binding:"required"`
	UserAnswer string `json:"user_answer" binding:"required"`
}

// POST /api/drills/submit
func (h *DrillHandler) Submit(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req drillSubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.drills.Submit(c.Request.Context(), userID, req.DrillID, req.UserAnswer)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/drills/history
func (h *DrillHandler) History(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	out, err := h.drills.History(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/drills/stats
func (h *DrillHandler) Stats(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	out, err := h.drills.Stats(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, out)
}
