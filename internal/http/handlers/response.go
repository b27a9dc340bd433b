package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/http/response"
	"github.com/yungbote/cortex-backend/internal/modules/submission"
)

type Submissions interface {
	Submit(ctx context.Context, userID uuid.UUID, in submission.SubmitInput) (*domain.Response, error)
	RequestFeedback(ctx context.Context, userID uuid.UUID, rawID string) (*submission.FeedbackResult, error)
	Get(ctx context.Context, userID uuid.UUID, rawID string) (*domain.Response, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Response, error)
}

type ResponseHandler struct {
	submissions Submissions
}

func NewResponseHandler(submissions Submissions) *ResponseHandler {
	return &ResponseHandler{submissions: submissions}
}

type submitRequest struct {
	TaskID            string `json:"task_id" binding:"required"`
	Assumptions       string `json:"assumptions" binding:"required"`
	Architecture      string `json:"architecture" binding:"required"`
	ArchitectureData  string `json:"architecture_data"`
	ArchitectureImage string `json:"architecture_image"`
	TradeOffs         string `json:"trade_offs" binding:"required"`
	FailureScenarios  string `json:"failure_scenarios" binding:"required"`
}

// POST /api/responses
func (h *ResponseHandler) Submit(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.submissions.Submit(c.Request.Context(), userID, submission.SubmitInput(req))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondCreated(c, resp)
}

// GET /api/responses?limit=
func (h *ResponseHandler) History(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Fail(c, err)
		return
	}
	out, err := h.submissions.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/responses/:id
func (h *ResponseHandler) Get(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	resp, err := h.submissions.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, resp)
}

// POST /api/responses/:id/feedback
func (h *ResponseHandler) RequestFeedback(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	res, err := h.submissions.RequestFeedback(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, res)
}
