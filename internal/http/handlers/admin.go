package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/http/response"
	"github.com/yungbote/cortex-backend/internal/modules/catalog"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type Admin interface {
	CreateTask(ctx context.Context, in catalog.TaskInput) (*domain.Task, error)
	GenerateTask(ctx context.Context, role, difficulty string) (*domain.Task, error)
	GenerateDailyTasks(ctx context.Context) (*catalog.DailyReport, error)
	CreateDrill(ctx context.Context, in catalog.DrillInput) (*domain.Drill, error)
	GenerateDrill(ctx context.Context, drillType string) (*domain.Drill, error)
	Stats(ctx context.Context) (*catalog.AdminStats, error)
}

type AdminHandler struct {
	log   *logger.Logger
	admin Admin
}

func NewAdminHandler(log *logger.Logger, admin Admin) *AdminHandler {
	return &AdminHandler{log: log.With("handler", "AdminHandler"), admin: admin}
}

// generateParams come from the query string or, failing that, a JSON body.
type generateParams struct {
	Role       string `form:"role" json:"role"`
	Difficulty string `form:"difficulty" json:"difficulty"`
	DrillType  string `form:"drill_type" json:"drill_type"`
}

func bindGenerate(c *gin.Context) (generateParams, bool) {
	var p generateParams
	_ = c.ShouldBindQuery(&p)
	if p == (generateParams{}) && c.Request.ContentLength > 0 {
		if !bindJSON(c, &p) {
			return p, false
		}
	}
	p.Role = strings.TrimSpace(p.Role)
	p.Difficulty = strings.TrimSpace(p.Difficulty)
	p.DrillType = strings.TrimSpace(p.DrillType)
	return p, true
}

// POST /api/admin/tasks
func (h *AdminHandler) CreateTask(c *gin.Context) {
	var in catalog.TaskInput
	if !bindJSON(c, &in) {
		return
	}
	task, err := h.admin.CreateTask(c.Request.Context(), in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondCreated(c, task)
}

// POST /api/admin/tasks/generate?role=&difficulty=
func (h *AdminHandler) GenerateTask(c *gin.Context) {
	p, ok := bindGenerate(c)
	if !ok {
		return
	}
	task, err := h.admin.GenerateTask(c.Request.Context(), p.Role, p.Difficulty)
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.log.Info("task generated", "task_id", task.ID.String(), "role", task.Role, "difficulty", task.Difficulty)
	response.RespondCreated(c, task)
}

// POST /api/admin/tasks/generate-daily
func (h *AdminHandler) GenerateDailyTasks(c *gin.Context) {
	report, err := h.admin.GenerateDailyTasks(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, report)
}

// POST /api/admin/drills
func (h *AdminHandler) CreateDrill(c *gin.Context) {
	var in catalog.DrillInput
	if !bindJSON(c, &in) {
		return
	}
	d, err := h.admin.CreateDrill(c.Request.Context(), in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondCreated(c, d)
}

// POST /api/admin/drills/generate?drill_type=
func (h *AdminHandler) GenerateDrill(c *gin.Context) {
	p, ok := bindGenerate(c)
	if !ok {
		return
	}
	d, err := h.admin.GenerateDrill(c.Request.Context(), p.DrillType)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondCreated(c, d)
}

// GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	s, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, s)
}
