package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/http/response"
	"github.com/yungbote/cortex-backend/internal/modules/catalog"
)

type TaskCatalog interface {
	ListTasks(ctx context.Context, f catalog.TaskFilter) ([]*domain.Task, error)
	GetTask(ctx context.Context, rawID string) (*domain.Task, error)
	RandomTask(ctx context.Context, f catalog.TaskFilter) (*domain.Task, error)
}

type TaskHandler struct {
	tasks TaskCatalog
}

func NewTaskHandler(tasks TaskCatalog) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func taskFilter(c *gin.Context) (catalog.TaskFilter, error) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return catalog.TaskFilter{}, err
	}
	return catalog.TaskFilter{
		Role:       c.Query("role"),
		Difficulty: c.Query("difficulty"),
		Limit:      limit,
	}, nil
}

// GET /api/tasks?role=&difficulty=&limit=
func (h *TaskHandler) ListTasks(c *gin.Context) {
	f, err := taskFilter(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	tasks, err := h.tasks.ListTasks(c.Request.Context(), f)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, tasks)
}

// GET /api/tasks/random?role=&difficulty=
func (h *TaskHandler) RandomTask(c *gin.Context) {
	f, err := taskFilter(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	task, err := h.tasks.RandomTask(c.Request.Context(), f)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, task)
}

// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, task)
}
