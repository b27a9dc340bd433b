package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/domain/training"
	"github.com/yungbote/cortex-backend/internal/modules/evaluation"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type UsecasesDeps struct {
	Log *logger.Logger

	Tasks            repos.TaskRepo
	Drills           repos.DrillRepo
	Users            repos.UserRepo
	Responses        repos.ResponseRepo
	DrillSubmissions repos.DrillSubmissionRepo
	Subscriptions    repos.SubscriptionRepo

	// Gen backs AI generation; nil means every generation uses the template.
	Gen evaluation.Generator

	// DailyConcurrency bounds parallel generator calls in GenerateDailyTasks.
	DailyConcurrency int

	Now func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DailyConcurrency <= 0 {
		deps.DailyConcurrency = 4
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "catalog")
	return Usecases{deps: deps}
}

type TaskFilter = repos.TaskFilter

func (u Usecases) ListTasks(ctx context.Context, f TaskFilter) ([]*domain.Task, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	out, err := u.deps.Tasks.List(dbctx.Context{Ctx: ctx}, f)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "task_list_failed", err)
	}
	return out, nil
}

func (u Usecases) GetTask(ctx context.Context, rawID string) (*domain.Task, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_id", errors.New("invalid task id"))
	}
	t, err := u.deps.Tasks.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "task_lookup_failed", err)
	}
	if t == nil {
		return nil, apierr.New(http.StatusNotFound, "task_not_found", errors.New("task not found"))
	}
	return t, nil
}

func (u Usecases) RandomTask(ctx context.Context, f TaskFilter) (*domain.Task, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	t, err := u.deps.Tasks.Random(dbctx.Context{Ctx: ctx}, f)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "task_lookup_failed", err)
	}
	if t == nil {
		return nil, apierr.New(http.StatusNotFound, "task_not_found", errors.New("no tasks match the filter"))
	}
	return t, nil
}

type TaskInput struct {
	Title                string   `json:"title" binding:"required"`
	Description          string   `json:"description"`
	Role                 string   `json:"role" binding:"required"`
	Difficulty           string   `json:"difficulty" binding:"required"`
	EstimatedTimeMinutes int      `json:"estimated_time_minutes"`
	Scenario             string   `json:"scenario" binding:"required"`
	Prompts              []string `json:"prompts"`
}

func (u Usecases) CreateTask(ctx context.Context, in TaskInput) (*domain.Task, error) {
	t, err := taskFromInput(in, training.TaskSourceManual)
	if err != nil {
		return nil, err
	}
	return u.insertTask(ctx, t)
}

func (u Usecases) insertTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	created, err := u.deps.Tasks.Create(dbctx.Context{Ctx: ctx}, []*domain.Task{t})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "task_create_failed", err)
	}
	return created[0], nil
}

type DrillInput struct {
	Title         string   `json:"title" binding:"required"`
	DrillType     string   `json:"drill_type" binding:"required"`
	Question      string   `json:"question" binding:"required"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer" binding:"required"`
	Explanation   string   `json:"explanation"`
}

func (u Usecases) CreateDrill(ctx context.Context, in DrillInput) (*domain.Drill, error) {
	d, err := drillFromInput(in)
	if err != nil {
		return nil, err
	}
	return u.insertDrill(ctx, d)
}

func (u Usecases) insertDrill(ctx context.Context, d *domain.Drill) (*domain.Drill, error) {
	created, err := u.deps.Drills.Create(dbctx.Context{Ctx: ctx}, []*domain.Drill{d})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "drill_create_failed", err)
	}
	return created[0], nil
}

type AdminStats struct {
	Users                int64 `json:"users"`
	Tasks                int64 `json:"tasks"`
	Drills               int64 `json:"drills"`
	Responses            int64 `json:"responses"`
	DrillSubmissions     int64 `json:"drill_submissions"`
	ActiveProSubscribers int64 `json:"active_pro_subscribers"`
}

func (u Usecases) Stats(ctx context.Context) (*AdminStats, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var (
		out AdminStats
		err error
	)
	counts := []struct {
		dst *int64
		fn  func() (int64, error)
	}{
		{&out.Users, func() (int64, error) { return u.deps.Users.Count(dbc) }},
		{&out.Tasks, func() (int64, error) { return u.deps.Tasks.Count(dbc) }},
		{&out.Drills, func() (int64, error) { return u.deps.Drills.Count(dbc) }},
		{&out.Responses, func() (int64, error) { return u.deps.Responses.Count(dbc) }},
		{&out.DrillSubmissions, func() (int64, error) { return u.deps.DrillSubmissions.Count(dbc) }},
		{&out.ActiveProSubscribers, func() (int64, error) { return u.deps.Subscriptions.CountActive(dbc, domain.PlanPro) }},
	}
	for _, c := range counts {
		if *c.dst, err = c.fn(); err != nil {
			return nil, apierr.New(http.StatusInternalServerError, "stats_failed", err)
		}
	}
	return &out, nil
}

func validateFilter(f TaskFilter) error {
	if f.Role != "" && !training.ValidRole(f.Role) {
		return apierr.New(http.StatusBadRequest, "invalid_role", errors.New("unknown role"))
	}
	if f.Difficulty != "" && !training.ValidDifficulty(f.Difficulty) {
		return apierr.New(http.StatusBadRequest, "invalid_difficulty", errors.New("unknown difficulty"))
	}
	return nil
}

func taskFromInput(in TaskInput, source string) (*domain.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Scenario = strings.TrimSpace(in.Scenario)
	if in.Title == "" || in.Scenario == "" {
		return nil, apierr.New(http.StatusBadRequest, "invalid_task", errors.New("title and scenario are required"))
	}
	if err := validateFilter(TaskFilter{Role: in.Role, Difficulty: in.Difficulty}); err != nil {
		return nil, err
	}
	if in.Role == "" || in.Difficulty == "" {
		return nil, apierr.New(http.StatusBadRequest, "invalid_task", errors.New("role and difficulty are required"))
	}
	if in.EstimatedTimeMinutes <= 0 {
		in.EstimatedTimeMinutes = 45
	}
	prompts := make([]string, 0, len(in.Prompts))
	for _, p := range in.Prompts {
		if p = strings.TrimSpace(p); p != "" {
			prompts = append(prompts, p)
		}
	}
	return &domain.Task{
		ID:                   uuid.New(),
		Title:                in.Title,
		Description:          strings.TrimSpace(in.Description),
		Role:                 in.Role,
		Difficulty:           in.Difficulty,
		EstimatedTimeMinutes: in.EstimatedTimeMinutes,
		Scenario:             in.Scenario,
		Prompts:              prompts,
		Source:               source,
	}, nil
}

func drillFromInput(in DrillInput) (*domain.Drill, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Question = strings.TrimSpace(in.Question)
	in.CorrectAnswer = strings.TrimSpace(in.CorrectAnswer)
	if !training.ValidDrillType(in.DrillType) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_drill_type", errors.New("unknown drill type"))
	}
	if in.Title == "" || in.Question == "" || in.CorrectAnswer == "" {
		return nil, apierr.New(http.StatusBadRequest, "invalid_drill", errors.New("title, question and correct_answer are required"))
	}
	return &domain.Drill{
		ID:            uuid.New(),
		Title:         in.Title,
		DrillType:     in.DrillType,
		Question:      in.Question,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Explanation:   strings.TrimSpace(in.Explanation),
	}, nil
}
