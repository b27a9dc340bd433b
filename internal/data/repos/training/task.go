package training

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type TaskFilter struct {
	Role       string
	Difficulty string
	Limit      int
}

type TaskRepo interface {
	Create(dbc dbctx.Context, tasks []*types.Task) ([]*types.Task, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error)
	List(dbc dbctx.Context, filter TaskFilter) ([]*types.Task, error)
	Random(dbc dbctx.Context, filter TaskFilter) (*types.Task, error)
	TitleExists(dbc dbctx.Context, role, difficulty, title string) (bool, error)
	Count(dbc dbctx.Context) (int64, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(dbc dbctx.Context, tasks []*types.Task) ([]*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tasks) == 0 {
		return []*types.Task{}, nil
	}
	for _, t := range tasks {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var t types.Task
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepo) filtered(dbc dbctx.Context, filter TaskFilter) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Task{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Difficulty != "" {
		q = q.Where("difficulty = ?", filter.Difficulty)
	}
	return q
}

func (r *taskRepo) List(dbc dbctx.Context, filter TaskFilter) ([]*types.Task, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Task
	if err := r.filtered(dbc, filter).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepo) Random(dbc dbctx.Context, filter TaskFilter) (*types.Task, error) {
	var out []*types.Task
	q := r.filtered(dbc, filter)
	if err := q.Order(randomOrder(q)).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *taskRepo) TitleExists(dbc dbctx.Context, role, difficulty, title string) (bool, error) {
	var n int64
	err := r.filtered(dbc, TaskFilter{Role: role, Difficulty: difficulty}).
		Where("LOWER(title) = LOWER(?)", title).
		Count(&n).Error
	return n > 0, err
}

func (r *taskRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := r.filtered(dbc, TaskFilter{}).Count(&n).Error
	return n, err
}
