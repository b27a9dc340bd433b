package training

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type DrillRepo interface {
	Create(dbc dbctx.Context, drills []*types.Drill) ([]*types.Drill, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Drill, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Drill, error)
	// RandomUnanswered samples one drill the user has no submission for.
	RandomUnanswered(dbc dbctx.Context, userID uuid.UUID, drillType string) (*types.Drill, error)
	TitleExists(dbc dbctx.Context, drillType, title string) (bool, error)
	Count(dbc dbctx.Context) (int64, error)
}

type drillRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDrillRepo(db *gorm.DB, baseLog *logger.Logger) DrillRepo {
	return &drillRepo{db: db, log: baseLog.With("repo", "DrillRepo")}
}

func (r *drillRepo) Create(dbc dbctx.Context, drills []*types.Drill) ([]*types.Drill, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(drills) == 0 {
		return []*types.Drill{}, nil
	}
	for _, d := range drills {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&drills).Error; err != nil {
		return nil, err
	}
	return drills, nil
}

func (r *drillRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Drill, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var d types.Drill
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *drillRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Drill, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Drill
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *drillRepo) RandomUnanswered(dbc dbctx.Context, userID uuid.UUID, drillType string) (*types.Drill, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx)
	answered := q.Session(&gorm.Session{NewDB: true}).
		Model(&types.DrillSubmission{}).
		Select("drill_id").
		Where("user_id = ?", userID)

	q = q.Model(&types.Drill{}).Where("id NOT IN (?)", answered)
	if drillType != "" {
		q = q.Where("drill_type = ?", drillType)
	}
	var out []*types.Drill
	if err := q.Order(randomOrder(q)).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *drillRepo) TitleExists(dbc dbctx.Context, drillType, title string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Drill{}).
		Where("drill_type = ? AND LOWER(title) = LOWER(?)", drillType, title).
		Count(&n).Error
	return n > 0, err
}

func (r *drillRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).Model(&types.Drill{}).Count(&n).Error
	return n, err
}
