package training

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type ProgressRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Progress, error)
	// GetByUserIDForUpdate locks the row until dbc.Tx ends on dialects with row
	// locks; elsewhere it behaves like GetByUserID.
	GetByUserIDForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.Progress, error)
	Create(dbc dbctx.Context, p *types.Progress) error
	Save(dbc dbctx.Context, p *types.Progress) error
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (r *progressRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Progress, error) {
	return r.get(dbc, userID, false)
}

func (r *progressRepo) GetByUserIDForUpdate(dbc dbctx.Context, userID uuid.UUID) (*types.Progress, error) {
	return r.get(dbc, userID, true)
}

func (r *progressRepo) get(dbc dbctx.Context, userID uuid.UUID, lock bool) (*types.Progress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx)
	if lock {
		if locks := lockingClause(q); len(locks) > 0 {
			q = q.Clauses(locks...)
		}
	}
	var p types.Progress
	err := q.Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *progressRepo) Create(dbc dbctx.Context, p *types.Progress) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return transaction.WithContext(dbc.Ctx).Create(p).Error
}

func (r *progressRepo) Save(dbc dbctx.Context, p *types.Progress) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Progress{}).
		Where("id = ?", p.ID).
		Select(
			"total_tasks_completed",
			"current_streak",
			"longest_streak",
			"last_activity_date",
			"total_score",
			"average_score",
			"activity_history",
			"updated_at",
		).
		Updates(p).Error
}
