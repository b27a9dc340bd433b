package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

// DrillTypeTally is one row of the per-type aggregate.
type DrillTypeTally struct {
	DrillType string
	Attempted int64
	Correct   int64
}

type DrillSubmissionRepo interface {
	Create(dbc dbctx.Context, sub *types.DrillSubmission) error
	CountByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.DrillSubmission, error)
	TallyByType(dbc dbctx.Context, userID uuid.UUID) ([]DrillTypeTally, error)
	Count(dbc dbctx.Context) (int64, error)
}

type drillSubmissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDrillSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) DrillSubmissionRepo {
	return &drillSubmissionRepo{db: db, log: baseLog.With("repo", "DrillSubmissionRepo")}
}

func (r *drillSubmissionRepo) Create(dbc dbctx.Context, sub *types.DrillSubmission) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return transaction.WithContext(dbc.Ctx).Create(sub).Error
}

func (r *drillSubmissionRepo) CountByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.DrillSubmission{}).
		Where("user_id = ? AND submitted_at >= ?", userID, since.UTC()).
		Count(&n).Error
	return n, err
}

func (r *drillSubmissionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.DrillSubmission, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.DrillSubmission
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *drillSubmissionRepo) TallyByType(dbc dbctx.Context, userID uuid.UUID) ([]DrillTypeTally, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []DrillTypeTally
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.DrillSubmission{}).
		Select("drill_type, COUNT(*) AS attempted, SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct").
		Where("user_id = ?", userID).
		Group("drill_type").
		Order("drill_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *drillSubmissionRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).Model(&types.DrillSubmission{}).Count(&n).Error
	return n, err
}
