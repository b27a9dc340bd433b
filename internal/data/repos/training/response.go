package training

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type ResponseRepo interface {
	Create(dbc dbctx.Context, resp *types.Response) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Response, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Response, error)
	CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	CountByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error)
	// SubmissionTimes returns submitted_at for every response of the user.
	SubmissionTimes(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error)
	// SetFeedback writes feedback and unlock time only while feedback is still
	// null. It reports whether this call performed the write.
	SetFeedback(dbc dbctx.Context, id uuid.UUID, feedback string, unlockedAt time.Time) (bool, error)
	Count(dbc dbctx.Context) (int64, error)
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return &responseRepo{db: db, log: baseLog.With("repo", "ResponseRepo")}
}

func (r *responseRepo) Create(dbc dbctx.Context, resp *types.Response) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if resp.ID == uuid.Nil {
		resp.ID = uuid.New()
	}
	return transaction.WithContext(dbc.Ctx).Create(resp).Error
}

func (r *responseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Response, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var resp types.Response
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&resp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *responseRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Response, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Response
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Response{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

func (r *responseRepo) CountByUserSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Response{}).
		Where("user_id = ? AND submitted_at >= ?", userID, since.UTC()).
		Count(&n).Error
	return n, err
}

func (r *responseRepo) SubmissionTimes(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []time.Time
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Response{}).
		Where("user_id = ?", userID).
		Pluck("submitted_at", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseRepo) SetFeedback(dbc dbctx.Context, id uuid.UUID, feedback string, unlockedAt time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Response{}).
		Where("id = ? AND ai_feedback IS NULL", id).
		Updates(map[string]interface{}{
			"ai_feedback":    feedback,
			"ai_unlocked_at": unlockedAt.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *responseRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).Model(&types.Response{}).Count(&n).Error
	return n, err
}
