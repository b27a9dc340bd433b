package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type SubscriptionRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Subscription, error)
	GetBySubscriptionID(dbc dbctx.Context, subscriptionID string) (*types.Subscription, error)
	// Upsert writes s keyed by user_id, replacing the mutable billing fields.
	Upsert(dbc dbctx.Context, s *types.Subscription) error
	// UpdateBySubscriptionID reports false when no record carries that id.
	UpdateBySubscriptionID(dbc dbctx.Context, subscriptionID string, updates map[string]interface{}) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	CountActive(dbc dbctx.Context, plan string) (int64, error)
}

type subscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return &subscriptionRepo{db: db, log: baseLog.With("repo", "SubscriptionRepo")}
}

func (r *subscriptionRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Subscription, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.Subscription
	err := transaction.WithContext(dbc.Ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) GetBySubscriptionID(dbc dbctx.Context, subscriptionID string) (*types.Subscription, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if subscriptionID == "" {
		return nil, nil
	}
	var s types.Subscription
	err := transaction.WithContext(dbc.Ctx).Where("subscription_id = ?", subscriptionID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) Upsert(dbc dbctx.Context, s *types.Subscription) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan",
				"status",
				"subscription_id",
				"customer_id",
				"current_period_start",
				"current_period_end",
				"updated_at",
			}),
		}).
		Create(s).Error
}

func (r *subscriptionRepo) UpdateBySubscriptionID(dbc dbctx.Context, subscriptionID string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if subscriptionID == "" || len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *subscriptionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Subscription{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *subscriptionRepo) CountActive(dbc dbctx.Context, plan string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Subscription{}).
		Where("plan = ? AND status = ?", plan, types.StatusActive).
		Count(&n).Error
	return n, err
}
