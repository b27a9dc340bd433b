package billing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/modules/usage"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/pkg/pointers"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

const DefaultWebhookTolerance = 5 * time.Minute

type UsageReporter interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (usage.Snapshot, error)
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Users         repos.UserRepo
	Subscriptions repos.SubscriptionRepo
	Usage         UsageReporter

	// WebhookSecret is the Standard Webhooks signing secret. Empty disables
	// verification.
	WebhookSecret    string
	WebhookTolerance time.Duration

	Now func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.WebhookTolerance <= 0 {
		deps.WebhookTolerance = DefaultWebhookTolerance
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "billing")
	return Usecases{deps: deps}
}

type Membership struct {
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// Me reports the stored subscription record, or free/active when there is none.
func (u Usecases) Me(ctx context.Context, userID uuid.UUID) (*Membership, error) {
	s, err := u.deps.Subscriptions.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "subscription_lookup_failed", err)
	}
	if s == nil {
		return &Membership{Plan: domain.PlanFree, Status: domain.StatusActive}, nil
	}
	return &Membership{Plan: s.Plan, Status: s.Status, CurrentPeriodEnd: s.CurrentPeriodEnd}, nil
}

func (u Usecases) Usage(ctx context.Context, userID uuid.UUID) (usage.Snapshot, error) {
	snap, err := u.deps.Usage.Snapshot(ctx, userID)
	if err != nil {
		return usage.Snapshot{}, apierr.New(http.StatusInternalServerError, "usage_lookup_failed", err)
	}
	return snap, nil
}

type CancelResult struct {
	Message     string    `json:"message"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Cancel marks the caller's active pro subscription cancelled. Entitlement
// ends with the status change.
func (u Usecases) Cancel(ctx context.Context, userID uuid.UUID) (*CancelResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	s, err := u.deps.Subscriptions.GetByUserID(dbc, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "subscription_lookup_failed", err)
	}
	if !s.Entitles(domain.PlanPro) {
		return nil, apierr.New(http.StatusBadRequest, "no_active_subscription", errors.New("no active subscription to cancel"))
	}
	now := u.deps.Now().UTC()
	if err := u.deps.Subscriptions.UpdateFields(dbc, s.ID, map[string]interface{}{
		"status":     domain.StatusCancelled,
		"updated_at": now,
	}); err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "subscription_update_failed", err)
	}
	u.deps.Log.Info("subscription cancelled by user", "user_id", userID, "subscription_id", pointers.Deref(s.SubscriptionID))
	return &CancelResult{Message: "Subscription cancelled.", CancelledAt: now}, nil
}
