package usage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/observability"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

const (
	CodeTaskLimit  = "task_limit_reached"
	CodeDrillLimit = "drill_limit_reached"
)

type UsecasesDeps struct {
	Log   *logger.Logger
	Plans PlanTable

	Subscriptions    repos.SubscriptionRepo
	Responses        repos.ResponseRepo
	DrillSubmissions repos.DrillSubmissionRepo

	Now func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Plans == nil {
		deps.Plans = DefaultPlans()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log != nil {
		deps.Log = deps.Log.With("module", "usage")
	}
	return Usecases{deps: deps}
}

// Decision is the outcome of a quota check. Reason is empty when allowed.
type Decision struct {
	Allowed bool
	Reason  string
	Code    string
}

type Snapshot struct {
	Plan            string `json:"plan"`
	TasksUsed       int64  `json:"tasks_used"`
	TasksLimit      int    `json:"tasks_limit"`
	CanSubmitTask   bool   `json:"can_submit_task"`
	DrillsUsedToday int64  `json:"drills_used_today"`
	DrillsLimit     int    `json:"drills_limit"`
	CanSubmitDrill  bool   `json:"can_submit_drill"`
}

// ResolvePlan returns "pro" only for an active pro subscription. The plan
// cached on the user record is never consulted.
func (u Usecases) ResolvePlan(ctx context.Context, userID uuid.UUID) (string, error) {
	sub, err := u.deps.Subscriptions.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return "", fmt.Errorf("load subscription: %w", err)
	}
	if sub.Entitles(domain.PlanPro) {
		return domain.PlanPro, nil
	}
	return domain.PlanFree, nil
}

func (u Usecases) CanSubmitTask(ctx context.Context, userID uuid.UUID) (Decision, error) {
	plan, err := u.ResolvePlan(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	q := u.deps.Plans.Get(plan).Tasks
	used, err := u.tasksUsed(ctx, userID, q)
	if err != nil {
		return Decision{}, err
	}
	return decide(q, used, CodeTaskLimit), nil
}

func (u Usecases) CanSubmitDrill(ctx context.Context, userID uuid.UUID) (Decision, error) {
	plan, err := u.ResolvePlan(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	q := u.deps.Plans.Get(plan).Drills
	if q.Unlimited() {
		return Decision{Allowed: true}, nil
	}
	used, err := u.drillsUsed(ctx, userID, q)
	if err != nil {
		return Decision{}, err
	}
	return decide(q, used, CodeDrillLimit), nil
}

// RequireTask is CanSubmitTask folded into an error for callers that only
// proceed on success.
func (u Usecases) RequireTask(ctx context.Context, userID uuid.UUID) error {
	d, err := u.CanSubmitTask(ctx, userID)
	if err != nil {
		return apierr.New(http.StatusInternalServerError, "usage_check_failed", err)
	}
	return u.reject(d, "task", userID)
}

func (u Usecases) RequireDrill(ctx context.Context, userID uuid.UUID) error {
	d, err := u.CanSubmitDrill(ctx, userID)
	if err != nil {
		return apierr.New(http.StatusInternalServerError, "usage_check_failed", err)
	}
	return u.reject(d, "drill", userID)
}

func (u Usecases) reject(d Decision, kind string, userID uuid.UUID) error {
	if d.Allowed {
		return nil
	}
	observability.PolicyRejections.WithLabelValues(kind).Inc()
	if u.deps.Log != nil {
		u.deps.Log.Info("usage limit reached", "kind", kind, "user_id", userID)
	}
	return apierr.New(http.StatusForbidden, d.Code, errors.New(d.Reason))
}

// Snapshot reports consumption against the caller's plan. TasksUsed is a
// lifetime count on lifetime-window plans and today's count otherwise.
func (u Usecases) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	plan, err := u.ResolvePlan(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	p := u.deps.Plans.Get(plan)

	tasksUsed, err := u.tasksUsed(ctx, userID, p.Tasks)
	if err != nil {
		return Snapshot{}, err
	}
	drillsToday, err := u.deps.DrillSubmissions.CountByUserSince(dbctx.Context{Ctx: ctx}, userID, u.startOfDay())
	if err != nil {
		return Snapshot{}, fmt.Errorf("count drill submissions: %w", err)
	}

	return Snapshot{
		Plan:            plan,
		TasksUsed:       tasksUsed,
		TasksLimit:      limitOf(p.Tasks),
		CanSubmitTask:   decide(p.Tasks, tasksUsed, CodeTaskLimit).Allowed,
		DrillsUsedToday: drillsToday,
		DrillsLimit:     limitOf(p.Drills),
		CanSubmitDrill:  decide(p.Drills, drillsToday, CodeDrillLimit).Allowed,
	}, nil
}

func (u Usecases) startOfDay() time.Time {
	return domain.DayOf(u.deps.Now())
}

func (u Usecases) tasksUsed(ctx context.Context, userID uuid.UUID, q Quota) (int64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var (
		n   int64
		err error
	)
	if q.Window == WindowLifetime {
		n, err = u.deps.Responses.CountByUser(dbc, userID)
	} else {
		n, err = u.deps.Responses.CountByUserSince(dbc, userID, u.startOfDay())
	}
	if err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

func (u Usecases) drillsUsed(ctx context.Context, userID uuid.UUID, q Quota) (int64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var (
		n   int64
		err error
	)
	if q.Window == WindowLifetime {
		// No plan ships a lifetime drill quota; counting from the zero time
		// keeps the option open in plans.yaml.
		n, err = u.deps.DrillSubmissions.CountByUserSince(dbc, userID, time.Time{})
	} else {
		n, err = u.deps.DrillSubmissions.CountByUserSince(dbc, userID, u.startOfDay())
	}
	if err != nil {
		return 0, fmt.Errorf("count drill submissions: %w", err)
	}
	return n, nil
}

func decide(q Quota, used int64, code string) Decision {
	if q.Unlimited() || used < int64(q.Limit) {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Reason: q.Message, Code: code}
}

func limitOf(q Quota) int {
	if q.Unlimited() {
		return Unlimited
	}
	return q.Limit
}
