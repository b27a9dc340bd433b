package usage

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/data/repos/testutil"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
)

type fixture struct {
	db   *gorm.DB
	uc   Usecases
	now  time.Time
	user *domain.User
	task *domain.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	f := &fixture{db: db, now: now}
	f.uc = New(UsecasesDeps{
		Log:              log,
		Subscriptions:    repos.NewSubscriptionRepo(db, log),
		Responses:        repos.NewResponseRepo(db, log),
		DrillSubmissions: repos.NewDrillSubmissionRepo(db, log),
		Now:              func() time.Time { return f.now },
	})
	f.user = testutil.SeedUser(t, db, "quota@example.com")
	f.task = testutil.SeedTask(t, db, "Backend Engineer", "beginner", "Rate limiter")
	return f
}

func (f *fixture) submit(t *testing.T, at time.Time) {
	t.Helper()
	testutil.SeedResponse(t, f.db, f.user.ID, f.task.ID, at, 7)
}

func TestFreePlanThenProUpgrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.uc.CanSubmitTask(ctx, f.user.ID)
	if err != nil || !d.Allowed || d.Reason != "" {
		t.Fatalf("first free task should be allowed: %+v err=%v", d, err)
	}
	f.submit(t, f.now)

	d, err = f.uc.CanSubmitTask(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("CanSubmitTask: %v", err)
	}
	if d.Allowed || d.Reason == "" || d.Code != CodeTaskLimit {
		t.Fatalf("second free task should be rejected with a reason: %+v", d)
	}

	// Lifetime window: tomorrow is still rejected.
	f.now = f.now.Add(24 * time.Hour)
	if d, _ = f.uc.CanSubmitTask(ctx, f.user.ID); d.Allowed {
		t.Fatalf("free quota must not reset daily")
	}

	testutil.SeedSubscription(t, f.db, f.user.ID, domain.PlanPro, domain.StatusActive, "sub_1")
	for i := 0; i < 5; i++ {
		d, err = f.uc.CanSubmitTask(ctx, f.user.ID)
		if err != nil || !d.Allowed {
			t.Fatalf("pro submission %d should be allowed: %+v err=%v", i+1, d, err)
		}
		f.submit(t, f.now.Add(time.Duration(i)*time.Minute))
	}
	d, err = f.uc.CanSubmitTask(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("CanSubmitTask: %v", err)
	}
	if d.Allowed || d.Reason == "" {
		t.Fatalf("6th pro submission of the day should be rejected: %+v", d)
	}

	// Next UTC day the pro quota resets.
	f.now = domain.DayOf(f.now).Add(24*time.Hour + time.Second)
	if d, _ = f.uc.CanSubmitTask(ctx, f.user.ID); !d.Allowed {
		t.Fatalf("pro quota should reset at UTC midnight")
	}
}

func TestResolvePlanIgnoresInactiveSubscriptions(t *testing.T) {
	ctx := context.Background()
	for _, status := range []string{domain.StatusCancelled, domain.StatusOnHold, domain.StatusExpired} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			testutil.SeedSubscription(t, f.db, f.user.ID, domain.PlanPro, status, "")
			plan, err := f.uc.ResolvePlan(ctx, f.user.ID)
			if err != nil || plan != domain.PlanFree {
				t.Fatalf("status %s: got plan %q err=%v", status, plan, err)
			}
		})
	}

	f := newFixture(t)
	// A stale cached plan on the user record does not grant anything.
	if err := f.db.Model(&domain.User{}).Where("id = ?", f.user.ID).Update("subscription_plan", domain.PlanPro).Error; err != nil {
		t.Fatalf("update user: %v", err)
	}
	if plan, _ := f.uc.ResolvePlan(ctx, f.user.ID); plan != domain.PlanFree {
		t.Fatalf("user.subscription_plan must not be trusted, got %q", plan)
	}
	if plan, _ := f.uc.ResolvePlan(ctx, uuid.New()); plan != domain.PlanFree {
		t.Fatalf("unknown user should resolve to free, got %q", plan)
	}
}

func TestDrillQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drill := testutil.SeedDrill(t, f.db, domain.DrillTypes[0], "Assumptions", "Option A")

	testutil.SeedDrillSubmission(t, f.db, f.user.ID, drill, true, f.now.Add(-24*time.Hour))
	d, err := f.uc.CanSubmitDrill(ctx, f.user.ID)
	if err != nil || !d.Allowed {
		t.Fatalf("yesterday's drill must not count today: %+v err=%v", d, err)
	}

	testutil.SeedDrillSubmission(t, f.db, f.user.ID, drill, true, f.now)
	d, err = f.uc.CanSubmitDrill(ctx, f.user.ID)
	if err != nil || d.Allowed || d.Code != CodeDrillLimit || d.Reason == "" {
		t.Fatalf("second free drill today should be rejected: %+v err=%v", d, err)
	}

	err = f.uc.RequireDrill(ctx, f.user.ID)
	ae, ok := apierr.As(err)
	if !ok || ae.Status != http.StatusForbidden || ae.Code != CodeDrillLimit {
		t.Fatalf("RequireDrill: expected 403 %s, got %v", CodeDrillLimit, err)
	}

	testutil.SeedSubscription(t, f.db, f.user.ID, domain.PlanPro, domain.StatusActive, "")
	for i := 0; i < 3; i++ {
		testutil.SeedDrillSubmission(t, f.db, f.user.ID, drill, false, f.now)
	}
	if d, _ = f.uc.CanSubmitDrill(ctx, f.user.ID); !d.Allowed {
		t.Fatalf("pro drills are unlimited")
	}
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t, f.now.Add(-72*time.Hour))

	snap, err := f.uc.Snapshot(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := Snapshot{
		Plan: domain.PlanFree, TasksUsed: 1, TasksLimit: 1, CanSubmitTask: false,
		DrillsUsedToday: 0, DrillsLimit: 1, CanSubmitDrill: true,
	}
	if snap != want {
		t.Fatalf("free snapshot:\n got %+v\nwant %+v", snap, want)
	}

	testutil.SeedSubscription(t, f.db, f.user.ID, domain.PlanPro, domain.StatusActive, "")
	snap, err = f.uc.Snapshot(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	// For pro the same history reads as zero tasks used today.
	want = Snapshot{
		Plan: domain.PlanPro, TasksUsed: 0, TasksLimit: 5, CanSubmitTask: true,
		DrillsUsedToday: 0, DrillsLimit: Unlimited, CanSubmitDrill: true,
	}
	if snap != want {
		t.Fatalf("pro snapshot:\n got %+v\nwant %+v", snap, want)
	}
}

// Quota checks are read-then-decide. Two checks that both run before either
// submission is recorded both pass; serialising same-user submissions is the
// caller's job (see submission.Guard).
func TestCheckThenActRaceIsNotPreventedHere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.uc.CanSubmitTask(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("CanSubmitTask: %v", err)
	}
	second, err := f.uc.CanSubmitTask(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("CanSubmitTask: %v", err)
	}
	if !first.Allowed || !second.Allowed {
		t.Fatalf("expected both interleaved checks to pass, got %+v / %+v", first, second)
	}
}

func TestParsePlansRejectsBrokenTables(t *testing.T) {
	cases := map[string]string{
		"missing pro":    "plans:\n  free:\n    tasks: {limit: 1, window: lifetime, message: x}\n    drills: {limit: -1}\n",
		"bad window":     "plans:\n  free:\n    tasks: {limit: 1, window: week, message: x}\n    drills: {limit: -1}\n  pro:\n    tasks: {limit: -1}\n    drills: {limit: -1}\n",
		"missing reason": "plans:\n  free:\n    tasks: {limit: 1, window: day}\n    drills: {limit: -1}\n  pro:\n    tasks: {limit: -1}\n    drills: {limit: -1}\n",
		"not yaml":       "plans: [",
	}
	for name, raw := range cases {
		if _, err := ParsePlans([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	plans := DefaultPlans()
	if plans.Get("enterprise").Tasks.Limit != 1 {
		t.Fatalf("unknown plan names should fall back to free")
	}
	if !plans.Get(domain.PlanPro).Drills.Unlimited() {
		t.Fatalf("pro drills should be unlimited")
	}
}

func TestRequireTaskWrapsStoreErrors(t *testing.T) {
	f := newFixture(t)
	sqlDB, _ := f.db.DB()
	_ = sqlDB.Close()

	err := f.uc.RequireTask(context.Background(), f.user.ID)
	ae, ok := apierr.As(err)
	if !ok || ae.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 apierr, got %v", err)
	}
	if errors.Unwrap(ae) == nil {
		t.Fatalf("expected wrapped cause")
	}
}
