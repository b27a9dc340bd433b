package billing

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/data/repos/testutil"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/modules/usage"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/pkg/pointers"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("cortex-webhook-signing-key"))

type fixture struct {
	db   *gorm.DB
	uc   Usecases
	subs repos.SubscriptionRepo
	now  time.Time
	user *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := &fixture{db: db, now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.subs = repos.NewSubscriptionRepo(db, log)
	f.uc = New(UsecasesDeps{
		DB:            db,
		Log:           log,
		Users:         repos.NewUserRepo(db, log),
		Subscriptions: f.subs,
		Usage: usage.New(usage.UsecasesDeps{
			Log:              log,
			Subscriptions:    f.subs,
			Responses:        repos.NewResponseRepo(db, log),
			DrillSubmissions: repos.NewDrillSubmissionRepo(db, log),
			Now:              clock,
		}),
		WebhookSecret: testSecret,
		Now:           clock,
	})
	f.user = testutil.SeedUser(t, db, "payer@example.com")
	return f
}

func (f *fixture) deliver(t *testing.T, body string) (*WebhookResult, error) {
	t.Helper()
	ts := strconv.FormatInt(f.now.Unix(), 10)
	h := WebhookHeaders{
		ID:        "msg_" + ts,
		Timestamp: ts,
		Signature: "v1," + SignWebhook(testSecret, "msg_"+ts, ts, []byte(body)),
	}
	return f.uc.HandleWebhook(context.Background(), h, []byte(body))
}

func (f *fixture) subscription(t *testing.T) *domain.Subscription {
	t.Helper()
	s, err := f.subs.GetByUserID(dbctx.Context{Ctx: context.Background()}, f.user.ID)
	if err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	return s
}

func (f *fixture) userPlan(t *testing.T) string {
	t.Helper()
	var u domain.User
	if err := f.db.First(&u, "id = ?", f.user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return u.SubscriptionPlan
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	ae, ok := apierr.As(err)
	if !ok || ae.Status != status || ae.Code != code {
		t.Fatalf("err = %v, want %d/%s", err, status, code)
	}
}

func requireResult(t *testing.T, got *WebhookResult, err error, status string) {
	t.Helper()
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if got.Status != status {
		t.Fatalf("result = %+v, want %s", got, status)
	}
}

func activeEvent(userID, email string) string {
	return fmt.Sprintf(`{"type":"subscription.active","data":{
		"subscription_id":"sub_123",
		"customer":{"customer_id":"cus_9","email":%q},
		"metadata":{"user_id":%q},
		"current_period_start":"2026-05-01T00:00:00Z",
		"current_period_end":"2026-06-01T00:00:00Z"}}`, email, userID)
}

func TestVerifyWebhook(t *testing.T) {
	body := []byte(`{"type":"ping"}`)
	now := time.Unix(1_780_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	good := SignWebhook(testSecret, "msg_1", ts, body)

	cases := []struct {
		name    string
		h       WebhookHeaders
		at      time.Time
		wantErr bool
	}{
		{"single", WebhookHeaders{"msg_1", ts, "v1," + good}, now, false},
		{"second candidate", WebhookHeaders{"msg_1", ts, "v1,bm9wZQ== v1," + good}, now, false},
		{"bare signature", WebhookHeaders{"msg_1", ts, good}, now, false},
		{"other version", WebhookHeaders{"msg_1", ts, "v2," + good}, now, true},
		{"wrong id", WebhookHeaders{"msg_2", ts, "v1," + good}, now, true},
		{"missing header", WebhookHeaders{"msg_1", ts, ""}, now, true},
		{"bad timestamp", WebhookHeaders{"msg_1", "yesterday", "v1," + good}, now, true},
		{"stale", WebhookHeaders{"msg_1", ts, "v1," + good}, now.Add(6 * time.Minute), true},
		{"future", WebhookHeaders{"msg_1", ts, "v1," + good}, now.Add(-6 * time.Minute), true},
		{"within tolerance", WebhookHeaders{"msg_1", ts, "v1," + good}, now.Add(4 * time.Minute), false},
	}
	for _, tc := range cases {
		err := VerifyWebhook(testSecret, tc.h, body, tc.at, DefaultWebhookTolerance)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}

	if err := VerifyWebhook(testSecret, WebhookHeaders{"msg_1", ts, "v1," + good}, []byte(`{"type":"pong"}`), now, DefaultWebhookTolerance); err == nil {
		t.Fatalf("tampered body verified")
	}
	// Secrets that are not base64 are used as raw bytes.
	raw := "not base64!"
	sig := SignWebhook(raw, "msg_1", ts, body)
	if err := VerifyWebhook(raw, WebhookHeaders{"msg_1", ts, "v1," + sig}, body, now, DefaultWebhookTolerance); err != nil {
		t.Fatalf("raw secret: %v", err)
	}
}

func TestWebhookLifecycle(t *testing.T) {
	f := newFixture(t)

	res, err := f.deliver(t, activeEvent(f.user.ID.String(), ""))
	requireResult(t, res, err, ResultProcessed)
	s := f.subscription(t)
	if s == nil || s.Plan != domain.PlanPro || s.Status != domain.StatusActive {
		t.Fatalf("after active: %+v", s)
	}
	if pointers.Deref(s.CustomerID) != "cus_9" || s.CurrentPeriodEnd == nil || !s.CurrentPeriodEnd.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ids/period not stored: %+v", s)
	}
	if got := f.userPlan(t); got != domain.PlanPro {
		t.Fatalf("user plan = %q", got)
	}

	// Replays leave a single record.
	res, err = f.deliver(t, activeEvent(f.user.ID.String(), ""))
	requireResult(t, res, err, ResultProcessed)
	var n int64
	f.db.Model(&domain.Subscription{}).Count(&n)
	if n != 1 {
		t.Fatalf("subscriptions = %d", n)
	}

	res, err = f.deliver(t, `{"type":"subscription.on_hold","data":{"subscription_id":"sub_123"}}`)
	requireResult(t, res, err, ResultProcessed)
	if s := f.subscription(t); s.Status != domain.StatusOnHold {
		t.Fatalf("after on_hold: %+v", s)
	}

	res, err = f.deliver(t, `{"type":"subscription.renewed","data":{"subscription_id":"sub_123","current_period_end":"2026-07-01T00:00:00Z"}}`)
	requireResult(t, res, err, ResultProcessed)
	s = f.subscription(t)
	if s.Status != domain.StatusActive || !s.CurrentPeriodEnd.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("after renewed: %+v", s)
	}

	res, err = f.deliver(t, `{"event_type":"subscription.cancelled","subscription_id":"sub_123"}`)
	requireResult(t, res, err, ResultProcessed)
	if s := f.subscription(t); s.Status != domain.StatusCancelled {
		t.Fatalf("after cancelled: %+v", s)
	}

	res, err = f.deliver(t, `{"type":"subscription.expired","data":{"subscription_id":"sub_123"}}`)
	requireResult(t, res, err, ResultProcessed)
	s = f.subscription(t)
	if s.Status != domain.StatusExpired || s.Plan != domain.PlanFree {
		t.Fatalf("after expired: %+v", s)
	}
	if got := f.userPlan(t); got != domain.PlanFree {
		t.Fatalf("user plan after expiry = %q", got)
	}
}

func TestWebhookActiveResolvesUserByEmail(t *testing.T) {
	f := newFixture(t)
	res, err := f.deliver(t, activeEvent("", "payer@example.com"))
	requireResult(t, res, err, ResultProcessed)
	if s := f.subscription(t); s == nil || !s.Entitles(domain.PlanPro) {
		t.Fatalf("subscription = %+v", s)
	}

	res, err = f.deliver(t, activeEvent("", "stranger@example.com"))
	requireResult(t, res, err, ResultIgnored)
	if res.Reason != "user not found" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestWebhookIgnoresUnknownEvents(t *testing.T) {
	f := newFixture(t)

	res, err := f.deliver(t, `{"type":"payment.succeeded","data":{}}`)
	requireResult(t, res, err, ResultIgnored)
	if res.Event != "payment.succeeded" {
		t.Fatalf("event = %q", res.Event)
	}
	res, err = f.deliver(t, `{"data":{}}`)
	requireResult(t, res, err, ResultIgnored)
	res, err = f.deliver(t, `{"type":"subscription.cancelled","data":{"subscription_id":"sub_missing"}}`)
	requireResult(t, res, err, ResultIgnored)
	if res.Reason != "unknown subscription" {
		t.Fatalf("reason = %q", res.Reason)
	}

	_, err = f.deliver(t, `not json`)
	requireCode(t, err, http.StatusBadRequest, "invalid_payload")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	ts := strconv.FormatInt(f.now.Unix(), 10)
	body := []byte(activeEvent(f.user.ID.String(), ""))
	_, err := f.uc.HandleWebhook(context.Background(), WebhookHeaders{
		ID:        "msg_1",
		Timestamp: ts,
		Signature: "v1," + SignWebhook("whsec_b3RoZXI=", "msg_1", ts, body),
	}, body)
	requireCode(t, err, http.StatusUnauthorized, "invalid_signature")
	if s := f.subscription(t); s != nil {
		t.Fatalf("subscription written despite bad signature: %+v", s)
	}

	_, err = f.uc.HandleWebhook(context.Background(), WebhookHeaders{}, body)
	requireCode(t, err, http.StatusUnauthorized, "invalid_signature")
}

func TestMeUsageAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	me, err := f.uc.Me(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Plan != domain.PlanFree || me.Status != domain.StatusActive || me.CurrentPeriodEnd != nil {
		t.Fatalf("default membership = %+v", me)
	}
	_, err = f.uc.Cancel(ctx, f.user.ID)
	requireCode(t, err, http.StatusBadRequest, "no_active_subscription")

	testutil.SeedSubscription(t, f.db, f.user.ID, domain.PlanPro, domain.StatusActive, "sub_42")
	snap, err := f.uc.Usage(ctx, f.user.ID)
	if err != nil || snap.Plan != domain.PlanPro {
		t.Fatalf("usage = %+v, %v", snap, err)
	}

	res, err := f.uc.Cancel(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !res.CancelledAt.Equal(f.now) {
		t.Fatalf("cancelled_at = %v", res.CancelledAt)
	}
	me, _ = f.uc.Me(ctx, f.user.ID)
	if me.Plan != domain.PlanPro || me.Status != domain.StatusCancelled {
		t.Fatalf("after cancel = %+v", me)
	}
	snap, _ = f.uc.Usage(ctx, f.user.ID)
	if snap.Plan != domain.PlanFree {
		t.Fatalf("cancelled subscription still entitles: %+v", snap)
	}
	_, err = f.uc.Cancel(ctx, f.user.ID)
	requireCode(t, err, http.StatusBadRequest, "no_active_subscription")
}
