package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/http/response"
	"github.com/yungbote/cortex-backend/internal/modules/billing"
	"github.com/yungbote/cortex-backend/internal/modules/catalog"
	"github.com/yungbote/cortex-backend/internal/modules/drills"
	"github.com/yungbote/cortex-backend/internal/modules/submission"
	"github.com/yungbote/cortex-backend/internal/modules/usage"
	"github.com/yungbote/cortex-backend/internal/pkg/ctxutil"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

var callerID = uuid.New()

// withCaller stands in for the auth middleware: requests carrying X-Test-User
// are attributed to callerID.
func withCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &ctxutil.RequestData{}
		if c.GetHeader("X-Test-User") != "" {
			rd.UserID = callerID
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withCaller())
	return r
}

func do(t *testing.T, r *gin.Engine, method, target string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.([]byte); ok {
			buf.Write(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("X-Test-User", "1")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return env.Error.Code
}

type fakeSubmissions struct {
	gotUser  uuid.UUID
	gotInput submission.SubmitInput
	gotLimit int
	err      error
}

func (f *fakeSubmissions) Submit(_ context.Context, userID uuid.UUID, in submission.SubmitInput) (*domain.Response, error) {
	f.gotUser, f.gotInput = userID, in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Response{ID: uuid.New(), UserID: userID}, nil
}

func (f *fakeSubmissions) RequestFeedback(context.Context, uuid.UUID, string) (*submission.FeedbackResult, error) {
	return nil, f.err
}

func (f *fakeSubmissions) Get(context.Context, uuid.UUID, string) (*domain.Response, error) {
	return nil, apierr.New(http.StatusNotFound, "response_not_found", errors.New("response not found"))
}

func (f *fakeSubmissions) History(_ context.Context, _ uuid.UUID, limit int) ([]*domain.Response, error) {
	f.gotLimit = limit
	return []*domain.Response{}, nil
}

func TestResponseHandlerSubmit(t *testing.T) {
	subs := &fakeSubmissions{}
	h := NewResponseHandler(subs)
	r := newTestEngine()
	r.POST("/responses", h.Submit)

	body := map[string]string{
		"task_id":           uuid.NewString(),
		"assumptions":       "a",
		"architecture":      "b",
		"trade_offs":        "c",
		"failure_scenarios": "d",
	}
	if w := do(t, r, http.MethodPost, "/responses", body, false); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous submit: got %d want 401", w.Code)
	}

	w := do(t, r, http.MethodPost, "/responses", body, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: got %d (%s)", w.Code, w.Body.String())
	}
	if subs.gotUser != callerID || subs.gotInput.TradeOffs != "c" || subs.gotInput.TaskID != body["task_id"] {
		t.Fatalf("unexpected forwarded input: user=%s input=%+v", subs.gotUser, subs.gotInput)
	}

	delete(body, "failure_scenarios")
	w = do(t, r, http.MethodPost, "/responses", body, true)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_request" {
		t.Fatalf("missing field: got %d %s", w.Code, w.Body.String())
	}
}

func TestResponseHandlerMapsModuleErrors(t *testing.T) {
	subs := &fakeSubmissions{err: apierr.New(http.StatusForbidden, "task_limit_reached", errors.New("free plan task limit reached")).WithMeta("limit", 5)}
	h := NewResponseHandler(subs)
	r := newTestEngine()
	r.POST("/responses", h.Submit)
	r.GET("/responses", h.History)
	r.GET("/responses/:id", h.Get)

	w := do(t, r, http.MethodPost, "/responses", map[string]string{
		"task_id": "x", "assumptions": "a", "architecture": "b", "trade_offs": "c", "failure_scenarios": "d",
	}, true)
	if w.Code != http.StatusForbidden || errorCode(t, w) != "task_limit_reached" {
		t.Fatalf("quota: got %d %s", w.Code, w.Body.String())
	}

	if w := do(t, r, http.MethodGet, "/responses/abc", nil, true); w.Code != http.StatusNotFound {
		t.Fatalf("get: got %d want 404", w.Code)
	}

	if w := do(t, r, http.MethodGet, "/responses?limit=7", nil, true); w.Code != http.StatusOK || subs.gotLimit != 7 {
		t.Fatalf("history: got %d limit=%d", w.Code, subs.gotLimit)
	}
	w = do(t, r, http.MethodGet, "/responses?limit=seven", nil, true)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_limit" {
		t.Fatalf("bad limit: got %d %s", w.Code, w.Body.String())
	}
}

type fakeDrills struct {
	gotType   string
	gotAnswer string
}

func (f *fakeDrills) RandomDrill(_ context.Context, _ uuid.UUID, drillType string) (*domain.Drill, error) {
	f.gotType = drillType
	return &domain.Drill{ID: uuid.New(), DrillType: drillType}, nil
}

func (f *fakeDrills) Submit(_ context.Context, _ uuid.UUID, _ string, answer string) (*drills.Result, error) {
	f.gotAnswer = answer
	return &drills.Result{IsCorrect: true, UserAnswer: answer}, nil
}

func (f *fakeDrills) History(context.Context, uuid.UUID) ([]drills.HistoryItem, error) {
	return []drills.HistoryItem{}, nil
}

func (f *fakeDrills) Stats(context.Context, uuid.UUID) (*drills.Stats, error) {
	return &drills.Stats{}, nil
}

func TestDrillHandler(t *testing.T) {
	fd := &fakeDrills{}
	h := NewDrillHandler(fd)
	r := newTestEngine()
	r.GET("/drills/random", h.Random)
	r.POST("/drills/submit", h.Submit)

	if w := do(t, r, http.MethodGet, "/drills/random?drill_type=rank_failures", nil, true); w.Code != http.StatusOK || fd.gotType != "rank_failures" {
		t.Fatalf("random: got %d type=%q", w.Code, fd.gotType)
	}

	w := do(t, r, http.MethodPost, "/drills/submit", map[string]string{"drill_id": uuid.NewString(), "user_answer": "B"}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: got %d %s", w.Code, w.Body.String())
	}
	var res drills.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.IsCorrect || res.UserAnswer != "B" {
		t.Fatalf("unexpected result %+v", res)
	}

	if w := do(t, r, http.MethodPost, "/drills/submit", map[string]string{"drill_id": "x"}, true); w.Code != http.StatusBadRequest {
		t.Fatalf("missing answer: got %d want 400", w.Code)
	}
}

type fakeProgress struct{ gotDays int }

func (f *fakeProgress) Stats(_ context.Context, userID uuid.UUID) (*domain.Progress, error) {
	return &domain.Progress{UserID: userID}, nil
}

func (f *fakeProgress) Activity(_ context.Context, _ uuid.UUID, days int) ([]domain.ActivityEntry, error) {
	f.gotDays = days
	return []domain.ActivityEntry{{Date: "2026-05-01", TasksCompleted: 2}}, nil
}

func TestProgressHandlerActivity(t *testing.T) {
	fp := &fakeProgress{}
	h := NewProgressHandler(fp)
	r := newTestEngine()
	r.GET("/progress/activity", h.Activity)

	w := do(t, r, http.MethodGet, "/progress/activity?days=14", nil, true)
	if w.Code != http.StatusOK || fp.gotDays != 14 {
		t.Fatalf("activity: got %d days=%d", w.Code, fp.gotDays)
	}
	var out struct {
		Days     int                    `json:"days"`
		Activity []domain.ActivityEntry `json:"activity"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Days != 1 || out.Activity[0].TasksCompleted != 2 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	if w := do(t, r, http.MethodGet, "/progress/activity?days=-1", nil, true); w.Code != http.StatusBadRequest {
		t.Fatalf("negative days: got %d want 400", w.Code)
	}
}

type fakeBilling struct {
	gotHeaders billing.WebhookHeaders
	gotBody    []byte
}

func (f *fakeBilling) Me(context.Context, uuid.UUID) (*billing.Membership, error) {
	return &billing.Membership{Plan: "free", Status: "active"}, nil
}

func (f *fakeBilling) Usage(context.Context, uuid.UUID) (usage.Snapshot, error) {
	return usage.Snapshot{Plan: "free", TasksLimit: 5}, nil
}

func (f *fakeBilling) Cancel(context.Context, uuid.UUID) (*billing.CancelResult, error) {
	return nil, apierr.New(http.StatusBadRequest, "no_active_subscription", errors.New("no active subscription"))
}

func (f *fakeBilling) HandleWebhook(_ context.Context, h billing.WebhookHeaders, body []byte) (*billing.WebhookResult, error) {
	f.gotHeaders, f.gotBody = h, body
	return &billing.WebhookResult{Status: billing.ResultProcessed, Event: "subscription.active"}, nil
}

func TestSubscriptionHandler(t *testing.T) {
	h := NewSubscriptionHandler(&fakeBilling{})
	r := newTestEngine()
	r.GET("/subscriptions/me", h.Me)
	r.GET("/subscriptions/usage", h.Usage)
	r.POST("/subscriptions/cancel", h.Cancel)

	if w := do(t, r, http.MethodGet, "/subscriptions/me", nil, true); w.Code != http.StatusOK {
		t.Fatalf("me: got %d", w.Code)
	}
	w := do(t, r, http.MethodGet, "/subscriptions/usage", nil, true)
	var snap usage.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil || snap.TasksLimit != 5 {
		t.Fatalf("usage: %s (%v)", w.Body.String(), err)
	}
	w = do(t, r, http.MethodPost, "/subscriptions/cancel", nil, true)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "no_active_subscription" {
		t.Fatalf("cancel: got %d %s", w.Code, w.Body.String())
	}
}

func TestWebhookHandlerForwardsRawBody(t *testing.T) {
	fb := &fakeBilling{}
	h := NewWebhookHandler(fb)
	r := newTestEngine()
	r.POST("/webhooks/billing", h.Billing)

	raw := []byte(`{"type":"subscription.active","data":{}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(raw))
	req.Header.Set("webhook-id", "msg_1")
	req.Header.Set("webhook-timestamp", "1777636800")
	req.Header.Set("webhook-signature", "v1,abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if !bytes.Equal(fb.gotBody, raw) {
		t.Fatalf("body altered: %q", fb.gotBody)
	}
	want := billing.WebhookHeaders{ID: "msg_1", Timestamp: "1777636800", Signature: "v1,abc"}
	if fb.gotHeaders != want {
		t.Fatalf("headers: got %+v want %+v", fb.gotHeaders, want)
	}
}

type fakeAdmin struct {
	gotRole, gotDifficulty, gotDrillType string
}

func (f *fakeAdmin) CreateTask(_ context.Context, in catalog.TaskInput) (*domain.Task, error) {
	return &domain.Task{ID: uuid.New(), Title: in.Title}, nil
}

func (f *fakeAdmin) GenerateTask(_ context.Context, role, difficulty string) (*domain.Task, error) {
	f.gotRole, f.gotDifficulty = role, difficulty
	return &domain.Task{ID: uuid.New(), Role: role, Difficulty: difficulty}, nil
}

func (f *fakeAdmin) GenerateDailyTasks(context.Context) (*catalog.DailyReport, error) {
	return &catalog.DailyReport{Created: 21}, nil
}

func (f *fakeAdmin) CreateDrill(_ context.Context, in catalog.DrillInput) (*domain.Drill, error) {
	return &domain.Drill{ID: uuid.New(), Title: in.Title}, nil
}

func (f *fakeAdmin) GenerateDrill(_ context.Context, drillType string) (*domain.Drill, error) {
	f.gotDrillType = drillType
	return &domain.Drill{ID: uuid.New(), DrillType: drillType}, nil
}

func (f *fakeAdmin) Stats(context.Context) (*catalog.AdminStats, error) {
	return &catalog.AdminStats{}, nil
}

func TestAdminHandlerGenerateParams(t *testing.T) {
	fa := &fakeAdmin{}
	h := NewAdminHandler(logger.Nop(), fa)
	r := newTestEngine()
	r.POST("/admin/tasks/generate", h.GenerateTask)
	r.POST("/admin/drills/generate", h.GenerateDrill)
	r.POST("/admin/tasks", h.CreateTask)

	w := do(t, r, http.MethodPost, "/admin/tasks/generate?role=backend&difficulty=advanced", nil, true)
	if w.Code != http.StatusCreated || fa.gotRole != "backend" || fa.gotDifficulty != "advanced" {
		t.Fatalf("query params: got %d role=%q difficulty=%q", w.Code, fa.gotRole, fa.gotDifficulty)
	}

	w = do(t, r, http.MethodPost, "/admin/tasks/generate", map[string]string{"role": "frontend", "difficulty": "beginner"}, true)
	if w.Code != http.StatusCreated || fa.gotRole != "frontend" || fa.gotDifficulty != "beginner" {
		t.Fatalf("json params: got %d role=%q difficulty=%q", w.Code, fa.gotRole, fa.gotDifficulty)
	}

	if w := do(t, r, http.MethodPost, "/admin/drills/generate?drill_type=predict_scaling", nil, true); w.Code != http.StatusCreated || fa.gotDrillType != "predict_scaling" {
		t.Fatalf("drill: got %d type=%q", w.Code, fa.gotDrillType)
	}

	if w := do(t, r, http.MethodPost, "/admin/tasks", map[string]string{"title": "only a title"}, true); w.Code != http.StatusBadRequest {
		t.Fatalf("create without required fields: got %d want 400", w.Code)
	}
}
