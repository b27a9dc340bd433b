package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/data/repos/testutil"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/domain/training"
	"github.com/yungbote/cortex-backend/internal/modules/evaluation"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
)

func newUsecases(t *testing.T, gen evaluation.Generator) (Usecases, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return New(UsecasesDeps{
		Log:              log,
		Tasks:            repos.NewTaskRepo(db, log),
		Drills:           repos.NewDrillRepo(db, log),
		Users:            repos.NewUserRepo(db, log),
		Responses:        repos.NewResponseRepo(db, log),
		DrillSubmissions: repos.NewDrillSubmissionRepo(db, log),
		Subscriptions:    repos.NewSubscriptionRepo(db, log),
		Gen:              gen,
		DailyConcurrency: 2,
	}), db
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	ae, ok := apierr.As(err)
	if !ok || ae.Status != status || ae.Code != code {
		t.Fatalf("err = %v, want %d/%s", err, status, code)
	}
}

func TestListAndGetTasks(t *testing.T) {
	uc, db := newUsecases(t, nil)
	ctx := context.Background()
	a := testutil.SeedTask(t, db, "Backend Engineer", "beginner", "Queue basics")
	testutil.SeedTask(t, db, "Backend Engineer", "advanced", "Sharded queues")
	testutil.SeedTask(t, db, "Data Engineer", "beginner", "Batch ETL")

	got, err := uc.ListTasks(ctx, TaskFilter{Role: "Backend Engineer"})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	got, err = uc.ListTasks(ctx, TaskFilter{Difficulty: "beginner", Limit: 10_000})
	if err != nil || len(got) != 2 {
		t.Fatalf("beginner list = %d, %v", len(got), err)
	}

	_, err = uc.ListTasks(ctx, TaskFilter{Role: "Wizard"})
	requireCode(t, err, http.StatusBadRequest, "invalid_role")
	_, err = uc.ListTasks(ctx, TaskFilter{Difficulty: "legendary"})
	requireCode(t, err, http.StatusBadRequest, "invalid_difficulty")

	one, err := uc.GetTask(ctx, a.ID.String())
	if err != nil || one.Title != "Queue basics" {
		t.Fatalf("GetTask = %+v, %v", one, err)
	}
	_, err = uc.GetTask(ctx, "nope")
	requireCode(t, err, http.StatusBadRequest, "invalid_id")
	_, err = uc.GetTask(ctx, "6f1c1d0e-2f5c-4d1e-9a59-2f5a1b0c9d11")
	requireCode(t, err, http.StatusNotFound, "task_not_found")

	r, err := uc.RandomTask(ctx, TaskFilter{Role: "Data Engineer"})
	if err != nil || r.Title != "Batch ETL" {
		t.Fatalf("RandomTask = %+v, %v", r, err)
	}
	_, err = uc.RandomTask(ctx, TaskFilter{Role: "Security Engineer"})
	requireCode(t, err, http.StatusNotFound, "task_not_found")
}

func TestCreateTaskValidation(t *testing.T) {
	uc, _ := newUsecases(t, nil)
	ctx := context.Background()

	_, err := uc.CreateTask(ctx, TaskInput{Title: "x", Role: "Backend Engineer", Difficulty: "beginner"})
	requireCode(t, err, http.StatusBadRequest, "invalid_task")
	_, err = uc.CreateTask(ctx, TaskInput{Title: "x", Scenario: "y", Role: "Chef", Difficulty: "beginner"})
	requireCode(t, err, http.StatusBadRequest, "invalid_role")

	got, err := uc.CreateTask(ctx, TaskInput{
		Title:      "  Design a cache  ",
		Role:       "Systems Engineer",
		Difficulty: "intermediate",
		Scenario:   "Reads dominate.",
		Prompts:    []string{"What layers?", "  ", ""},
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if got.Title != "Design a cache" || got.EstimatedTimeMinutes != 45 || len(got.Prompts) != 1 {
		t.Fatalf("created = %+v", got)
	}
	if got.Source != training.TaskSourceManual {
		t.Fatalf("source = %q", got.Source)
	}

	_, err = uc.CreateDrill(ctx, DrillInput{Title: "t", DrillType: "guess", Question: "q", CorrectAnswer: "a"})
	requireCode(t, err, http.StatusBadRequest, "invalid_drill_type")
	_, err = uc.CreateDrill(ctx, DrillInput{Title: "t", DrillType: training.DrillRankFailures, Question: "q"})
	requireCode(t, err, http.StatusBadRequest, "invalid_drill")
}

const generatedTaskJSON = "```json\n" + `{
  "title": "Design a webhook relay",
  "description": "Relay partner webhooks reliably.",
  "estimated_time_minutes": 40,
  "scenario": "Partners send 2k events per second with bursts.",
  "prompts": ["How do you retry?", "How do you order events?"]
}` + "\n```"

func TestGenerateTaskUsesModelOutput(t *testing.T) {
	var prompt string
	gen := evaluation.GeneratorFunc(func(_ context.Context, p string, img *evaluation.Image) (string, error) {
		prompt = p
		return generatedTaskJSON, nil
	})
	uc, _ := newUsecases(t, gen)

	got, err := uc.GenerateTask(context.Background(), "Backend Engineer", "advanced")
	if err != nil {
		t.Fatalf("GenerateTask: %v", err)
	}
	if got.Title != "Design a webhook relay" || got.EstimatedTimeMinutes != 40 || len(got.Prompts) != 2 {
		t.Fatalf("task = %+v", got)
	}
	if got.Role != "Backend Engineer" || got.Difficulty != "advanced" || got.Source != training.TaskSourceAI {
		t.Fatalf("task = %+v", got)
	}
	if !strings.HasPrefix(prompt, evaluation.GuardrailMarker) {
		t.Fatalf("prompt not guarded: %q", prompt[:40])
	}
	if !strings.Contains(prompt, "Backend Engineer at advanced difficulty") {
		t.Fatalf("prompt missing role/difficulty")
	}

	_, err = uc.GenerateTask(context.Background(), "Backend Engineer", "easy")
	requireCode(t, err, http.StatusBadRequest, "invalid_task")
}

func TestGenerateFallsBackToTemplate(t *testing.T) {
	cases := map[string]evaluation.Generator{
		"error":   evaluation.GeneratorFunc(func(context.Context, string, *evaluation.Image) (string, error) { return "", errors.New("boom") }),
		"prose":   evaluation.GeneratorFunc(func(context.Context, string, *evaluation.Image) (string, error) { return "Sure! Here you go.", nil }),
		"missing": evaluation.GeneratorFunc(func(context.Context, string, *evaluation.Image) (string, error) { return `{"title":"x"}`, nil }),
		"nil":     nil,
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			uc, _ := newUsecases(t, gen)
			ctx := context.Background()
			task, err := uc.GenerateTask(ctx, "DevOps Engineer", "beginner")
			if err != nil {
				t.Fatalf("GenerateTask: %v", err)
			}
			if task.Title != "System Design Challenge for DevOps Engineer" || len(task.Prompts) != 4 {
				t.Fatalf("task = %+v", task)
			}
			drill, err := uc.GenerateDrill(ctx, training.DrillPredictScaling)
			if err != nil {
				t.Fatalf("GenerateDrill: %v", err)
			}
			if drill.Title != "Engineering Thinking Challenge" || drill.CorrectAnswer != "Option A" || len(drill.Options) != 4 {
				t.Fatalf("drill = %+v", drill)
			}
			if drill.DrillType != training.DrillPredictScaling {
				t.Fatalf("drill type = %q", drill.DrillType)
			}
		})
	}
}

func TestGenerateDrillUsesModelOutput(t *testing.T) {
	gen := evaluation.GeneratorFunc(func(_ context.Context, p string, _ *evaluation.Image) (string, error) {
		if !strings.Contains(p, "Choose the best tradeoff") {
			return "", fmt.Errorf("unexpected prompt")
		}
		return `{"title":"Like counter","question":"Which consistency?","options":["Strong","Eventual"],"correct_answer":"Eventual","explanation":"Counts can lag."}`, nil
	})
	uc, _ := newUsecases(t, gen)
	d, err := uc.GenerateDrill(context.Background(), training.DrillChooseTradeoffs)
	if err != nil {
		t.Fatalf("GenerateDrill: %v", err)
	}
	if d.Title != "Like counter" || d.CorrectAnswer != "Eventual" {
		t.Fatalf("drill = %+v", d)
	}
	_, err = uc.GenerateDrill(context.Background(), "trivia")
	requireCode(t, err, http.StatusBadRequest, "invalid_drill_type")
}

func TestSimilarTitleExists(t *testing.T) {
	existing := []string{"Design a Rate Limiter", "Build a distributed job queue for emails"}
	cases := []struct {
		title string
		want  bool
	}{
		{"design a rate limiter", true},
		{"  Design a Rate Limiter ", true},
		{"Design a rate limiting proxy", false},
		{"Build distributed job system", false},
		{"Build a distributed job queue", true},
		{"Quick job", false},
	}
	for _, tc := range cases {
		if got := similarTitleExists(tc.title, existing); got != tc.want {
			t.Fatalf("similarTitleExists(%q) = %v, want %v", tc.title, got, tc.want)
		}
	}
}

func TestGenerateDailyTasks(t *testing.T) {
	var calls atomic.Int64
	gen := evaluation.GeneratorFunc(func(context.Context, string, *evaluation.Image) (string, error) {
		n := calls.Add(1)
		return fmt.Sprintf(`{"title":"Design Webhook Relay %d","description":"d","scenario":"s","prompts":["p"]}`, n), nil
	})
	uc, db := newUsecases(t, gen)
	ctx := context.Background()

	report, err := uc.GenerateDailyTasks(ctx)
	if err != nil {
		t.Fatalf("GenerateDailyTasks: %v", err)
	}
	pairs := len(training.Roles) * len(training.Difficulties)
	if report.Created != pairs || report.Skipped != 0 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	var n int64
	db.Model(&domain.Task{}).Where("source = ?", training.TaskSourceAI).Count(&n)
	if int(n) != pairs {
		t.Fatalf("stored = %d, want %d", n, pairs)
	}
	seen := map[string]bool{}
	for _, task := range report.Tasks {
		key := task.Role + "/" + task.Difficulty
		if seen[key] {
			t.Fatalf("duplicate pair %s", key)
		}
		seen[key] = true
	}

	// Every new draft shares its first significant words with the stored
	// task for the pair, so each pair is retried and then skipped.
	calls.Store(0)
	report, err = uc.GenerateDailyTasks(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Created != 0 || report.Skipped != pairs {
		t.Fatalf("second report = %+v", report)
	}
	if got := calls.Load(); got != int64(pairs*(duplicateRetries+1)) {
		t.Fatalf("generator calls = %d, want %d", got, pairs*(duplicateRetries+1))
	}
}

func TestGenerateDailyTasksBoundedConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	gen := evaluation.GeneratorFunc(func(context.Context, string, *evaluation.Image) (string, error) {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			active--
			mu.Unlock()
		}()
		return "", errors.New("offline")
	})
	uc, _ := newUsecases(t, gen)
	report, err := uc.GenerateDailyTasks(context.Background())
	if err != nil {
		t.Fatalf("GenerateDailyTasks: %v", err)
	}
	// Template titles are identical per pair, so every pair stores exactly one.
	if report.Created != len(training.Roles)*len(training.Difficulties) {
		t.Fatalf("report = %+v", report)
	}
	if maxSeen > 2 {
		t.Fatalf("max concurrent generator calls = %d, want <= 2", maxSeen)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	uc, db := newUsecases(t, nil)
	ctx := context.Background()

	first, err := uc.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if first.Tasks != 12 || first.Drills != 8 {
		t.Fatalf("first seed = %+v", first)
	}
	second, err := uc.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed again: %v", err)
	}
	if second.Tasks != 0 || second.Drills != 0 {
		t.Fatalf("second seed = %+v", second)
	}

	var d domain.Drill
	if err := db.Where("title = ?", "Payment System Failures").First(&d).Error; err != nil {
		t.Fatalf("load drill: %v", err)
	}
	if d.CorrectAnswer != "C, A, D, B" || len(d.Options) != 4 {
		t.Fatalf("drill = %+v", d)
	}
	var task domain.Task
	if err := db.Where("title = ?", "Optimize Slow Query").First(&task).Error; err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Source != training.TaskSourceSeed || !strings.Contains(task.Scenario, "GROUP BY date") {
		t.Fatalf("task = %+v", task)
	}
}

func TestAdminStats(t *testing.T) {
	uc, db := newUsecases(t, nil)
	ctx := context.Background()
	u1 := testutil.SeedUser(t, db, "a@example.com")
	testutil.SeedUser(t, db, "b@example.com")
	task := testutil.SeedTask(t, db, "Backend Engineer", "beginner", "Queue basics")
	testutil.SeedResponse(t, db, u1.ID, task.ID, task.CreatedAt, 6)
	d := testutil.SeedDrill(t, db, training.DrillRankFailures, "Rank", "A")
	testutil.SeedDrillSubmission(t, db, u1.ID, d, true, task.CreatedAt)
	testutil.SeedSubscription(t, db, u1.ID, domain.PlanPro, domain.StatusActive, "sub_1")

	s, err := uc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := AdminStats{Users: 2, Tasks: 1, Drills: 1, Responses: 1, DrillSubmissions: 1, ActiveProSubscribers: 1}
	if *s != want {
		t.Fatalf("stats = %+v, want %+v", *s, want)
	}
}
