package training

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
)

func TestResponseRepoCountsAndFeedbackCAS(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewResponseRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, db, "resp@example.com")
	task := testutil.SeedTask(t, db, "Backend Engineer", "beginner", "Rate limiter")

	midnight := types.DayOf(time.Now())
	yesterday := testutil.SeedResponse(t, db, u.ID, task.ID, midnight.Add(-2*time.Hour), 6)
	today := testutil.SeedResponse(t, db, u.ID, task.ID, midnight.Add(30*time.Minute), 8)

	total, err := repo.CountByUser(dbc, u.ID)
	if err != nil || total != 2 {
		t.Fatalf("CountByUser: got %d err=%v", total, err)
	}
	sinceMidnight, err := repo.CountByUserSince(dbc, u.ID, midnight)
	if err != nil || sinceMidnight != 1 {
		t.Fatalf("CountByUserSince: got %d err=%v", sinceMidnight, err)
	}

	list, err := repo.ListByUser(dbc, u.ID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != today.ID || list[1].ID != yesterday.ID {
		t.Fatalf("ListByUser: expected newest first, got %+v", list)
	}

	times, err := repo.SubmissionTimes(dbc, u.ID)
	if err != nil || len(times) != 2 {
		t.Fatalf("SubmissionTimes: got %v err=%v", times, err)
	}

	unlockedAt := time.Now().UTC()
	wrote, err := repo.SetFeedback(dbc, today.ID, "first", unlockedAt)
	if err != nil || !wrote {
		t.Fatalf("SetFeedback first: wrote=%v err=%v", wrote, err)
	}
	wrote, err = repo.SetFeedback(dbc, today.ID, "second", unlockedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("SetFeedback second: %v", err)
	}
	if wrote {
		t.Fatalf("SetFeedback second: expected no write once feedback is set")
	}
	got, err := repo.GetByID(dbc, today.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AIFeedback == nil || *got.AIFeedback != "first" {
		t.Fatalf("expected first feedback to stick, got %v", got.AIFeedback)
	}
	if got.ScoreBreakdown.Clarity != 8 {
		t.Fatalf("embedded score breakdown not persisted: %+v", got.ScoreBreakdown)
	}
}

func TestTaskRepoFilterAndRandom(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewTaskRepo(db, testutil.Logger(t))

	testutil.SeedTask(t, db, "Backend Engineer", "beginner", "Job queue")
	testutil.SeedTask(t, db, "Data Engineer", "advanced", "Clickstream pipeline")

	list, err := repo.List(dbc, TaskFilter{Role: "Data Engineer"})
	if err != nil || len(list) != 1 || list[0].Title != "Clickstream pipeline" {
		t.Fatalf("List filtered: %+v err=%v", list, err)
	}
	if len(list[0].Prompts) != 2 {
		t.Fatalf("prompts not round-tripped: %v", list[0].Prompts)
	}

	pick, err := repo.Random(dbc, TaskFilter{Difficulty: "beginner"})
	if err != nil || pick == nil || pick.Title != "Job queue" {
		t.Fatalf("Random: %+v err=%v", pick, err)
	}
	none, err := repo.Random(dbc, TaskFilter{Role: "Security Engineer"})
	if err != nil || none != nil {
		t.Fatalf("Random empty: %+v err=%v", none, err)
	}

	exists, err := repo.TitleExists(dbc, "Backend Engineer", "beginner", "JOB QUEUE")
	if err != nil || !exists {
		t.Fatalf("TitleExists: %v err=%v", exists, err)
	}
}

func TestDrillRepoRandomUnansweredAndTally(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	drills := NewDrillRepo(db, testutil.Logger(t))
	subs := NewDrillSubmissionRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, db, "drills@example.com")
	answered := testutil.SeedDrill(t, db, types.DrillTypes[0], "Hidden assumptions", "Option A")
	fresh := testutil.SeedDrill(t, db, types.DrillTypes[0], "More assumptions", "Option B")
	other := testutil.SeedDrill(t, db, types.DrillTypes[1], "Failure ranking", "Option C")

	now := time.Now().UTC()
	testutil.SeedDrillSubmission(t, db, u.ID, answered, true, now)
	testutil.SeedDrillSubmission(t, db, u.ID, other, false, now.Add(-48*time.Hour))

	for i := 0; i < 5; i++ {
		d, err := drills.RandomUnanswered(dbc, u.ID, types.DrillTypes[0])
		if err != nil {
			t.Fatalf("RandomUnanswered: %v", err)
		}
		if d == nil || d.ID != fresh.ID {
			t.Fatalf("RandomUnanswered: expected the unanswered drill, got %+v", d)
		}
	}
	none, err := drills.RandomUnanswered(dbc, u.ID, types.DrillTypes[1])
	if err != nil || none != nil {
		t.Fatalf("RandomUnanswered exhausted: %+v err=%v", none, err)
	}

	today, err := subs.CountByUserSince(dbc, u.ID, types.DayOf(now))
	if err != nil || today != 1 {
		t.Fatalf("CountByUserSince: %d err=%v", today, err)
	}

	tally, err := subs.TallyByType(dbc, u.ID)
	if err != nil {
		t.Fatalf("TallyByType: %v", err)
	}
	if len(tally) != 2 {
		t.Fatalf("TallyByType: expected 2 rows, got %+v", tally)
	}
	for _, row := range tally {
		switch row.DrillType {
		case types.DrillTypes[0]:
			if row.Attempted != 1 || row.Correct != 1 {
				t.Fatalf("unexpected tally %+v", row)
			}
		case types.DrillTypes[1]:
			if row.Attempted != 1 || row.Correct != 0 {
				t.Fatalf("unexpected tally %+v", row)
			}
		}
	}
}

func TestProgressRepoCreateAndSave(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewProgressRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, db, "progress@example.com")

	p := &types.Progress{
		UserID:              u.ID,
		TotalTasksCompleted: 1,
		TotalScore:          7,
		AverageScore:        7,
		ActivityHistory:     []types.ActivityEntry{{Date: "2026-01-02", TasksCompleted: 1, ScoreEarned: 7}},
	}
	if err := repo.Create(dbc, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: context.Background(), Tx: tx}
		locked, err := repo.GetByUserIDForUpdate(txc, u.ID)
		if err != nil {
			return err
		}
		locked.TotalTasksCompleted = 2
		locked.TotalScore = 15
		locked.AverageScore = 7.5
		locked.ActivityHistory = append(locked.ActivityHistory, types.ActivityEntry{Date: "2026-01-03", TasksCompleted: 1, ScoreEarned: 8})
		return repo.Save(txc, locked)
	})
	if err != nil {
		t.Fatalf("locked update: %v", err)
	}

	got, err := repo.GetByUserID(dbc, u.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got.TotalTasksCompleted != 2 || got.AverageScore != 7.5 || len(got.ActivityHistory) != 2 {
		t.Fatalf("unexpected progress after save: %+v", got)
	}
	if got.ActivityHistory[1].ScoreEarned != 8 {
		t.Fatalf("activity history not persisted: %+v", got.ActivityHistory)
	}
}
