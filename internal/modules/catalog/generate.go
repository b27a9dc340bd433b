package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/domain/training"
	"github.com/yungbote/cortex-backend/internal/modules/evaluation"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

// Extra attempts after a duplicate title before a role/difficulty pair is skipped.
const duplicateRetries = 2

type generatedTask struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	EstimatedTimeMinutes int      `json:"estimated_time_minutes"`
	Scenario             string   `json:"scenario"`
	Prompts              []string `json:"prompts"`
}

type generatedDrill struct {
	Title         string   `json:"title"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// draftTask asks the generator for a task and falls back to the template on
// any failure. The bool reports whether the template was used.
func (u Usecases) draftTask(ctx context.Context, role, difficulty string) (*domain.Task, bool) {
	if u.deps.Gen != nil {
		raw, err := u.deps.Gen.Generate(ctx, evaluation.Guard(taskPrompt(role, difficulty)), nil)
		if err == nil {
			var g generatedTask
			if err = decodeGenerated(raw, &g); err == nil {
				t, verr := taskFromInput(TaskInput{
					Title:                g.Title,
					Description:          g.Description,
					Role:                 role,
					Difficulty:           difficulty,
					EstimatedTimeMinutes: g.EstimatedTimeMinutes,
					Scenario:             g.Scenario,
					Prompts:              g.Prompts,
				}, training.TaskSourceAI)
				if verr == nil {
					return t, false
				}
				err = verr
			}
		}
		u.deps.Log.Error("task generation failed, using template",
			"role", role,
			"difficulty", difficulty,
			"error", err,
		)
	}
	return fallbackTask(role, difficulty), true
}

func (u Usecases) draftDrill(ctx context.Context, drillType string) (*domain.Drill, bool) {
	if u.deps.Gen != nil {
		raw, err := u.deps.Gen.Generate(ctx, evaluation.Guard(drillPrompt(drillType)), nil)
		if err == nil {
			var g generatedDrill
			if err = decodeGenerated(raw, &g); err == nil {
				d, verr := drillFromInput(DrillInput{
					Title:         g.Title,
					DrillType:     drillType,
					Question:      g.Question,
					Options:       g.Options,
					CorrectAnswer: g.CorrectAnswer,
					Explanation:   g.Explanation,
				})
				if verr == nil {
					return d, false
				}
				err = verr
			}
		}
		u.deps.Log.Error("drill generation failed, using template", "drill_type", drillType, "error", err)
	}
	return fallbackDrill(drillType), true
}

func decodeGenerated(raw string, dst any) error {
	body, err := evaluation.ExtractJSONObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return fmt.Errorf("decode generated json: %w; raw=%s", err, logger.Truncate(raw, 200))
	}
	return nil
}

// GenerateTask drafts one task with the generator and stores it.
func (u Usecases) GenerateTask(ctx context.Context, role, difficulty string) (*domain.Task, error) {
	if !training.ValidRole(role) || !training.ValidDifficulty(difficulty) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_task", errors.New("valid role and difficulty are required"))
	}
	t, _ := u.draftTask(ctx, role, difficulty)
	return u.insertTask(ctx, t)
}

func (u Usecases) GenerateDrill(ctx context.Context, drillType string) (*domain.Drill, error) {
	if !training.ValidDrillType(drillType) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_drill_type", errors.New("unknown drill type"))
	}
	d, _ := u.draftDrill(ctx, drillType)
	return u.insertDrill(ctx, d)
}

type DailyReport struct {
	Created int            `json:"created"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
	Tasks   []*domain.Task `json:"tasks"`
}

// GenerateDailyTasks produces one task per role and difficulty. A draft whose
// title duplicates an existing task for the same pair is regenerated up to
// twice, then the pair is skipped.
func (u Usecases) GenerateDailyTasks(ctx context.Context) (*DailyReport, error) {
	var (
		mu     sync.Mutex
		report = &DailyReport{Tasks: []*domain.Task{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.deps.DailyConcurrency)

	for _, role := range training.Roles {
		for _, difficulty := range training.Difficulties {
			g.Go(func() error {
				t, err := u.uniqueDraft(gctx, role, difficulty)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					report.Failed++
					u.deps.Log.Error("daily task failed", "role", role, "difficulty", difficulty, "error", err)
				case t == nil:
					report.Skipped++
				default:
					report.Created++
					report.Tasks = append(report.Tasks, t)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}
	u.deps.Log.Info("daily task generation finished",
		"created", report.Created,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

// uniqueDraft returns nil, nil when every attempt produced a duplicate.
func (u Usecases) uniqueDraft(ctx context.Context, role, difficulty string) (*domain.Task, error) {
	existing, err := u.deps.Tasks.List(dbctx.Context{Ctx: ctx}, TaskFilter{Role: role, Difficulty: difficulty, Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("list existing tasks: %w", err)
	}
	titles := make([]string, 0, len(existing))
	for _, t := range existing {
		titles = append(titles, t.Title)
	}

	for attempt := 0; attempt <= duplicateRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, _ := u.draftTask(ctx, role, difficulty)
		if similarTitleExists(t.Title, titles) {
			u.deps.Log.Info("duplicate task title, regenerating", "role", role, "difficulty", difficulty, "title", t.Title, "attempt", attempt+1)
			continue
		}
		return u.insertTask(ctx, t)
	}
	u.deps.Log.Warn("no unique task after retries", "role", role, "difficulty", difficulty)
	return nil, nil
}

// similarTitleExists matches titles case-insensitively, and for titles of at
// least three words also matches existing titles containing the first three
// significant (longer than three letters) words in order.
func similarTitleExists(title string, existing []string) bool {
	norm := strings.ToLower(strings.TrimSpace(title))
	for _, e := range existing {
		if strings.ToLower(strings.TrimSpace(e)) == norm {
			return true
		}
	}
	words := strings.Fields(norm)
	if len(words) < 3 {
		return false
	}
	var significant []string
	for _, w := range words {
		if len(w) > 3 {
			significant = append(significant, regexp.QuoteMeta(w))
		}
		if len(significant) == 3 {
			break
		}
	}
	if len(significant) == 0 {
		return false
	}
	re, err := regexp.Compile("(?i)" + strings.Join(significant, ".*"))
	if err != nil {
		return false
	}
	for _, e := range existing {
		if re.MatchString(e) {
			return true
		}
	}
	return false
}
