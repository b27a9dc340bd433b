package drills

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cortex-backend/internal/clients/redis"
	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/domain/training"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

const (
	HistoryLimit = 50

	submitLockTTL = 30 * time.Second
)

type Policy interface {
	RequireDrill(ctx context.Context, userID uuid.UUID) error
}

type UsecasesDeps struct {
	Log *logger.Logger

	Drills      repos.DrillRepo
	Submissions repos.DrillSubmissionRepo

	Policy Policy
	Locker redis.Locker

	Now func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = redis.NopLocker()
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "drills")
	return Usecases{deps: deps}
}

// RandomDrill picks a drill the user has not answered, optionally of one type.
func (u Usecases) RandomDrill(ctx context.Context, userID uuid.UUID, drillType string) (*domain.Drill, error) {
	drillType = strings.TrimSpace(drillType)
	if drillType != "" && !training.ValidDrillType(drillType) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_drill_type", errors.New("unknown drill type"))
	}
	d, err := u.deps.Drills.RandomUnanswered(dbctx.Context{Ctx: ctx}, userID, drillType)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "drill_lookup_failed", err)
	}
	if d == nil {
		return nil, apierr.New(http.StatusNotFound, "drill_not_found", errors.New("no unanswered drills found, you've completed all available drills"))
	}
	return d, nil
}

type Result struct {
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
}

// Submit grades an answer by trimmed, case-insensitive equality and appends
// the attempt.
func (u Usecases) Submit(ctx context.Context, userID uuid.UUID, rawDrillID, answer string) (*Result, error) {
	drillID, err := uuid.Parse(strings.TrimSpace(rawDrillID))
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_id", errors.New("invalid drill id"))
	}
	d, err := u.deps.Drills.GetByID(dbctx.Context{Ctx: ctx}, drillID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "drill_lookup_failed", err)
	}
	if d == nil {
		return nil, apierr.New(http.StatusNotFound, "drill_not_found", errors.New("drill not found"))
	}

	release, err := u.deps.Locker.Acquire(ctx, "drill:"+userID.String(), submitLockTTL)
	defer release()
	if errors.Is(err, redis.ErrLocked) {
		return nil, apierr.New(http.StatusConflict, "submission_in_progress", errors.New("another drill answer is being recorded"))
	}
	if err != nil {
		u.deps.Log.Warn("drill lock unavailable", "user_id", userID, "error", err)
	}

	if err := u.deps.Policy.RequireDrill(ctx, userID); err != nil {
		return nil, err
	}

	correct := Grade(answer, d.CorrectAnswer)
	sub := &domain.DrillSubmission{
		ID:          uuid.New(),
		UserID:      userID,
		DrillID:     d.ID,
		DrillType:   d.DrillType,
		UserAnswer:  answer,
		IsCorrect:   correct,
		SubmittedAt: u.deps.Now().UTC(),
	}
	if err := u.deps.Submissions.Create(dbctx.Context{Ctx: ctx}, sub); err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "drill_submit_failed", err)
	}
	return &Result{
		IsCorrect:     correct,
		Explanation:   d.Explanation,
		UserAnswer:    answer,
		CorrectAnswer: d.CorrectAnswer,
	}, nil
}

func Grade(answer, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}

type HistoryItem struct {
	ID          uuid.UUID `json:"id"`
	DrillTitle  string    `json:"drill_title"`
	DrillType   string    `json:"drill_type"`
	UserAnswer  string    `json:"user_answer"`
	IsCorrect   bool      `json:"is_correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// History lists the latest attempts, newest first. Attempts whose drill was
// removed are skipped.
func (u Usecases) History(ctx context.Context, userID uuid.UUID) ([]HistoryItem, error) {
	dbc := dbctx.Context{Ctx: ctx}
	subs, err := u.deps.Submissions.ListByUser(dbc, userID, HistoryLimit)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "drill_history_failed", err)
	}
	ids := make([]uuid.UUID, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.DrillID)
	}
	drills, err := u.deps.Drills.GetByIDs(dbc, ids)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "drill_history_failed", err)
	}
	byID := make(map[uuid.UUID]*domain.Drill, len(drills))
	for _, d := range drills {
		byID[d.ID] = d
	}

	out := make([]HistoryItem, 0, len(subs))
	for _, s := range subs {
		d, ok := byID[s.DrillID]
		if !ok {
			continue
		}
		out = append(out, HistoryItem{
			ID:          s.ID,
			DrillTitle:  d.Title,
			DrillType:   d.DrillType,
			UserAnswer:  s.UserAnswer,
			IsCorrect:   s.IsCorrect,
			SubmittedAt: s.SubmittedAt,
		})
	}
	return out, nil
}

type TypeStats struct {
	Attempted int64   `json:"attempted"`
	Correct   int64   `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

type Stats struct {
	TotalAttempted int64                `json:"total_attempted"`
	TotalCorrect   int64                `json:"total_correct"`
	Accuracy       float64              `json:"accuracy"`
	ByType         map[string]TypeStats `json:"by_type"`
}

func (u Usecases) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	tallies, err := u.deps.Submissions.TallyByType(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "drill_stats_failed", err)
	}
	out := &Stats{ByType: map[string]TypeStats{}}
	for _, t := range tallies {
		out.TotalAttempted += t.Attempted
		out.TotalCorrect += t.Correct
		out.ByType[t.DrillType] = TypeStats{
			Attempted: t.Attempted,
			Correct:   t.Correct,
			Accuracy:  accuracy(t.Correct, t.Attempted),
		}
	}
	out.Accuracy = accuracy(out.TotalCorrect, out.TotalAttempted)
	return out, nil
}

func accuracy(correct, attempted int64) float64 {
	if attempted == 0 {
		return 0
	}
	return training.Round2(float64(correct) / float64(attempted) * 100)
}
