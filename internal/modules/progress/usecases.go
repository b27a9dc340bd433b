package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/domain/training"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

const (
	DefaultActivityDays = 30
	MaxActivityDays     = 365
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Progress  repos.ProgressRepo
	Responses repos.ResponseRepo

	Now func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log != nil {
		deps.Log = deps.Log.With("module", "progress")
	}
	return Usecases{deps: deps}
}

// RecordCompletion folds one graded submission into the user's aggregate.
// It must run exactly once per submission and after the Response row exists,
// since streaks are recomputed from stored submission times.
func (u Usecases) RecordCompletion(ctx context.Context, userID uuid.UUID, score float64) (*domain.Progress, error) {
	var out *domain.Progress
	err := u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = u.RecordCompletionTx(dbctx.Context{Ctx: ctx, Tx: tx}, userID, score)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordCompletionTx is RecordCompletion inside the caller's transaction, so
// the Response insert and the aggregate update commit together.
func (u Usecases) RecordCompletionTx(dbc dbctx.Context, userID uuid.UUID, score float64) (*domain.Progress, error) {
	if dbc.Tx == nil {
		return u.RecordCompletion(dbc.Ctx, userID, score)
	}
	out, err := u.fold(dbc, userID, score)
	if err != nil {
		return nil, err
	}
	if u.deps.Log != nil {
		u.deps.Log.Debug("progress recorded",
			"user_id", userID.String(),
			"total_tasks", out.TotalTasksCompleted,
			"current_streak", out.CurrentStreak,
		)
	}
	return out, nil
}

func (u Usecases) fold(dbc dbctx.Context, userID uuid.UUID, score float64) (*domain.Progress, error) {
	now := u.deps.Now().UTC()
	today := domain.DayOf(now)
	todayKey := today.Format(training.DateLayout)

	times, err := u.deps.Responses.SubmissionTimes(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load submission times: %w", err)
	}
	current, longest := Streaks(times, now)

	p, err := u.deps.Progress.GetByUserIDForUpdate(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if p == nil {
		p = &domain.Progress{
			ID:                  uuid.New(),
			UserID:              userID,
			TotalTasksCompleted: 1,
			CurrentStreak:       current,
			LongestStreak:       longest,
			LastActivityDate:    &today,
			TotalScore:          score,
			AverageScore:        score,
			ActivityHistory: []domain.ActivityEntry{
				{Date: todayKey, TasksCompleted: 1, ScoreEarned: score},
			},
		}
		if err := u.deps.Progress.Create(dbc, p); err != nil {
			return nil, fmt.Errorf("create progress: %w", err)
		}
		return p, nil
	}

	p.TotalTasksCompleted++
	p.TotalScore += score
	p.AverageScore = p.TotalScore / float64(p.TotalTasksCompleted)
	p.CurrentStreak = current
	if longest > p.LongestStreak {
		p.LongestStreak = longest
	}
	p.LastActivityDate = &today
	p.ActivityHistory = appendActivity(p.ActivityHistory, todayKey, score)
	p.UpdatedAt = now

	if err := u.deps.Progress.Save(dbc, p); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	return p, nil
}

func appendActivity(history []domain.ActivityEntry, date string, score float64) []domain.ActivityEntry {
	for i := range history {
		if history[i].Date == date {
			history[i].TasksCompleted++
			history[i].ScoreEarned += score
			return history
		}
	}
	return append(history, domain.ActivityEntry{Date: date, TasksCompleted: 1, ScoreEarned: score})
}

// Stats returns the user's aggregate with streaks refreshed against today.
// A zeroed record is created the first time a user with no submissions asks.
func (u Usecases) Stats(ctx context.Context, userID uuid.UUID) (*domain.Progress, error) {
	now := u.deps.Now().UTC()

	var out *domain.Progress
	err := u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		p, err := u.deps.Progress.GetByUserIDForUpdate(dbc, userID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if p == nil {
			p = &domain.Progress{
				ID:              uuid.New(),
				UserID:          userID,
				ActivityHistory: []domain.ActivityEntry{},
			}
			if err := u.deps.Progress.Create(dbc, p); err != nil {
				return fmt.Errorf("create progress: %w", err)
			}
		}

		times, err := u.deps.Responses.SubmissionTimes(dbc, userID)
		if err != nil {
			return fmt.Errorf("load submission times: %w", err)
		}
		current, longest := Streaks(times, now)
		if current != p.CurrentStreak || longest > p.LongestStreak {
			p.CurrentStreak = current
			if longest > p.LongestStreak {
				p.LongestStreak = longest
			}
			p.UpdatedAt = now
			if err := u.deps.Progress.Save(dbc, p); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Activity returns the trailing days entries of the activity history, oldest
// first. days is clamped to [1, MaxActivityDays].
func (u Usecases) Activity(ctx context.Context, userID uuid.UUID, days int) ([]domain.ActivityEntry, error) {
	if days <= 0 {
		days = DefaultActivityDays
	}
	if days > MaxActivityDays {
		days = MaxActivityDays
	}
	p, err := u.deps.Progress.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if p == nil || len(p.ActivityHistory) == 0 {
		return []domain.ActivityEntry{}, nil
	}
	h := p.ActivityHistory
	if len(h) > days {
		h = h[len(h)-days:]
	}
	return append([]domain.ActivityEntry(nil), h...), nil
}
