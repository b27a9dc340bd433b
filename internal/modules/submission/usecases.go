package submission

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/clients/redis"
	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/domain"
	"github.com/yungbote/cortex-backend/internal/modules/evaluation"
	"github.com/yungbote/cortex-backend/internal/observability"
	"github.com/yungbote/cortex-backend/internal/pkg/dbctx"
	"github.com/yungbote/cortex-backend/internal/pkg/pointers"
	"github.com/yungbote/cortex-backend/internal/platform/apierr"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

const (
	DefaultFeedbackGate = 5 * time.Minute
	DefaultHistoryLimit = 100

	CodeFeedbackLocked       = "feedback_locked"
	CodeSubmissionInProgress = "submission_in_progress"

	// Covers a full evaluation so the lock outlives the slowest pipeline run.
	submitLockTTL  = 3 * time.Minute
	submitLockWait = 2 * time.Second
)

type Policy interface {
	RequireTask(ctx context.Context, userID uuid.UUID) error
}

type Evaluator interface {
	Evaluate(ctx context.Context, task evaluation.TaskContext, sub evaluation.Submission) evaluation.Result
	Synthesize(ctx context.Context, task evaluation.TaskContext, sub evaluation.Submission, c evaluation.Critiques) evaluation.Result
}

type ProgressRecorder interface {
	RecordCompletionTx(dbc dbctx.Context, userID uuid.UUID, score float64) (*domain.Progress, error)
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Tasks     repos.TaskRepo
	Responses repos.ResponseRepo

	Policy    Policy
	Evaluator Evaluator
	Progress  ProgressRecorder
	// Serialises submissions per user; redis.NopLocker when not configured.
	Locker redis.Locker

	FeedbackGate time.Duration
	Now          func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.FeedbackGate <= 0 {
		deps.FeedbackGate = DefaultFeedbackGate
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = redis.NopLocker()
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "submission")
	return Usecases{deps: deps}
}

type SubmitInput struct {
	TaskID            string
	Assumptions       string
	Architecture      string
	ArchitectureData  string
	ArchitectureImage string
	TradeOffs         string
	FailureScenarios  string
}

// Submit grades a new response synchronously and folds it into progress. The
// response starts feedback-locked.
func (u Usecases) Submit(ctx context.Context, userID uuid.UUID, in SubmitInput) (*domain.Response, error) {
	taskID, err := uuid.Parse(strings.TrimSpace(in.TaskID))
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_id", errors.New("invalid task id"))
	}
	task, err := u.deps.Tasks.GetByID(dbctx.Context{Ctx: ctx}, taskID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "task_lookup_failed", err)
	}
	if task == nil {
		return nil, apierr.New(http.StatusNotFound, "task_not_found", errors.New("task not found"))
	}

	var img *evaluation.Image
	if strings.TrimSpace(in.ArchitectureImage) != "" {
		img = evaluation.ParseImage(in.ArchitectureImage)
		if !img.Valid() {
			return nil, apierr.New(http.StatusBadRequest, "invalid_image", errors.New("architecture_image must be a base64 data URL"))
		}
	}

	release, err := u.deps.Locker.Acquire(ctx, "submit:"+userID.String(), submitLockTTL)
	defer release()
	if errors.Is(err, redis.ErrLocked) {
		return nil, apierr.New(http.StatusConflict, CodeSubmissionInProgress, errors.New("another submission is being graded"))
	}
	if err != nil {
		// Fail open: the quota check below still runs, only the cross-request
		// serialisation is lost.
		u.deps.Log.Warn("submission lock unavailable", "user_id", userID, "error", err)
	}

	if err := u.deps.Policy.RequireTask(ctx, userID); err != nil {
		return nil, err
	}

	sub := evaluation.Submission{
		Assumptions:      in.Assumptions,
		Architecture:     in.Architecture,
		TradeOffs:        in.TradeOffs,
		FailureScenarios: in.FailureScenarios,
		Image:            img,
	}
	res := u.deps.Evaluator.Evaluate(ctx, taskContext(task), sub)

	resp := &domain.Response{
		ID:                uuid.New(),
		UserID:            userID,
		TaskID:            task.ID,
		Assumptions:       in.Assumptions,
		Architecture:      in.Architecture,
		ArchitectureData:  optional(in.ArchitectureData),
		ArchitectureImage: optional(in.ArchitectureImage),
		TradeOffs:         in.TradeOffs,
		FailureScenarios:  in.FailureScenarios,
		SubmittedAt:       u.deps.Now().UTC(),
		Score:             res.Score(),
		ScoreBreakdown:    res.Scores,
	}
	if res.Critiques.Complete() {
		resp.ArchitectureCritique = pointers.Ptr(res.Critiques.Architecture)
		resp.ReliabilityCritique = pointers.Ptr(res.Critiques.Reliability)
	}

	// The response only counts against quota once progress has absorbed it.
	err = u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := u.deps.Responses.Create(dbc, resp); err != nil {
			return apierr.New(http.StatusInternalServerError, "submission_failed", err)
		}
		if _, err := u.deps.Progress.RecordCompletionTx(dbc, userID, resp.Score); err != nil {
			u.deps.Log.Error("progress update failed, submission rolled back", "user_id", userID, "response_id", resp.ID, "error", err)
			return apierr.New(http.StatusInternalServerError, "progress_update_failed", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := apierr.As(err); ok {
			return nil, err
		}
		return nil, apierr.New(http.StatusInternalServerError, "submission_failed", err)
	}

	u.deps.Log.Info("response graded",
		"user_id", userID,
		"response_id", resp.ID,
		"score", resp.Score,
		"fallback", res.Fallback,
	)
	return resp, nil
}

type FeedbackResult struct {
	Feedback        string    `json:"feedback"`
	UnlockedAt      time.Time `json:"unlocked_at"`
	AlreadyUnlocked bool      `json:"already_unlocked"`
}

// RequestFeedback moves a response from locked to unlocked once the gate has
// elapsed. Repeated calls return the stored feedback unchanged.
func (u Usecases) RequestFeedback(ctx context.Context, userID uuid.UUID, rawID string) (*FeedbackResult, error) {
	resp, err := u.owned(ctx, userID, rawID, "feedback_failed")
	if err != nil {
		return nil, err
	}
	if resp.AIFeedback != nil {
		return storedFeedback(resp), nil
	}

	now := u.deps.Now().UTC()
	if wait := u.deps.FeedbackGate - now.Sub(resp.SubmittedAt); wait > 0 {
		remaining := int(math.Ceil(wait.Seconds()))
		return nil, apierr.New(http.StatusTooEarly, CodeFeedbackLocked, errors.New("feedback is not available yet")).
			WithMeta("remaining_seconds", remaining)
	}

	task, err := u.deps.Tasks.GetByID(dbctx.Context{Ctx: ctx}, resp.TaskID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "task_lookup_failed", err)
	}
	sub := evaluation.Submission{
		Assumptions:      resp.Assumptions,
		Architecture:     resp.Architecture,
		TradeOffs:        resp.TradeOffs,
		FailureScenarios: resp.FailureScenarios,
		Image:            evaluation.ParseImage(pointers.Deref(resp.ArchitectureImage)),
	}
	var res evaluation.Result
	critiques := evaluation.Critiques{
		Architecture: pointers.Deref(resp.ArchitectureCritique),
		Reliability:  pointers.Deref(resp.ReliabilityCritique),
	}
	if critiques.Complete() {
		res = u.deps.Evaluator.Synthesize(ctx, taskContext(task), sub, critiques)
	} else {
		res = u.deps.Evaluator.Evaluate(ctx, taskContext(task), sub)
	}

	won, err := u.deps.Responses.SetFeedback(dbctx.Context{Ctx: ctx}, resp.ID, res.Feedback, now)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "feedback_failed", err)
	}
	if !won {
		// A concurrent request unlocked it first; theirs is the stored value.
		latest, err := u.deps.Responses.GetByID(dbctx.Context{Ctx: ctx}, resp.ID)
		if err != nil || latest == nil || latest.AIFeedback == nil {
			return nil, apierr.New(http.StatusInternalServerError, "feedback_failed", errors.New("feedback unlock lost without stored value"))
		}
		return storedFeedback(latest), nil
	}

	observability.FeedbackUnlocks.Inc()
	u.deps.Log.Info("feedback unlocked", "user_id", userID, "response_id", resp.ID)
	return &FeedbackResult{Feedback: res.Feedback, UnlockedAt: now}, nil
}

func (u Usecases) Get(ctx context.Context, userID uuid.UUID, rawID string) (*domain.Response, error) {
	return u.owned(ctx, userID, rawID, "response_lookup_failed")
}

// History lists the user's responses newest first.
func (u Usecases) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Response, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	out, err := u.deps.Responses.ListByUser(dbctx.Context{Ctx: ctx}, userID, limit)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "history_failed", err)
	}
	return out, nil
}

func (u Usecases) owned(ctx context.Context, userID uuid.UUID, rawID, failCode string) (*domain.Response, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_id", errors.New("invalid response id"))
	}
	resp, err := u.deps.Responses.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, failCode, err)
	}
	if resp == nil {
		return nil, apierr.New(http.StatusNotFound, "response_not_found", errors.New("response not found"))
	}
	if resp.UserID != userID {
		u.deps.Log.Security("response ownership violation",
			"user_id", userID,
			"owner_user_id", resp.UserID,
			"response_id", resp.ID,
		)
		return nil, apierr.New(http.StatusForbidden, "forbidden", errors.New("not your response"))
	}
	return resp, nil
}

func storedFeedback(resp *domain.Response) *FeedbackResult {
	out := &FeedbackResult{Feedback: *resp.AIFeedback, AlreadyUnlocked: true}
	if resp.AIUnlockedAt != nil {
		out.UnlockedAt = resp.AIUnlockedAt.UTC()
	}
	return out
}

func taskContext(task *domain.Task) evaluation.TaskContext {
	if task == nil {
		return evaluation.TaskContext{}
	}
	return evaluation.TaskContext{Scenario: task.Scenario, Prompts: []string(task.Prompts)}
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
