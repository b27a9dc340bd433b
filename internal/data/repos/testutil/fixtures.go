package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/cortex-backend/internal/domain"
)

func SeedUser(tb testing.TB, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:               uuid.New(),
		Email:            email,
		FullName:         "Test User",
		SubscriptionPlan: types.PlanFree,
	}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedTask(tb testing.TB, tx *gorm.DB, role, difficulty, title string) *types.Task {
	tb.Helper()
	t := &types.Task{
		ID:                   uuid.New(),
		Title:                title,
		Description:          "Design something durable.",
		Role:                 role,
		Difficulty:           difficulty,
		EstimatedTimeMinutes: 45,
		Scenario:             "A checkout service drops orders under load.",
		Prompts:              []string{"What are your assumptions?", "Where does it fail?"},
		Source:               "seed",
	}
	if err := tx.Create(t).Error; err != nil {
		tb.Fatalf("seed task: %v", err)
	}
	return t
}

func SeedResponse(tb testing.TB, tx *gorm.DB, userID, taskID uuid.UUID, submittedAt time.Time, score float64) *types.Response {
	tb.Helper()
	r := &types.Response{
		ID:               uuid.New(),
		UserID:           userID,
		TaskID:           taskID,
		Assumptions:      "a",
		Architecture:     "b",
		TradeOffs:        "c",
		FailureScenarios: "d",
		SubmittedAt:      submittedAt.UTC(),
		Score:            score,
		ScoreBreakdown: types.ScoreBreakdown{
			Clarity:              score,
			ConstraintsAwareness: score,
			TradeOffReasoning:    score,
			FailureAnticipation:  score,
			Simplicity:           score,
		},
	}
	if err := tx.Create(r).Error; err != nil {
		tb.Fatalf("seed response: %v", err)
	}
	return r
}

func SeedSubscription(tb testing.TB, tx *gorm.DB, userID uuid.UUID, plan, status, subscriptionID string) *types.Subscription {
	tb.Helper()
	s := &types.Subscription{
		ID:     uuid.New(),
		UserID: userID,
		Plan:   plan,
		Status: status,
	}
	if subscriptionID != "" {
		s.SubscriptionID = &subscriptionID
	}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed subscription: %v", err)
	}
	return s
}

func SeedDrill(tb testing.TB, tx *gorm.DB, drillType, title, correct string) *types.Drill {
	tb.Helper()
	d := &types.Drill{
		ID:            uuid.New(),
		Title:         title,
		DrillType:     drillType,
		Question:      "Which option holds under 10x load?",
		Options:       []string{"Option A", "Option B", "Option C"},
		CorrectAnswer: correct,
		Explanation:   "Because it sheds load.",
	}
	if err := tx.Create(d).Error; err != nil {
		tb.Fatalf("seed drill: %v", err)
	}
	return d
}

func SeedDrillSubmission(tb testing.TB, tx *gorm.DB, userID uuid.UUID, d *types.Drill, correct bool, at time.Time) *types.DrillSubmission {
	tb.Helper()
	s := &types.DrillSubmission{
		ID:          uuid.New(),
		UserID:      userID,
		DrillID:     d.ID,
		DrillType:   d.DrillType,
		UserAnswer:  "x",
		IsCorrect:   correct,
		SubmittedAt: at.UTC(),
	}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed drill submission: %v", err)
	}
	return s
}
