package domain

import (
	"time"

	"github.com/yungbote/cortex-backend/internal/domain/billing"
	"github.com/yungbote/cortex-backend/internal/domain/training"
	"github.com/yungbote/cortex-backend/internal/domain/user"
)

type (
	User            = user.User
	Subscription    = billing.Subscription
	Task            = training.Task
	Response        = training.Response
	ScoreBreakdown  = training.ScoreBreakdown
	Progress        = training.Progress
	ActivityEntry   = training.ActivityEntry
	Drill           = training.Drill
	DrillSubmission = training.DrillSubmission
)

const (
	PlanFree = billing.PlanFree
	PlanPro  = billing.PlanPro

	StatusActive    = billing.StatusActive
	StatusCancelled = billing.StatusCancelled
	StatusOnHold    = billing.StatusOnHold
	StatusExpired   = billing.StatusExpired
)

var (
	Roles        = training.Roles
	Difficulties = training.Difficulties
	DrillTypes   = training.DrillTypes
)

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time { return training.DayOf(t) }

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		&User{},
		&Subscription{},
		&Task{},
		&Response{},
		&Progress{},
		&Drill{},
		&DrillSubmission{},
	}
}
