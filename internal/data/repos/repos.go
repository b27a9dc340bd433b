package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/repos/billing"
	"github.com/yungbote/cortex-backend/internal/data/repos/training"
	"github.com/yungbote/cortex-backend/internal/data/repos/user"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type SubscriptionRepo = billing.SubscriptionRepo

type TaskRepo = training.TaskRepo
type TaskFilter = training.TaskFilter
type ResponseRepo = training.ResponseRepo
type ProgressRepo = training.ProgressRepo
type DrillRepo = training.DrillRepo
type DrillSubmissionRepo = training.DrillSubmissionRepo
type DrillTypeTally = training.DrillTypeTally

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return billing.NewSubscriptionRepo(db, baseLog)
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return training.NewTaskRepo(db, baseLog)
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return training.NewResponseRepo(db, baseLog)
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	return training.NewProgressRepo(db, baseLog)
}

func NewDrillRepo(db *gorm.DB, baseLog *logger.Logger) DrillRepo {
	return training.NewDrillRepo(db, baseLog)
}

func NewDrillSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) DrillSubmissionRepo {
	return training.NewDrillSubmissionRepo(db, baseLog)
}
