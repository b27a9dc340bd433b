package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/data/repos"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type Repos struct {
	User            repos.UserRepo
	Subscription    repos.SubscriptionRepo
	Task            repos.TaskRepo
	Response        repos.ResponseRepo
	Progress        repos.ProgressRepo
	Drill           repos.DrillRepo
	DrillSubmission repos.DrillSubmissionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:            repos.NewUserRepo(db, log),
		Subscription:    repos.NewSubscriptionRepo(db, log),
		Task:            repos.NewTaskRepo(db, log),
		Response:        repos.NewResponseRepo(db, log),
		Progress:        repos.NewProgressRepo(db, log),
		Drill:           repos.NewDrillRepo(db, log),
		DrillSubmission: repos.NewDrillSubmissionRepo(db, log),
	}
}
