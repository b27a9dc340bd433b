package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/clients/redis"
	"github.com/yungbote/cortex-backend/internal/modules/billing"
	"github.com/yungbote/cortex-backend/internal/modules/catalog"
	"github.com/yungbote/cortex-backend/internal/modules/drills"
	"github.com/yungbote/cortex-backend/internal/modules/evaluation"
	"github.com/yungbote/cortex-backend/internal/modules/progress"
	"github.com/yungbote/cortex-backend/internal/modules/submission"
	"github.com/yungbote/cortex-backend/internal/modules/usage"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
	"github.com/yungbote/cortex-backend/internal/services"
)

const (
	lockWait        = 3 * time.Second
	rateLimitWindow = time.Minute
)

type Services struct {
	Auth services.AuthService

	Pipeline   *evaluation.Pipeline
	Usage      usage.Usecases
	Progress   progress.Usecases
	Catalog    catalog.Usecases
	Submission submission.Usecases
	Drills     drills.Usecases
	Billing    billing.Usecases

	Limiter redis.Limiter
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	plans, err := usage.EmbeddedPlans()
	if err != nil {
		return Services{}, fmt.Errorf("load plan table: %w", err)
	}

	locker := redis.NopLocker()
	limiter := redis.NopLimiter()
	if clients.Redis != nil {
		locker = redis.NewLocker(clients.Redis, log, lockWait)
		if cfg.RateLimitPerMinute > 0 {
			limiter = redis.NewLimiter(clients.Redis, cfg.RateLimitPerMinute, rateLimitWindow)
		}
	}

	authService := services.NewAuthService(log, repos.User, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.AdminEmails)

	pipeline := evaluation.NewPipeline(clients.evaluator(), log)

	usageUC := usage.New(usage.UsecasesDeps{
		Log:              log,
		Plans:            plans,
		Subscriptions:    repos.Subscription,
		Responses:        repos.Response,
		DrillSubmissions: repos.DrillSubmission,
	})

	progressUC := progress.New(progress.UsecasesDeps{
		DB:        db,
		Log:       log,
		Progress:  repos.Progress,
		Responses: repos.Response,
	})

	catalogUC := catalog.New(catalog.UsecasesDeps{
		Log:              log,
		Tasks:            repos.Task,
		Drills:           repos.Drill,
		Users:            repos.User,
		Responses:        repos.Response,
		DrillSubmissions: repos.DrillSubmission,
		Subscriptions:    repos.Subscription,
		Gen:              clients.Gen,
		DailyConcurrency: cfg.DailyConcurrency,
	})

	submissionUC := submission.New(submission.UsecasesDeps{
		DB:           db,
		Log:          log,
		Tasks:        repos.Task,
		Responses:    repos.Response,
		Policy:       usageUC,
		Evaluator:    pipeline,
		Progress:     progressUC,
		Locker:       locker,
		FeedbackGate: cfg.FeedbackGate,
	})

	drillsUC := drills.New(drills.UsecasesDeps{
		Log:         log,
		Drills:      repos.Drill,
		Submissions: repos.DrillSubmission,
		Policy:      usageUC,
		Locker:      locker,
	})

	billingUC := billing.New(billing.UsecasesDeps{
		DB:            db,
		Log:           log,
		Users:         repos.User,
		Subscriptions: repos.Subscription,
		Usage:         usageUC,
		WebhookSecret: cfg.WebhookSecret,
	})

	return Services{
		Auth:       authService,
		Pipeline:   pipeline,
		Usage:      usageUC,
		Progress:   progressUC,
		Catalog:    catalogUC,
		Submission: submissionUC,
		Drills:     drillsUC,
		Billing:    billingUC,
		Limiter:    limiter,
	}, nil
}
