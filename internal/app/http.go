package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/cortex-backend/internal/http"
	httpH "github.com/yungbote/cortex-backend/internal/http/handlers"
	httpMW "github.com/yungbote/cortex-backend/internal/http/middleware"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

const serviceName = "cortex-backend"

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Webhook      *httpH.WebhookHandler
	Task         *httpH.TaskHandler
	Response     *httpH.ResponseHandler
	Drill        *httpH.DrillHandler
	Progress     *httpH.ProgressHandler
	Subscription *httpH.SubscriptionHandler
	Admin        *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(pingDB(db)),
		Webhook:      httpH.NewWebhookHandler(services.Billing),
		Task:         httpH.NewTaskHandler(services.Catalog),
		Response:     httpH.NewResponseHandler(services.Submission),
		Drill:        httpH.NewDrillHandler(services.Drills),
		Progress:     httpH.NewProgressHandler(services.Progress),
		Subscription: httpH.NewSubscriptionHandler(services.Billing),
		Admin:        httpH.NewAdminHandler(log, services.Catalog),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, services Services) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                 log,
		ServiceName:         serviceName,
		CORSOrigins:         cfg.CORSOrigins,
		AuthMiddleware:      middleware.Auth,
		Limiter:             services.Limiter,
		HealthHandler:       handlers.Health,
		WebhookHandler:      handlers.Webhook,
		TaskHandler:         handlers.Task,
		ResponseHandler:     handlers.Response,
		DrillHandler:        handlers.Drill,
		ProgressHandler:     handlers.Progress,
		SubscriptionHandler: handlers.Subscription,
		AdminHandler:        handlers.Admin,
	})
}

func pingDB(db *gorm.DB) httpH.Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
