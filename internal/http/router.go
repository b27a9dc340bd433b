package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/cortex-backend/internal/clients/redis"
	httpH "github.com/yungbote/cortex-backend/internal/http/handlers"
	httpMW "github.com/yungbote/cortex-backend/internal/http/middleware"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware
	Limiter        redis.Limiter

	HealthHandler       *httpH.HealthHandler
	WebhookHandler      *httpH.WebhookHandler
	TaskHandler         *httpH.TaskHandler
	ResponseHandler     *httpH.ResponseHandler
	DrillHandler        *httpH.DrillHandler
	ProgressHandler     *httpH.ProgressHandler
	SubscriptionHandler *httpH.SubscriptionHandler
	AdminHandler        *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "cortex-backend"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics())
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Webhooks (signature-verified, no bearer token)
		if cfg.WebhookHandler != nil {
			api.POST("/webhooks/billing", cfg.WebhookHandler.Billing)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		if cfg.Limiter != nil {
			protected.Use(httpMW.RateLimit(cfg.Limiter, log))
		}

		// Tasks
		if cfg.TaskHandler != nil {
			protected.GET("/tasks", cfg.TaskHandler.ListTasks)
			protected.GET("/tasks/random", cfg.TaskHandler.RandomTask)
			protected.GET("/tasks/:id", cfg.TaskHandler.GetTask)
		}

		// Responses
		if cfg.ResponseHandler != nil {
			protected.POST("/responses", cfg.ResponseHandler.Submit)
			protected.GET("/responses", cfg.ResponseHandler.History)
			protected.GET("/responses/:id", cfg.ResponseHandler.Get)
			protected.POST("/responses/:id/feedback", cfg.ResponseHandler.RequestFeedback)
		}

		// Drills
		if cfg.DrillHandler != nil {
			protected.GET("/drills/random", cfg.DrillHandler.Random)
			protected.POST("/drills/submit", cfg.DrillHandler.Submit)
			protected.GET("/drills/history", cfg.DrillHandler.History)
			protected.GET("/drills/stats", cfg.DrillHandler.Stats)
		}

		// Progress
		if cfg.ProgressHandler != nil {
			protected.GET("/progress/stats", cfg.ProgressHandler.Stats)
			protected.GET("/progress/activity", cfg.ProgressHandler.Activity)
		}

		// Subscriptions
		if cfg.SubscriptionHandler != nil {
			protected.GET("/subscriptions/me", cfg.SubscriptionHandler.Me)
			protected.GET("/subscriptions/usage", cfg.SubscriptionHandler.Usage)
			protected.POST("/subscriptions/cancel", cfg.SubscriptionHandler.Cancel)
		}

		// Admin
		if cfg.AdminHandler != nil {
			admin := protected.Group("/admin")
			if cfg.AuthMiddleware != nil {
				admin.Use(cfg.AuthMiddleware.RequireAdmin())
			}
			admin.POST("/tasks", cfg.AdminHandler.CreateTask)
			admin.POST("/tasks/generate", cfg.AdminHandler.GenerateTask)
			admin.POST("/tasks/generate-daily", cfg.AdminHandler.GenerateDailyTasks)
			admin.POST("/drills", cfg.AdminHandler.CreateDrill)
			admin.POST("/drills/generate", cfg.AdminHandler.GenerateDrill)
			admin.GET("/stats", cfg.AdminHandler.Stats)
		}
	}

	return r
}
